package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docctl-server/internal/database"
	"docctl-server/internal/domain"
)

type FormIssueRepository interface {
	List(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.FormIssue], error)
	Get(ctx context.Context, docNo, docVer string) (*domain.FormIssue, error)
	Versions(ctx context.Context, docNo string) ([]string, error)
	VersionsByDocument(ctx context.Context, docNos []string) (map[string][]string, error)
	Issue(ctx context.Context, form *domain.FormIssue, check func(existing []string) error) error
	Update(ctx context.Context, form *domain.FormIssue) error
	Delete(ctx context.Context, docNo, docVer string, check func(existing []string, claims int) error) error
}

type formIssueRepository struct {
	db *sql.DB
}

func NewFormIssueRepository(db *sql.DB) FormIssueRepository {
	return &formIssueRepository{db: db}
}

func (r *formIssueRepository) List(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.FormIssue], error) {
	page, err := database.Paged(ctx, r.db, database.PageQuery{
		Select:     "SELECT " + formColumns + " FROM issue_table" + where.SQL(),
		Args:       where.Args(),
		OrderBy:    orderBy,
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}, func(rows *sql.Rows) (*domain.FormIssue, error) {
		var rowNum int64
		return scanForm(rows, &rowNum)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	return page, nil
}

func (r *formIssueRepository) Get(ctx context.Context, docNo, docVer string) (*domain.FormIssue, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+formColumns+" FROM issue_table WHERE original_doc_no = ? AND doc_ver = ?",
		docNo, docVer)

	form, err := scanForm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get form: %w", err)
	}
	return form, nil
}

// Versions returns every stored version of one document in insertion order.
func (r *formIssueRepository) Versions(ctx context.Context, docNo string) ([]string, error) {
	return versionsOf(ctx, r.db, docNo)
}

func (r *formIssueRepository) VersionsByDocument(ctx context.Context, docNos []string) (map[string][]string, error) {
	out := make(map[string][]string, len(docNos))
	if len(docNos) == 0 {
		return out, nil
	}

	where := database.NewWhere().In("original_doc_no", docNos)
	rows, err := r.db.QueryContext(ctx,
		"SELECT original_doc_no, doc_ver FROM issue_table"+where.SQL()+" ORDER BY rowid",
		where.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var docNo, ver string
		if err := rows.Scan(&docNo, &ver); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		out[docNo] = append(out[docNo], ver)
	}
	return out, rows.Err()
}

// Issue inserts a new revision. check sees the versions already stored for
// the document inside the same transaction and may veto the insert.
func (r *formIssueRepository) Issue(ctx context.Context, form *domain.FormIssue, check func(existing []string) error) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := versionsOf(ctx, tx, form.OriginalDocNo)
		if err != nil {
			return err
		}
		if err := check(existing); err != nil {
			return err
		}

		if form.CreatedAt.IsZero() {
			form.CreatedAt = time.Now()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO issue_table (original_doc_no, doc_ver, name, issue_datetime, file_extension, created_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			form.OriginalDocNo, form.DocVer, form.Name,
			database.FormatDate(form.IssueDatetime),
			form.FileExtension,
			database.NullString(form.CreatedBy),
			database.FormatTimestamp(&form.CreatedAt),
		)
		if isUniqueViolation(err) {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("failed to insert form: %w", err)
		}
		return nil
	})
}

// Update rewrites the editable columns only: name, issue date and extension.
func (r *formIssueRepository) Update(ctx context.Context, form *domain.FormIssue) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE issue_table SET name = ?, issue_datetime = ?, file_extension = ?
		 WHERE original_doc_no = ? AND doc_ver = ?`,
		form.Name, database.FormatDate(form.IssueDatetime), form.FileExtension,
		form.OriginalDocNo, form.DocVer,
	)
	if err != nil {
		return fmt.Errorf("failed to update form: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *formIssueRepository) Delete(ctx context.Context, docNo, docVer string, check func(existing []string, claims int) error) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := versionsOf(ctx, tx, docNo)
		if err != nil {
			return err
		}

		var claims int
		err = tx.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM doc_control_maintable WHERE original_doc_no = ? AND doc_ver = ?",
			docNo, docVer).Scan(&claims)
		if err != nil {
			return fmt.Errorf("failed to count claims: %w", err)
		}

		if err := check(existing, claims); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			"DELETE FROM issue_table WHERE original_doc_no = ? AND doc_ver = ?", docNo, docVer)
		if err != nil {
			return fmt.Errorf("failed to delete form: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func versionsOf(ctx context.Context, q database.Querier, docNo string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT doc_ver FROM issue_table WHERE original_doc_no = ? ORDER BY rowid", docNo)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()

	versions := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
