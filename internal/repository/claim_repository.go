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

// openClaimCond matches rows that domain.ClaimRecord.Open accepts.
const openClaimCond = `in_time IS NULL AND unuse_time IS NULL AND (reject_reason IS NULL OR reject_reason = '')`

const claimStatusExpr = `CASE
	WHEN unuse_time IS NOT NULL OR (reject_reason IS NOT NULL AND reject_reason <> '') THEN 'cancelled'
	WHEN in_time IS NOT NULL THEN 'stored'
	ELSE 'not_stored' END`

// StoreUpdate carries the storage fields written for every stored claim.
type StoreUpdate struct {
	InTime         time.Time
	IsConfidential bool
	IsSensitive    bool
	ModifiedBy     string
	ModifiedAt     time.Time
}

type ClaimRepository interface {
	Create(ctx context.Context, rec *domain.ClaimRecord, prefix string, allocate func(existing []string) (string, error)) error
	NumbersWithPrefix(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, idNo string) (*domain.ClaimRecord, error)
	GetMany(ctx context.Context, idNos []string) (map[string]*domain.ClaimRecord, error)
	List(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.ClaimRecord], error)
	Update(ctx context.Context, rec *domain.ClaimRecord) error
	Cancel(ctx context.Context, rec *domain.ClaimRecord) error
	StockIn(ctx context.Context, rec *domain.ClaimRecord) error
	Store(ctx context.Context, idNos []string, upd StoreUpdate) ([]string, error)
}

type claimRepository struct {
	db *sql.DB
}

func NewClaimRepository(db *sql.DB) ClaimRepository {
	return &claimRepository{db: db}
}

// Create allocates the claim number and inserts the record in one
// transaction. allocate receives every number already taken under prefix.
func (r *claimRepository) Create(ctx context.Context, rec *domain.ClaimRecord, prefix string, allocate func(existing []string) (string, error)) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := numbersWithPrefix(ctx, tx, prefix)
		if err != nil {
			return err
		}

		idNo, err := allocate(existing)
		if err != nil {
			return err
		}
		rec.IDNo = idNo

		_, err = tx.ExecContext(ctx,
			`INSERT INTO doc_control_maintable
			 (id_no, type, date_time, id, person_name, name, purpose, original_doc_no, doc_ver, project_name, file_extension)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.IDNo, rec.Type, database.FormatDate(rec.DateTime), rec.ClaimantID, rec.PersonName,
			rec.Name, rec.Purpose,
			database.NullString(rec.OriginalDocNo), database.NullString(rec.DocVer),
			database.NullString(rec.ProjectName), rec.FileExtension,
		)
		if isUniqueViolation(err) {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("failed to insert claim: %w", err)
		}
		rec.Status = rec.DeriveStatus()
		return nil
	})
}

func (r *claimRepository) NumbersWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	return numbersWithPrefix(ctx, r.db, prefix)
}

func (r *claimRepository) Get(ctx context.Context, idNo string) (*domain.ClaimRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+claimColumns+" FROM doc_control_maintable WHERE id_no = ?", idNo)

	rec, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return rec, nil
}

func (r *claimRepository) GetMany(ctx context.Context, idNos []string) (map[string]*domain.ClaimRecord, error) {
	out := make(map[string]*domain.ClaimRecord, len(idNos))
	if len(idNos) == 0 {
		return out, nil
	}

	where := database.NewWhere().In("id_no", idNos)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+claimColumns+" FROM doc_control_maintable"+where.SQL(), where.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query claims: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		out[rec.IDNo] = rec
	}
	return out, rows.Err()
}

// List pages claim records. The where clause may reference doc_status.
func (r *claimRepository) List(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.ClaimRecord], error) {
	inner := "SELECT " + claimColumns + ", " + claimStatusExpr + " AS doc_status FROM doc_control_maintable"
	page, err := database.Paged(ctx, r.db, database.PageQuery{
		Select:     "SELECT * FROM (" + inner + ")" + where.SQL(),
		Args:       where.Args(),
		OrderBy:    orderBy,
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}, func(rows *sql.Rows) (*domain.ClaimRecord, error) {
		var (
			status string
			rowNum int64
		)
		return scanClaim(rows, &status, &rowNum)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	return page, nil
}

// Update rewrites the descriptive fields of a claim. Storage and
// cancellation fields are left alone.
func (r *claimRepository) Update(ctx context.Context, rec *domain.ClaimRecord) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE doc_control_maintable
		 SET id = ?, person_name = ?, original_doc_no = ?, doc_ver = ?, name = ?, purpose = ?,
		     project_name = ?, file_extension = ?
		 WHERE id_no = ?`,
		rec.ClaimantID, rec.PersonName,
		database.NullString(rec.OriginalDocNo), database.NullString(rec.DocVer),
		rec.Name, rec.Purpose, database.NullString(rec.ProjectName), rec.FileExtension,
		rec.IDNo,
	)
	if err != nil {
		return fmt.Errorf("failed to update claim: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// StockIn writes the storage fields of a single claim, or clears them when
// rec.InTime is nil. Cancelled claims are not touched and yield ErrStale.
func (r *claimRepository) StockIn(ctx context.Context, rec *domain.ClaimRecord) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE doc_control_maintable
		 SET in_time = ?, is_confidential = ?, is_sensitive = ?, in_time_modify_by = ?, in_time_modify_at = ?
		 WHERE id_no = ? AND unuse_time IS NULL AND (reject_reason IS NULL OR reject_reason = '')`,
		database.FormatDate(rec.InTime),
		database.NullBool(rec.IsConfidential),
		database.NullBool(rec.IsSensitive),
		database.NullString(rec.InTimeModifyBy),
		database.FormatTimestamp(rec.InTimeModifyAt),
		rec.IDNo,
	)
	if err != nil {
		return fmt.Errorf("failed to stock in claim: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	rec.Status = rec.DeriveStatus()
	return nil
}

// Cancel marks an open claim as cancelled. It fails with ErrStale when the
// claim was stored or cancelled in the meantime.
func (r *claimRepository) Cancel(ctx context.Context, rec *domain.ClaimRecord) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE doc_control_maintable
		 SET unuse_time = ?, reject_reason = ?, unuse_time_modify_by = ?, unuse_time_modify_at = ?
		 WHERE id_no = ? AND `+openClaimCond,
		database.FormatDate(rec.UnuseTime), rec.RejectReason,
		rec.UnuseTimeModifyBy, database.FormatTimestamp(rec.UnuseTimeModifyAt),
		rec.IDNo,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel claim: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	rec.Status = rec.DeriveStatus()
	return nil
}

// Store checks in every listed claim that is still open and returns the
// numbers that were actually updated.
func (r *claimRepository) Store(ctx context.Context, idNos []string, upd StoreUpdate) ([]string, error) {
	var stored []string
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`UPDATE doc_control_maintable
			 SET in_time = ?, is_confidential = ?, is_sensitive = ?, in_time_modify_by = ?, in_time_modify_at = ?
			 WHERE id_no = ? AND `+openClaimCond)
		if err != nil {
			return fmt.Errorf("failed to prepare store: %w", err)
		}
		defer stmt.Close()

		for _, idNo := range idNos {
			res, err := stmt.ExecContext(ctx,
				database.FormatDate(&upd.InTime),
				database.NullBool(&upd.IsConfidential),
				database.NullBool(&upd.IsSensitive),
				upd.ModifiedBy,
				database.FormatTimestamp(&upd.ModifiedAt),
				idNo,
			)
			if err != nil {
				return fmt.Errorf("failed to store %s: %w", idNo, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				stored = append(stored, idNo)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func numbersWithPrefix(ctx context.Context, q database.Querier, prefix string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id_no FROM doc_control_maintable WHERE id_no LIKE ? ORDER BY id_no", prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query claim numbers: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan claim number: %w", err)
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}
