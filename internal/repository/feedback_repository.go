package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docctl-server/internal/database"
	"docctl-server/internal/domain"
)

type FeedbackRepository interface {
	Create(ctx context.Context, fb *domain.Feedback, prefix string, allocate func(existing []string) (string, error)) error
	Get(ctx context.Context, id int64) (*domain.Feedback, error)
	List(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.Feedback], error)
	Update(ctx context.Context, fb *domain.Feedback) error
	Delete(ctx context.Context, id int64) error
	AddResponse(ctx context.Context, resp *domain.FeedbackResponse, fb *domain.Feedback) error
}

type feedbackRepository struct {
	db *sql.DB
}

func NewFeedbackRepository(db *sql.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

const feedbackColumns = `feedback_id, feedback_no, subject, submitted_by_id, submitted_by_role,
	submitted_by_name, submitted_by_email, submitted_org, urgency, status, submitted_date,
	expected_finish_date, closed_date, content, created_at, updated_at`

func scanFeedback(s scanner, extra ...any) (*domain.Feedback, error) {
	var (
		f                                  domain.Feedback
		byID, byRole, byName, byEmail, org sql.NullString
		submitted, expected, closed        sql.NullString
		createdAt, updatedAt               sql.NullString
	)
	dest := append([]any{
		&f.ID, &f.FeedbackNo, &f.Subject, &byID, &byRole,
		&byName, &byEmail, &org, &f.Urgency, &f.Status, &submitted,
		&expected, &closed, &f.Content, &createdAt, &updatedAt,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	f.SubmittedByID = byID.String
	f.SubmittedByRole = byRole.String
	f.SubmittedByName = byName.String
	f.SubmittedByEmail = byEmail.String
	f.SubmittedOrg = org.String
	f.SubmittedDate = database.ParseDate(submitted)
	f.ExpectedFinishDate = database.ParseDate(expected)
	f.ClosedDate = database.ParseDate(closed)
	if t := database.ParseTimestamp(createdAt); t != nil {
		f.CreatedAt = *t
	}
	if t := database.ParseTimestamp(updatedAt); t != nil {
		f.UpdatedAt = *t
	}
	return &f, nil
}

// Create numbers the ticket and inserts it in one transaction. allocate
// receives every feedback number already taken under prefix.
func (r *feedbackRepository) Create(ctx context.Context, fb *domain.Feedback, prefix string, allocate func(existing []string) (string, error)) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			"SELECT feedback_no FROM feedback WHERE feedback_no LIKE ? ORDER BY feedback_no", prefix+"%")
		if err != nil {
			return fmt.Errorf("failed to query feedback numbers: %w", err)
		}
		var existing []string
		for rows.Next() {
			var n string
			if err := rows.Scan(&n); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan feedback number: %w", err)
			}
			existing = append(existing, n)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if fb.FeedbackNo, err = allocate(existing); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO feedback
			 (feedback_no, subject, submitted_by_id, submitted_by_role, submitted_by_name, submitted_by_email,
			  submitted_org, urgency, status, submitted_date, expected_finish_date, closed_date, content,
			  created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			fb.FeedbackNo, fb.Subject, fb.SubmittedByID, fb.SubmittedByRole, fb.SubmittedByName,
			fb.SubmittedByEmail, database.NullString(fb.SubmittedOrg), fb.Urgency, fb.Status,
			database.FormatDate(fb.SubmittedDate), database.FormatDate(fb.ExpectedFinishDate),
			database.FormatDate(fb.ClosedDate), fb.Content,
			database.FormatTimestamp(&fb.CreatedAt), database.FormatTimestamp(&fb.UpdatedAt),
		)
		if isUniqueViolation(err) {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("failed to insert feedback: %w", err)
		}
		fb.ID, err = res.LastInsertId()
		return err
	})
}

// Get returns the ticket with its responses, oldest first.
func (r *feedbackRepository) Get(ctx context.Context, id int64) (*domain.Feedback, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+feedbackColumns+" FROM feedback WHERE feedback_id = ?", id)
	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT response_id, feedback_id, responder_id, responder_role, responder_name, responder_email,
		        responder_org, response_date, status_after_response, content, created_at
		 FROM feedback_response WHERE feedback_id = ? ORDER BY response_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback responses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			resp                               domain.FeedbackResponse
			byID, role, name, email, org, date sql.NullString
			createdAt                          sql.NullString
		)
		if err := rows.Scan(&resp.ID, &resp.FeedbackID, &byID, &role, &name, &email,
			&org, &date, &resp.StatusAfterResponse, &resp.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback response: %w", err)
		}
		resp.ResponderID = byID.String
		resp.ResponderRole = role.String
		resp.ResponderName = name.String
		resp.ResponderEmail = email.String
		resp.ResponderOrg = org.String
		resp.ResponseDate = database.ParseDate(date)
		if t := database.ParseTimestamp(createdAt); t != nil {
			resp.CreatedAt = *t
		}
		fb.Responses = append(fb.Responses, resp)
	}
	return fb, rows.Err()
}

// List pages tickets. The where clause may filter on response content
// through an EXISTS over feedback_response.
func (r *feedbackRepository) List(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.Feedback], error) {
	page, err := database.Paged(ctx, r.db, database.PageQuery{
		Select:     "SELECT " + feedbackColumns + " FROM feedback" + where.SQL(),
		Args:       where.Args(),
		OrderBy:    orderBy,
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}, func(rows *sql.Rows) (*domain.Feedback, error) {
		var rowNum int64
		return scanFeedback(rows, &rowNum)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return page, nil
}

func (r *feedbackRepository) Update(ctx context.Context, fb *domain.Feedback) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE feedback
		 SET subject = ?, urgency = ?, status = ?, expected_finish_date = ?, closed_date = ?, content = ?, updated_at = ?
		 WHERE feedback_id = ?`,
		fb.Subject, fb.Urgency, fb.Status, database.FormatDate(fb.ExpectedFinishDate),
		database.FormatDate(fb.ClosedDate), fb.Content, database.FormatTimestamp(&fb.UpdatedAt),
		fb.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the ticket and its responses.
func (r *feedbackRepository) Delete(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM feedback_response WHERE feedback_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete feedback responses: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM feedback WHERE feedback_id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete feedback: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AddResponse inserts resp and writes the resulting status and closed date
// back to fb in the same transaction.
func (r *feedbackRepository) AddResponse(ctx context.Context, resp *domain.FeedbackResponse, fb *domain.Feedback) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE feedback SET status = ?, closed_date = ?, updated_at = ? WHERE feedback_id = ?`,
			fb.Status, database.FormatDate(fb.ClosedDate), database.FormatTimestamp(&fb.UpdatedAt), fb.ID)
		if err != nil {
			return fmt.Errorf("failed to update feedback status: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		res, err = tx.ExecContext(ctx,
			`INSERT INTO feedback_response
			 (feedback_id, responder_id, responder_role, responder_name, responder_email, responder_org,
			  response_date, status_after_response, content, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			fb.ID, resp.ResponderID, resp.ResponderRole, resp.ResponderName, resp.ResponderEmail,
			database.NullString(resp.ResponderOrg), database.FormatDate(resp.ResponseDate),
			resp.StatusAfterResponse, resp.Content, database.FormatTimestamp(&resp.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert feedback response: %w", err)
		}
		resp.FeedbackID = fb.ID
		resp.ID, err = res.LastInsertId()
		return err
	})
}
