package repository

import (
	"context"
	"database/sql"
	"fmt"
)

type BulletinRepository interface {
	All(ctx context.Context) (map[string]string, error)
	Get(ctx context.Context, code string) (string, error)
	Set(ctx context.Context, values map[string]string) error
}

type bulletinRepository struct {
	db *sql.DB
}

func NewBulletinRepository(db *sql.DB) BulletinRepository {
	return &bulletinRepository{db: db}
}

func (r *bulletinRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT code, value FROM bulletin")
	if err != nil {
		return nil, fmt.Errorf("failed to query bulletin: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var code string
		var value sql.NullString
		if err := rows.Scan(&code, &value); err != nil {
			return nil, fmt.Errorf("failed to scan bulletin: %w", err)
		}
		out[code] = value.String
	}
	return out, rows.Err()
}

// Get returns "" for codes that were never set.
func (r *bulletinRepository) Get(ctx context.Context, code string) (string, error) {
	var value sql.NullString
	err := r.db.QueryRowContext(ctx, "SELECT value FROM bulletin WHERE code = ?", code).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get bulletin %s: %w", code, err)
	}
	return value.String, nil
}

func (r *bulletinRepository) Set(ctx context.Context, values map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for code, value := range values {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO bulletin (code, value) VALUES (?, ?)
			 ON CONFLICT(code) DO UPDATE SET value = excluded.value`,
			code, value)
		if err != nil {
			return fmt.Errorf("failed to set bulletin %s: %w", code, err)
		}
	}
	return tx.Commit()
}
