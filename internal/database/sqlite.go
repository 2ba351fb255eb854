package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS issue_table (
	original_doc_no TEXT NOT NULL CHECK (length(original_doc_no) <= 50),
	doc_ver         TEXT NOT NULL CHECK (length(doc_ver) <= 10),
	name            TEXT,
	issue_datetime  TEXT,
	file_extension  TEXT,
	created_by      TEXT,
	created_at      TEXT NOT NULL,
	PRIMARY KEY (original_doc_no, doc_ver)
);

CREATE TABLE IF NOT EXISTS doc_control_maintable (
	id_no                TEXT PRIMARY KEY,
	type                 TEXT NOT NULL,
	date_time            TEXT,
	id                   TEXT,
	person_name          TEXT,
	name                 TEXT,
	purpose              TEXT,
	original_doc_no      TEXT,
	doc_ver              TEXT,
	project_name         TEXT,
	in_time              TEXT,
	unuse_time           TEXT,
	reject_reason        TEXT,
	file_extension       TEXT,
	is_confidential      INTEGER,
	is_sensitive         INTEGER,
	in_time_modify_by    TEXT,
	in_time_modify_at    TEXT,
	unuse_time_modify_by TEXT,
	unuse_time_modify_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_claim_form ON doc_control_maintable (original_doc_no, doc_ver);
CREATE INDEX IF NOT EXISTS idx_claim_person ON doc_control_maintable (id);

CREATE TABLE IF NOT EXISTS bulletin (
	code  TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS feedback (
	feedback_id          INTEGER PRIMARY KEY AUTOINCREMENT,
	feedback_no          TEXT NOT NULL UNIQUE,
	subject              TEXT NOT NULL,
	submitted_by_id      TEXT,
	submitted_by_role    TEXT,
	submitted_by_name    TEXT,
	submitted_by_email   TEXT,
	submitted_org        TEXT,
	urgency              TEXT NOT NULL,
	status               TEXT NOT NULL,
	submitted_date       TEXT NOT NULL,
	expected_finish_date TEXT,
	closed_date          TEXT,
	content              TEXT NOT NULL,
	created_at           TEXT NOT NULL,
	updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback_response (
	response_id           INTEGER PRIMARY KEY AUTOINCREMENT,
	feedback_id           INTEGER NOT NULL REFERENCES feedback (feedback_id) ON DELETE CASCADE,
	responder_id          TEXT,
	responder_role        TEXT,
	responder_name        TEXT,
	responder_email       TEXT,
	responder_org         TEXT,
	response_date         TEXT NOT NULL,
	status_after_response TEXT NOT NULL,
	content               TEXT NOT NULL,
	created_at            TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feedback_response ON feedback_response (feedback_id);

CREATE TABLE IF NOT EXISTS product_class (
	product_class       TEXT PRIMARY KEY CHECK (length(product_class) <= 50),
	supplier_class      TEXT CHECK (length(supplier_class) <= 10),
	product_class_title TEXT,
	disabled            INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS qualified_suppliers (
	supplier_name            TEXT NOT NULL,
	product_class            TEXT NOT NULL REFERENCES product_class (product_class),
	supplier_no              TEXT,
	supplier_class           TEXT,
	supplier_1st_assess_date TEXT,
	reassess_date            TEXT,
	reassess_result          TEXT,
	PRIMARY KEY (supplier_name, product_class)
);

CREATE TABLE IF NOT EXISTS supplier_1st_assess (
	supplier_name          TEXT NOT NULL,
	product_class          TEXT NOT NULL,
	assess_date            TEXT NOT NULL,
	product_name           TEXT,
	product_spec           TEXT,
	visit                  TEXT,
	reason                 TEXT,
	assess_result          TEXT NOT NULL,
	improvement            TEXT,
	risk_level             TEXT NOT NULL,
	remarks                TEXT,
	assess_people          TEXT,
	supplier_1st_assess_no TEXT,
	PRIMARY KEY (supplier_name, product_class, assess_date),
	FOREIGN KEY (supplier_name, product_class) REFERENCES qualified_suppliers (supplier_name, product_class) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS supplier_reassessment (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	supplier_name TEXT NOT NULL,
	product_class TEXT NOT NULL,
	assess_date   TEXT NOT NULL,
	grade         REAL,
	total_orders  INTEGER NOT NULL DEFAULT 0,
	assess_result TEXT NOT NULL,
	created_by    TEXT,
	UNIQUE (supplier_name, product_class, assess_date)
);

CREATE TABLE IF NOT EXISTS purchase_records (
	request_no               TEXT PRIMARY KEY,
	request_date             TEXT,
	requester                TEXT,
	purchaser                TEXT,
	product_class            TEXT NOT NULL,
	product_class_title      TEXT,
	supplier_class           TEXT,
	supplier_name            TEXT NOT NULL,
	product_name             TEXT NOT NULL,
	product_spec             TEXT,
	product_number           TEXT,
	product_unit             TEXT,
	product_price            REAL,
	keep_time                TEXT,
	quality_agreement        INTEGER,
	quality_agreement_no     TEXT,
	change_notification      INTEGER,
	change_notification_no   TEXT,
	supplier_1st_assess_date TEXT,
	delivery_date            TEXT,
	verify_date              TEXT,
	receive_person           TEXT,
	verify_person            TEXT,
	receive_number           TEXT,
	remarks                  TEXT,
	receipt_status           TEXT,
	price_select             INTEGER,
	spec_select              INTEGER,
	delivery_select          INTEGER,
	service_select           INTEGER,
	quality_select           INTEGER,
	grade                    INTEGER,
	assess_result            TEXT,
	assess_person            TEXT,
	assess_date              TEXT,
	assessment_no            TEXT,
	created_at               TEXT NOT NULL,
	FOREIGN KEY (supplier_name, product_class) REFERENCES qualified_suppliers (supplier_name, product_class)
);

CREATE INDEX IF NOT EXISTS idx_purchase_supplier ON purchase_records (supplier_name, product_class);
`

// Open opens (creating if needed) the SQLite database at path. SQLite allows
// a single writer, so the pool is pinned to one connection and every
// transaction is serialized.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	return db, nil
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
