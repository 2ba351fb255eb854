package database

import (
	"database/sql"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = time.RFC3339
)

// Dates and timestamps are stored as TEXT so they compare correctly as
// strings inside SQL and survive CTE wrapping unchanged.

func FormatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(DateLayout)
}

func FormatTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(TimestampLayout)
}

func ParseDate(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.ParseInLocation(DateLayout, s.String, time.Local)
	if err != nil {
		return nil
	}
	return &t
}

func ParseTimestamp(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(TimestampLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func NullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func NullBool(b *bool) any {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}

func ScanBool(n sql.NullInt64) *bool {
	if !n.Valid {
		return nil
	}
	b := n.Int64 != 0
	return &b
}
