package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Page is one slice of a numbered result set plus the size of the whole set.
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	PageNumber int `json:"page_number"`
	PageSize   int `json:"page_size"`
}

// PageQuery describes a paged read. Select is any SELECT statement; OrderBy
// is the body of the ORDER BY used for row numbering and must come from a
// whitelist. PageNumber or PageSize <= 0 returns every row.
type PageQuery struct {
	Select     string
	Args       []any
	OrderBy    string
	PageNumber int
	PageSize   int
}

// Paged numbers the rows of q.Select with ROW_NUMBER() and returns the
// requested page together with the total row count. scan receives rows whose
// columns are the columns of q.Select followed by row_num.
func Paged[T any](ctx context.Context, db Querier, q PageQuery, scan func(*sql.Rows) (T, error)) (*Page[T], error) {
	orderBy := strings.TrimSpace(q.OrderBy)
	if orderBy == "" {
		orderBy = "(SELECT NULL)"
	}

	base := fmt.Sprintf("WITH base AS (%s)", q.Select)
	pagedSQL := fmt.Sprintf(`%s, numbered AS (
		SELECT base.*, ROW_NUMBER() OVER (ORDER BY %s) AS row_num FROM base
	)
	SELECT * FROM numbered ORDER BY row_num`, base, orderBy)

	args := append([]any{}, q.Args...)
	hasPaging := q.PageNumber > 0 && q.PageSize > 0
	if hasPaging {
		pagedSQL += " LIMIT ? OFFSET ?"
		args = append(args, q.PageSize, (q.PageNumber-1)*q.PageSize)
	}

	rows, err := db.QueryContext(ctx, pagedSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run paged query: %w", err)
	}
	defer rows.Close()

	page := &Page[T]{
		Items:      []T{},
		PageNumber: q.PageNumber,
		PageSize:   q.PageSize,
	}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan paged row: %w", err)
		}
		page.Items = append(page.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate paged rows: %w", err)
	}

	countSQL := base + " SELECT COUNT(1) FROM base"
	if err := db.QueryRowContext(ctx, countSQL, q.Args...).Scan(&page.TotalCount); err != nil {
		return nil, fmt.Errorf("failed to count paged rows: %w", err)
	}

	return page, nil
}

// OrderBy resolves a user-supplied sort column and direction against a
// whitelist mapping request names to SQL expressions. Unknown columns fall
// back to def sorted ascending; the direction is always "asc" or "desc".
func OrderBy(column, dir string, allowed map[string]string, def string) string {
	key := strings.TrimSpace(column)
	if key == "" || strings.EqualFold(key, "RowNum") {
		return def + " asc"
	}

	for name, expr := range allowed {
		if strings.EqualFold(name, key) {
			if strings.EqualFold(strings.TrimSpace(dir), "desc") {
				return expr + " desc"
			}
			return expr + " asc"
		}
	}
	return def + " asc"
}
