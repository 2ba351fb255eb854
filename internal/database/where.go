package database

import (
	"strings"
)

// Where accumulates AND-joined, parameterized filter clauses. Empty values
// are skipped so optional form fields can be passed straight through.
type Where struct {
	clauses []string
	args    []any
}

func NewWhere() *Where {
	return &Where{}
}

func (w *Where) Eq(column, value string) *Where {
	if value == "" {
		return w
	}
	return w.Raw(column+" = ?", value)
}

// Like matches value anywhere in column.
func (w *Where) Like(column, value string) *Where {
	if value == "" {
		return w
	}
	return w.Raw(column+" LIKE ? ESCAPE '\\'", LikePattern(value))
}

func (w *Where) Gte(column, value string) *Where {
	if value == "" {
		return w
	}
	return w.Raw(column+" >= ?", value)
}

func (w *Where) Lte(column, value string) *Where {
	if value == "" {
		return w
	}
	return w.Raw(column+" <= ?", value)
}

func (w *Where) In(column string, values []string) *Where {
	if len(values) == 0 {
		return w
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return w.Raw(column+" IN ("+marks+")", args...)
}

// Raw appends a clause verbatim. Use ? placeholders for every value.
func (w *Where) Raw(clause string, args ...any) *Where {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
	return w
}

func (w *Where) Empty() bool {
	return len(w.clauses) == 0
}

// SQL renders the clause starting with "WHERE 1=1".
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return " WHERE 1=1"
	}
	return " WHERE 1=1 AND " + strings.Join(w.clauses, " AND ")
}

func (w *Where) Args() []any {
	return w.args
}

// LikePattern wraps value for a contains match with '\' as the escape
// character, for clauses built with Raw.
func LikePattern(value string) string {
	return "%" + escapeLike(value) + "%"
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
