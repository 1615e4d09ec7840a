package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// The agent may only read. Statements are screened before execution and
// row counts are capped so a runaway query cannot flood the model.
const maxQueryRows = 200

var ErrQueryNotAllowed = errors.New("store: only single SELECT statements are allowed")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ListTables returns the user tables in the database.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Column describes one table column.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"notNull"`
	PrimaryKey bool   `json:"primaryKey"`
}

// DescribeTable returns the column layout of a table.
func (s *Store) DescribeTable(ctx context.Context, table string) ([]Column, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("store: invalid table name %q", table)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var (
			cid     int
			col     Column
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		col.NotNull = notNull != 0
		col.PrimaryKey = pk != 0
		out = append(out, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("store: unknown table %q", table)
	}
	return out, nil
}

// ReadOnlyQuery executes a screened SELECT and returns generic rows.
func (s *Store) ReadOnlyQuery(ctx context.Context, query string) ([]map[string]any, error) {
	if !isSelect(query) {
		return nil, ErrQueryNotAllowed
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		if len(out) >= maxQueryRows {
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[c] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// isSelect accepts a single SELECT or WITH statement. Multiple
// statements and anything that writes are rejected.
func isSelect(query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return false
	}
	if strings.Contains(strings.TrimSuffix(q, ";"), ";") {
		return false
	}
	head := strings.ToUpper(q)
	if !strings.HasPrefix(head, "SELECT") && !strings.HasPrefix(head, "WITH") {
		return false
	}
	for _, kw := range []string{"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE", "ATTACH", "PRAGMA", "VACUUM", "REINDEX", "REPLACE"} {
		if containsWord(head, kw) {
			return false
		}
	}
	return true
}

func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isWordChar(s[i-1])
		afterIdx := i + len(word)
		after := afterIdx >= len(s) || !isWordChar(s[afterIdx])
		if before && after {
			return true
		}
		idx = i + len(word)
	}
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
