package source

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"mgiindexer/internal/chunk"
)

// QueryError names the failing query so operators can find it in the job.
type QueryError struct {
	Name string
	Err  error
}

func (e *QueryError) Error() string { return fmt.Sprintf("query %s: %v", e.Name, e.Err) }

func (e *QueryError) Unwrap() error { return e.Err }

// Each runs query and hands every row to fn. Errors from the query, from
// fn or from row iteration abort the loop and are returned as *QueryError.
func Each(ctx context.Context, q Querier, name, query string, args []any, fn func(*sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return &QueryError{Name: name, Err: err}
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return &QueryError{Name: name, Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return &QueryError{Name: name, Err: err}
	}
	return nil
}

// Bounds runs a "SELECT MIN(key), MAX(key) ..." query. NULL results (an
// empty table) report Empty rather than an error.
func Bounds(ctx context.Context, q Querier, name, query string, args ...any) (chunk.Bounds, error) {
	var lo, hi sql.NullInt64
	found := false
	err := Each(ctx, q, name, query, args, func(rows *sql.Rows) error {
		found = true
		return rows.Scan(&lo, &hi)
	})
	if err != nil {
		return chunk.Bounds{}, err
	}
	if !found || !lo.Valid || !hi.Valid {
		return chunk.Bounds{Empty: true}, nil
	}
	return chunk.Bounds{Min: lo.Int64, Max: hi.Int64}, nil
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Materialize creates a session-scoped temporary table from selectSQL and
// indexes the listed columns. The table is write-once, read-many for the
// rest of the job and disappears when the connection closes, so callers
// must run it on the same *sql.Conn they query from.
func Materialize(ctx context.Context, q Querier, table, selectSQL string, indexColumns ...string) error {
	if !identifier.MatchString(table) {
		return fmt.Errorf("materialize: invalid table name %q", table)
	}
	stmts := []string{
		"DROP TABLE IF EXISTS " + table,
		"CREATE TEMPORARY TABLE " + table + " AS " + strings.TrimSpace(selectSQL),
	}
	for _, col := range indexColumns {
		if !identifier.MatchString(col) {
			return fmt.Errorf("materialize %s: invalid column %q", table, col)
		}
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX idx_%s_%s ON %s (%s)", table, col, table, col))
	}
	for _, stmt := range stmts {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return &QueryError{Name: "materialize " + table, Err: err}
		}
	}
	return nil
}
