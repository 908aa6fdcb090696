// Package sqlscript splits and applies semicolon-terminated SQL scripts.
package sqlscript

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Execer is the subset of *sql.DB / *sql.Conn / *sql.Tx needed to apply a script.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Split splits a semicolon-terminated script into executable statements.
// It drops blank lines and single-line comments that start with "--".
// A trailing statement without a semicolon is kept.
func Split(script string) []string {
	scanner := bufio.NewScanner(strings.NewReader(script))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var stmts []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	flush()
	return stmts
}

// Apply executes every statement of script in order and stops at the first
// failure, reporting the statement index.
func Apply(ctx context.Context, db Execer, script string) error {
	for i, stmt := range Split(script) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}
