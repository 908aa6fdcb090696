package sqlscript

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
)

func TestSplitDropsCommentsAndBlankLines(t *testing.T) {
	script := strings.Join([]string{
		"-- leading comment",
		"CREATE TABLE marker (",
		"  marker_key INTEGER PRIMARY KEY",
		");",
		"",
		"  -- indented comment",
		"INSERT INTO marker VALUES (1);",
		"SELECT 1",
	}, "\n")
	stmts := Split(script)
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(stmts), stmts)
	}
	if !strings.HasPrefix(stmts[0], "CREATE TABLE marker") || !strings.HasSuffix(stmts[0], ");") {
		t.Fatalf("unexpected first statement %q", stmts[0])
	}
	if stmts[2] != "SELECT 1" {
		t.Fatalf("expected trailing statement without semicolon, got %q", stmts[2])
	}
}

func TestSplitEmpty(t *testing.T) {
	if got := Split("\n-- nothing\n\n"); len(got) != 0 {
		t.Fatalf("expected no statements, got %q", got)
	}
}

type recordingExec struct {
	execs  []string
	failAt int
}

func (r *recordingExec) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	r.execs = append(r.execs, query)
	if r.failAt > 0 && len(r.execs) == r.failAt {
		return nil, errors.New("boom")
	}
	return nil, nil
}

func TestApplyRunsStatementsInOrder(t *testing.T) {
	rec := &recordingExec{}
	if err := Apply(context.Background(), rec, "A;\nB;\nC;"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if strings.Join(rec.execs, "") != "A;B;C;" {
		t.Fatalf("unexpected execs %q", rec.execs)
	}
}

func TestApplyStopsAtFailure(t *testing.T) {
	rec := &recordingExec{failAt: 2}
	err := Apply(context.Background(), rec, "A;\nB;\nC;")
	if err == nil || !strings.Contains(err.Error(), "statement 2") {
		t.Fatalf("expected statement 2 failure, got %v", err)
	}
	if len(rec.execs) != 2 {
		t.Fatalf("expected execution to stop after failure, got %d execs", len(rec.execs))
	}
}
