// Package sourcedb builds throwaway sqlite source databases for tests: the
// miniature schema plus a small, internally consistent seed of markers,
// alleles, references, sequences, probes, vocabularies and recombinase
// results.
package sourcedb

import (
	"context"
	"database/sql"
	_ "embed"
	"path/filepath"
	"testing"

	"mgiindexer/internal/source"
	"mgiindexer/internal/source/sqlscript"
)

// Schema is the miniature source schema.
//
//go:embed schema.sql
var Schema string

// Seed is the default fixture data set.
//
//go:embed seed.sql
var Seed string

// NewFile creates a seeded sqlite file inside t.TempDir and returns its path.
// Extra scripts run after the seed.
func NewFile(t testing.TB, extra ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()
	for _, script := range append([]string{Schema, Seed}, extra...) {
		if err := sqlscript.Apply(ctx, db, script); err != nil {
			t.Fatalf("apply fixture: %v", err)
		}
	}
	return path
}

// Open returns a connection pool on a fresh seeded database, closed with the test.
func Open(t testing.TB, extra ...string) *sql.DB {
	t.Helper()
	path := NewFile(t, extra...)
	db, err := source.Open(context.Background(), source.Options{Driver: source.DriverSQLite, URL: path})
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Empty returns a database with the schema but no rows.
func Empty(t testing.TB) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "empty.db")
	db, err := source.Open(context.Background(), source.Options{Driver: source.DriverSQLite, URL: path})
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlscript.Apply(context.Background(), db, Schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}
