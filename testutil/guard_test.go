package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordingT struct {
	msg string
}

func (r *recordingT) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		pred func(string) bool
		in   string
		want bool
	}{
		{InternalImportForbidden, "mgiindexer/internal/lookup", true},
		{InternalImportForbidden, "mgiindexer/pkg/smartalpha", false},
		{InfraImportForbidden, "mgiindexer/internal/infra/index/solr", true},
		{InfraImportForbidden, "github.com/aws/aws-sdk-go-v2/service/s3", true},
		{InfraImportForbidden, "mgiindexer/internal/sink", false},
		{DriverImportForbidden, "github.com/jackc/pgx/v5/stdlib", true},
		{DriverImportForbidden, "modernc.org/sqlite", true},
		{DriverImportForbidden, "database/sql", false},
		{Any(DriverImportForbidden, InfraImportForbidden), "modernc.org/sqlite", true},
		{Any(), "fmt", false},
	}
	for _, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Fatalf("predicate(%q) = %v want %v", c.in, got, c.want)
		}
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package tmp\nimport (\n\t\"fmt\"\n\t\"modernc.org/sqlite\"\n)\nvar _ = fmt.Sprint\nvar _ sqlite.Driver\n")
	writeFile(t, dir, "a_test.go", "package tmp\nimport _ \"github.com/jackc/pgx/v5/stdlib\"\n")
	writeFile(t, dir, "notes.txt", "import \"github.com/aws/aws-sdk-go-v2\"")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "sub"), "b.go", "package sub\nimport _ \"github.com/jackc/pgx/v5/stdlib\"\n")

	viols, err := directImportViolations(dir, DriverImportForbidden)
	if err != nil {
		t.Fatalf("violations: %v", err)
	}
	if len(viols) != 1 || viols[0] != "modernc.org/sqlite (in a.go)" {
		t.Fatalf("unexpected violations: %v", viols)
	}

	rt := &recordingT{}
	failIfViolations(rt, "forbidden direct imports", "drivers", viols)
	if !strings.Contains(rt.msg, "modernc.org/sqlite (in a.go)") || !strings.Contains(rt.msg, "drivers") {
		t.Fatalf("unexpected failure message: %q", rt.msg)
	}
}

func TestDirectImportViolationsErrors(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), InternalImportForbidden); err == nil {
		t.Fatal("expected error for missing dir")
	}
	dir := t.TempDir()
	writeFile(t, dir, "bad.go", "package")
	if _, err := directImportViolations(dir, InternalImportForbidden); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAssertNoDirectImportsClean(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.go", "package tmp\nimport \"fmt\"\nfunc X() { fmt.Println(1) }\n")
	AssertNoDirectImports(t, dir, InternalImportForbidden, "none")
}

func TestTransitiveDependencyViolations(t *testing.T) {
	old := goListDeps
	t.Cleanup(func() { goListDeps = old })

	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\nmgiindexer/pkg/smartalpha\n\nmgiindexer/internal/lookup\n"), nil
	}
	viols, _, err := transitiveDependencyViolations("./...", InternalImportForbidden)
	if err != nil {
		t.Fatalf("violations: %v", err)
	}
	if len(viols) != 1 || viols[0] != "mgiindexer/internal/lookup" {
		t.Fatalf("unexpected violations: %v", viols)
	}

	goListDeps = func(string) ([]byte, error) { return []byte("boom"), errors.New("exit 1") }
	if _, out, err := transitiveDependencyViolations("./...", InternalImportForbidden); err == nil || string(out) != "boom" {
		t.Fatalf("expected go list failure, got %v %q", err, out)
	}
}

func TestFailIfViolationsQuietWhenClean(t *testing.T) {
	rt := &recordingT{}
	failIfViolations(rt, "forbidden transitive dependency", "none", nil)
	if rt.msg != "" {
		t.Fatalf("unexpected failure: %q", rt.msg)
	}
}
