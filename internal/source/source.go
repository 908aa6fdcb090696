// Package source opens the read-only relational database the indexers
// extract from and provides the small query helpers every job shares.
//
// Two drivers are registered: pgx for the production Postgres database and
// the pure-Go sqlite driver for local snapshots and tests.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// Driver identifies a database/sql driver supported by the indexers.
type Driver string

const (
	DriverPostgres Driver = "postgres" // PostgreSQL through pgx
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
)

// sqlDriverName maps a Driver onto the name registered with database/sql.
func (d Driver) sqlDriverName() string {
	switch d {
	case DriverPostgres:
		return "pgx"
	case DriverSQLite:
		return "sqlite"
	}
	return string(d)
}

// Options carries the externally supplied connection settings.
type Options struct {
	Driver   Driver // empty selects by URL scheme
	URL      string // postgres://, jdbc:postgresql://, sqlite path or file: URI
	User     string
	Password string
}

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen swaps the sql.Open implementation, returning a restore func.
// Tests use it to inject stub drivers.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}

// Open connects to the source database and verifies the connection. Any
// failure here is a startup error: the caller should exit.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	driver, dsn, err := opts.Resolve()
	if err != nil {
		return nil, err
	}
	openMu.Lock()
	db, err := sqlOpen(driver.sqlDriverName(), dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// Resolve picks the driver and builds the DSN. JDBC-style URLs are accepted
// so legacy property files keep working; User and Password are injected
// into Postgres URLs that do not already carry credentials.
func (o Options) Resolve() (Driver, string, error) {
	raw := strings.TrimSpace(o.URL)
	if raw == "" {
		return "", "", fmt.Errorf("database url required")
	}
	raw = strings.TrimPrefix(raw, "jdbc:")
	driver := o.Driver
	if driver == "" {
		var err error
		if driver, err = detectDriver(raw); err != nil {
			return "", "", err
		}
	}
	switch driver {
	case DriverPostgres:
		dsn, err := postgresDSN(raw, o.User, o.Password)
		return driver, dsn, err
	case DriverSQLite:
		return driver, strings.TrimPrefix(raw, "sqlite:"), nil
	default:
		return "", "", fmt.Errorf("unknown database driver %q", driver)
	}
}

// detectDriver picks the driver from the URL scheme. Anything without a
// "scheme://" prefix is a sqlite file path.
func detectDriver(raw string) (Driver, error) {
	scheme, _, ok := strings.Cut(raw, "://")
	if !ok {
		return DriverSQLite, nil
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return DriverPostgres, nil
	case "sqlite", "file":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unknown database url scheme %q", scheme)
	}
}

func postgresDSN(raw, user, password string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	u.Scheme = "postgres"
	if u.User == nil && user != "" {
		if password != "" {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String(), nil
}

// Redact returns the DSN with any password masked, for logging.
func Redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
