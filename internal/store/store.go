// Package store executes the warehouse catalog against a database: schema
// setup and teardown, dimension and fact inserts, and the song lookup.
//
// The store never decides what goes into a row. It binds caller-supplied
// values to the catalog's statements in column order and relies on the
// statements' IF [NOT] EXISTS and ON CONFLICT DO NOTHING clauses for
// idempotency.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver ("pgx")
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/franz/sparkify/internal/catalog"
	"github.com/franz/sparkify/internal/metrics"
	"github.com/franz/sparkify/internal/report"
	"github.com/franz/sparkify/internal/util"
)

// conn is the part of *sql.DB and *sql.Tx the store needs
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a warehouse connection bound to one catalog dialect
type Store struct {
	db      *sql.DB
	conn    conn
	cat     *catalog.Catalog
	metrics *metrics.Recorder
	events  *report.EventLogger
}

// OpenOptions holds options for opening a warehouse
type OpenOptions struct {
	Dialect catalog.Dialect // Defaults to SQLite

	// CreateSchema runs the create batch after connecting
	CreateSchema bool

	// Retry controls connection attempts; nil uses util.ConnectRetryConfig
	Retry *util.RetryConfig

	Metrics *metrics.Recorder
	Events  *report.EventLogger
}

// Open opens a SQLite warehouse at the given path with default options
func Open(ctx context.Context, path string) (*Store, error) {
	return OpenWithOptions(ctx, path, nil)
}

// OpenWithOptions opens a warehouse. dsn is a file path for SQLite and
// DuckDB (empty for an in-memory DuckDB) and a connection string for
// Postgres.
func OpenWithOptions(ctx context.Context, dsn string, opts *OpenOptions) (*Store, error) {
	if opts == nil {
		opts = &OpenOptions{}
	}
	dialect := opts.Dialect
	if dialect == "" {
		dialect = catalog.SQLite
	}

	cat, err := catalog.For(dialect)
	if err != nil {
		return nil, err
	}

	driver, source, err := driverSource(dialect, dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == catalog.SQLite {
		db.SetMaxOpenConns(1) // SQLite works best with a single writer
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	retry := opts.Retry
	if retry == nil {
		retry = util.ConnectRetryConfig()
	}
	if retry.Retryable == nil {
		cfg := *retry
		cfg.Retryable = isTransient
		retry = &cfg
	}

	err = util.Retry(ctx, retry, func(ctx context.Context) error {
		return ping(ctx, db, pingTimeout)
	}, fmt.Sprintf("connect(%s)", dialect))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect, err)
	}

	s := &Store{
		db:      db,
		conn:    db,
		cat:     cat,
		metrics: opts.Metrics,
		events:  opts.Events,
	}

	if opts.CreateSchema {
		if err := s.CreateTables(ctx, nil); err != nil {
			db.Close()
			return nil, err
		}
	}

	return s, nil
}

const pingTimeout = 5 * time.Second

// errPingTimeout marks a ping that hit its own deadline while the caller's
// context was still live. Unlike a cancelled caller it is worth retrying.
var errPingTimeout = errors.New("ping timed out")

func ping(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := db.PingContext(pingCtx)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %v", errPingTimeout, timeout)
	}
	return err
}

func driverSource(dialect catalog.Dialect, dsn string) (driver, source string, err error) {
	switch dialect {
	case catalog.SQLite:
		if strings.TrimSpace(dsn) == "" {
			return "", "", fmt.Errorf("%w: sqlite database path must not be empty", util.ErrInvalidConfig)
		}
		if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
			return "sqlite", dsn, nil
		}
		return "sqlite", fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dsn), nil
	case catalog.Postgres:
		if strings.TrimSpace(dsn) == "" {
			return "", "", fmt.Errorf("%w: postgres connection string must not be empty", util.ErrInvalidConfig)
		}
		return "pgx", dsn, nil
	case catalog.DuckDB:
		return "duckdb", dsn, nil
	}
	return "", "", fmt.Errorf("%w: %q", catalog.ErrUnknownDialect, string(dialect))
}

// isTransient extends util.IsRetryableError with Postgres server states
// that clear on their own: connection exceptions (class 08) and a server
// that is still starting (57P03). A ping that timed out on its own
// deadline is also transient.
func isTransient(err error) bool {
	if errors.Is(err, errPingTimeout) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P03"
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	return util.IsRetryableError(err)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for custom queries
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect the store speaks
func (s *Store) Dialect() catalog.Dialect {
	return s.cat.Dialect
}


// Transaction runs fn against a store bound to a single transaction.
// The transaction commits if fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txStore := *s
	txStore.conn = tx

	if err := fn(&txStore); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Version returns the database engine version string
func (s *Store) Version(ctx context.Context) (string, error) {
	var query string
	switch s.cat.Dialect {
	case catalog.SQLite:
		query = "SELECT sqlite_version()"
	case catalog.Postgres:
		query = "SHOW server_version"
	case catalog.DuckDB:
		query = "SELECT version()"
	}

	var version string
	if err := s.conn.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return "", fmt.Errorf("failed to query %s version: %w", s.cat.Dialect, err)
	}
	return version, nil
}

// CheckIntegrity runs PRAGMA integrity_check on a SQLite warehouse.
// Other engines return util.ErrUnsupported.
func (s *Store) CheckIntegrity(ctx context.Context) error {
	if s.cat.Dialect != catalog.SQLite {
		return fmt.Errorf("integrity check on %s: %w", s.cat.Dialect, util.ErrUnsupported)
	}

	var result string
	err := s.conn.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result)
	if err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}

	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}

// SQLiteVersion returns the version of the embedded SQLite library
func SQLiteVersion() string {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return ""
	}
	defer db.Close()

	var version string
	err = db.QueryRow("SELECT sqlite_version()").Scan(&version)
	if err != nil {
		return ""
	}
	return version
}
