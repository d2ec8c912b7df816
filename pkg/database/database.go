package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)

	"storefront/beacon/pkg/config"
	"storefront/beacon/pkg/telemetry/metrics"
)

const (
	backendName = "sqlite"

	// HealthModel is the model label of health probe queries.
	HealthModel = "health"
)

// DB is a SQLite handle whose queries are timed into a QueryRecorder.
type DB struct {
	db       *sql.DB
	config   *config.DatabaseConfig
	recorder metrics.QueryRecorder
	logger   *slog.Logger
}

// Open opens the SQLite database described by cfg. recorder may be nil.
// The connection is established lazily, so an unreachable database is
// reported by Ping rather than by Open.
func Open(cfg *config.DatabaseConfig, recorder metrics.QueryRecorder) (*DB, error) {
	if cfg == nil {
		return nil, NewStorageError(backendName, "open", fmt.Errorf("database config is nil"))
	}

	logger := slog.Default().With("component", "database.sqlite")

	if dir := filepath.Dir(cfg.Path); !isMemory(cfg.Path) && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewStorageError(backendName, "create_dir", err)
		}
	}

	db, err := sql.Open(cfg.Driver, dsn(cfg))
	if err != nil {
		return nil, NewStorageError(backendName, "open", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	logger.Info("SQLite database opened",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)

	return &DB{
		db:       db,
		config:   cfg,
		recorder: recorder,
		logger:   logger,
	}, nil
}

// dsn builds the driver-specific connection string. Pragmas go in the DSN
// so every pooled connection gets them.
func dsn(cfg *config.DatabaseConfig) string {
	busyMs := cfg.BusyTimeout.Milliseconds()

	var params []string
	switch cfg.Driver {
	case "sqlite3":
		params = append(params, fmt.Sprintf("_busy_timeout=%d", busyMs))
		if cfg.WALMode {
			params = append(params, "_journal_mode=WAL")
		}
	default:
		params = append(params, fmt.Sprintf("_pragma=busy_timeout(%d)", busyMs))
		if cfg.WALMode {
			params = append(params, "_pragma=journal_mode(WAL)")
		}
	}

	return "file:" + cfg.Path + "?" + strings.Join(params, "&")
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// Ping runs SELECT 1 against the database. It implements health.Pinger.
func (d *DB) Ping(ctx context.Context) error {
	var one int
	start := time.Now()
	err := d.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	d.record("select", HealthModel, start, err)
	if err != nil {
		return NewStorageError(backendName, "ping", err)
	}
	return nil
}

// ExecContext executes a statement on behalf of model.
func (d *DB) ExecContext(ctx context.Context, model, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := d.db.ExecContext(ctx, query, args...)
	d.record(Operation(query), model, start, err)
	return res, err
}

// QueryContext runs a query on behalf of model.
func (d *DB) QueryContext(ctx context.Context, model, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := d.db.QueryContext(ctx, query, args...)
	d.record(Operation(query), model, start, err)
	return rows, err
}

// QueryRowScan runs a single-row query on behalf of model and scans it
// into dest. Scanning is part of the timed call so that sql.ErrNoRows is
// recorded.
func (d *DB) QueryRowScan(ctx context.Context, model, query string, args []any, dest ...any) error {
	start := time.Now()
	err := d.db.QueryRowContext(ctx, query, args...).Scan(dest...)
	d.record(Operation(query), model, start, err)
	return err
}

func (d *DB) record(operation, model string, start time.Time, err error) {
	if d.recorder == nil {
		return
	}
	d.recorder.RecordDatabaseQuery(operation, model, time.Since(start), ErrorType(err))
}

// SQL returns the underlying handle.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Close closes the database.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return NewStorageError(backendName, "close", err)
	}
	d.logger.Info("SQLite database closed")
	return nil
}

// Operation returns the lower-cased leading keyword of a statement, such as
// "select" or "insert", for use as the operation label.
func Operation(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "unknown"
	}
	op := strings.ToLower(strings.TrimRight(fields[0], "(;"))
	if op == "" {
		return "unknown"
	}
	return op
}
