package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/beacon/pkg/config"
)

type queryCall struct {
	operation string
	model     string
	errorType string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []queryCall
}

func (r *fakeRecorder) RecordDatabaseQuery(operation, model string, duration time.Duration, errorType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, queryCall{operation, model, errorType})
}

func (r *fakeRecorder) last() queryCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return queryCall{}
	}
	return r.calls[len(r.calls)-1]
}

func testConfig(t *testing.T, driver string) *config.DatabaseConfig {
	t.Helper()
	cfg := config.NewDefault().Database
	cfg.Driver = driver
	cfg.Path = filepath.Join(t.TempDir(), "nested", "beacon.db")
	return &cfg
}

func openTestDB(t *testing.T, driver string) (*DB, *fakeRecorder) {
	t.Helper()
	rec := &fakeRecorder{}
	db, err := Open(testConfig(t, driver), rec)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, rec
}

// TestDB_Ping tests the health round trip on the pure Go driver.
func TestDB_Ping(t *testing.T) {
	db, rec := openTestDB(t, "sqlite")

	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if got := rec.last(); got != (queryCall{"select", HealthModel, ""}) {
		t.Errorf("recorded %+v", got)
	}
}

// TestDB_QueryRecording tests that each call is recorded with its
// operation, model and error type.
func TestDB_QueryRecording(t *testing.T) {
	db, rec := openTestDB(t, "sqlite")
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "product", "CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := rec.last(); got != (queryCall{"create", "product", ""}) {
		t.Errorf("recorded %+v", got)
	}

	if _, err := db.ExecContext(ctx, "product", "INSERT INTO products (name) VALUES (?)", "lamp"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var name string
	if err := db.QueryRowScan(ctx, "product", "SELECT name FROM products WHERE id = ?", []any{1}, &name); err != nil {
		t.Fatalf("select: %v", err)
	}
	if name != "lamp" {
		t.Errorf("name = %q, want lamp", name)
	}

	err := db.QueryRowScan(ctx, "product", "SELECT name FROM products WHERE id = ?", []any{42}, &name)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
	if got := rec.last(); got != (queryCall{"select", "product", ErrorTypeNoRows}) {
		t.Errorf("recorded %+v", got)
	}

	rows, err := db.QueryContext(ctx, "category", "SELECT * FROM categories")
	if err == nil {
		rows.Close()
		t.Fatal("expected error for missing table")
	}
	if got := rec.last(); got != (queryCall{"select", "category", ErrorTypeQuery}) {
		t.Errorf("recorded %+v", got)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := db.ExecContext(canceled, "product", "DELETE FROM products"); err == nil {
		t.Fatal("expected error for canceled context")
	}
	if got := rec.last(); got.errorType != ErrorTypeCanceled {
		t.Errorf("error type = %q, want %q", got.errorType, ErrorTypeCanceled)
	}
}

// TestDB_CgoDriver tests the mattn driver when the binary was built with cgo.
func TestDB_CgoDriver(t *testing.T) {
	db, _ := openTestDB(t, "sqlite3")
	if err := db.Ping(context.Background()); err != nil {
		if strings.Contains(err.Error(), "CGO_ENABLED=0") {
			t.Skip("go-sqlite3 requires cgo")
		}
		t.Fatalf("Ping: %v", err)
	}
}

func TestDB_NilRecorder(t *testing.T) {
	db, err := Open(testConfig(t, "sqlite"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestOpen_NilConfig(t *testing.T) {
	_, err := Open(nil, nil)
	var storageErr *StorageError
	if !errors.As(err, &storageErr) || storageErr.Operation != "open" {
		t.Errorf("err = %v, want StorageError for open", err)
	}
}

func TestDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{Path: "data/x.db", BusyTimeout: 2 * time.Second, WALMode: true}

	cfg.Driver = "sqlite"
	if got, want := dsn(cfg), "file:data/x.db?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)"; got != want {
		t.Errorf("dsn(sqlite) = %q, want %q", got, want)
	}

	cfg.Driver = "sqlite3"
	cfg.WALMode = false
	if got, want := dsn(cfg), "file:data/x.db?_busy_timeout=2000"; got != want {
		t.Errorf("dsn(sqlite3) = %q, want %q", got, want)
	}
}

func TestOperation(t *testing.T) {
	tests := map[string]string{
		"SELECT 1":                      "select",
		"  insert into t values (1)":    "insert",
		"UPDATE t SET a = 1":            "update",
		"WITH x AS (SELECT 1) SELECT 1": "with",
		"":                              "unknown",
	}
	for query, want := range tests {
		if got := Operation(query); got != want {
			t.Errorf("Operation(%q) = %q, want %q", query, got, want)
		}
	}
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{context.DeadlineExceeded, ErrorTypeTimeout},
		{NewStorageError("sqlite", "ping", context.Canceled), ErrorTypeCanceled},
		{sql.ErrNoRows, ErrorTypeNoRows},
		{errors.New("syntax error"), ErrorTypeQuery},
	}
	for _, tt := range tests {
		if got := ErrorType(tt.err); got != tt.want {
			t.Errorf("ErrorType(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
