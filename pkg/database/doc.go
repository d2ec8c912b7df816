// Package database provides the SQLite dependency probed by the health
// endpoint.
//
// Both SQLite drivers are registered: "sqlite3" (github.com/mattn/go-sqlite3,
// requires cgo) and "sqlite" (modernc.org/sqlite, pure Go). Every call made
// through DB is timed and reported to a metrics.QueryRecorder as
// db_query_duration_ms{operation,model}, with failures counted in
// db_query_errors_total{operation,model,error_type}.
//
//	db, err := database.Open(&cfg.Database, httpMetrics)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	rows, err := db.QueryContext(ctx, "product", "SELECT id, name FROM products")
package database
