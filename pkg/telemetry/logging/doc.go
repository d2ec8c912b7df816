// Package logging provides structured logging for beacon.
//
// # Overview
//
// The logging package wraps log/slog to provide:
//   - JSON, text and console output formats
//   - A level that can be changed at runtime (config hot reload)
//   - Request and trace identifiers taken from the record's context
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger.Slog())
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	slog.InfoContext(ctx, "processing")  // includes request_id
//
// Components derive their own logger with
// slog.Default().With("component", "<name>").
package logging
