// Package logging builds the gateway's structured logger on top of log/slog.
//
// Three output formats are supported: json for production, text for
// key=value pipelines and console for colorized local development. Records
// logged through a *Context method pick up the request ID stored with
// WithRequestID, and attributes named like credentials are replaced with
// a placeholder before they are written.
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//		return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	slog.InfoContext(ctx, "routing decision", "target", "weather")
package logging
