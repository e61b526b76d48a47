// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the application.
//
// Key features:
//   - JSON and text output formats
//   - Per-target id propagation
//   - Context-aware logging
//   - Configurable log levels
//
// Example usage:
//
//	import "sentrywatch/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("daemon started", slog.String("version", "1.0"))
//	}
//
//	func checkTarget(ctx context.Context, targetID string) {
//	    logger := logging.WithTargetID(logging.FromContext(ctx), targetID)
//	    logger.Info("running check")
//	}
package logging
