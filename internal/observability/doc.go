// Package observability provides structured logging and Prometheus
// metrics for the monitoring engine.
//
// Subpackages:
//   - logging: structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//
// Example usage:
//
//	import (
//	    "sentrywatch/internal/observability/logging"
//	    "sentrywatch/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("daemon started")
//
//	    metrics.RecordCheck("example.com", "changed", 1200*time.Millisecond)
//	}
package observability
