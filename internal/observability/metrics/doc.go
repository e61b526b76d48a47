// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - Check pipeline metrics (runs, errors, duration, diff size)
//   - Change and notification metrics by target and channel
//   - Reasoning-agent invocation metrics
//   - Rate limiter and embedded store metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "sentrywatch/internal/observability/metrics"
//
//	func checkTarget(targetID string) {
//	    start := time.Now()
//	    // ... run the check pipeline ...
//	    metrics.RecordCheck(targetID, "changed", time.Since(start))
//	}
package metrics
