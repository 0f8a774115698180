// Package monitoring provides Prometheus metrics for the coordinator.
//
// Metrics cover the push channel (state, connects, scheduled reconnects,
// frames by type, dropped frames), the session store (reduced events,
// wholesale replacements, completed pages), control commands (calls by result,
// round-trip time), checkpoint outcomes and the observer API.
//
// Every recording method accepts a nil receiver so components can be built
// without metrics in tests.
//
// Example Usage:
//
//	metrics := monitoring.NewMetrics()
//	router.Use(monitoring.Middleware(metrics))
//	router.GET("/metrics", monitoring.Handler(metrics))
//
//	timer := monitoring.NewTimer(metrics, "pause")
//	defer timer.Stop("ok")
package monitoring
