// Package main is the entry point for the MangaColor coordinator.
//
// The coordinator mirrors one colorization job running on the processing
// backend, follows its push channel and exposes a local observer API.
//
// Architecture:
//
//	Observer (browser/CLI) → Coordinator → Processing backend (REST + WebSocket)
//
// The coordinator provides:
//   - Session mirror fed by pushed progress events
//   - Artifact locations for every finished page
//   - Control commands (start, pause, continue, stop, retry, trust)
//   - Startup checkpoint resolution (resume or restart)
//   - Prometheus metrics and structured logs
//
// Configuration:
//   - Optional TOML or YAML file (-config)
//   - Environment variables (12-factor)
//   - CLI flags (override both)
//
// Usage:
//
//	# Resume any checkpoint without asking
//	./coordinator -backend http://127.0.0.1:8765 -decision resume
//
//	# Development mode (colored logs, debug level)
//	./coordinator -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
