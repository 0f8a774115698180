// Package server exposes the coordinator to a local presentation layer.
//
// The observer API is a Gin router offering:
//   - Session, artifact and file queries
//   - Upload, file selection and reset
//   - Control commands and prompt updates
//   - The pending checkpoint decision and its answer
//   - A websocket (/ws) streaming store snapshots
//   - Prometheus metrics (/metrics)
//
// Middleware stack: recovery, metrics, CORS, per-client rate limiting.
//
// Example Usage:
//
//	srv := server.New(cfg, coord, logger, metrics)
//	go srv.Run()
//	defer srv.Shutdown(ctx)
package server
