// Package config provides 12-factor configuration management for the coordinator.
//
// Configuration is layered: built-in defaults, then an optional TOML or YAML
// file, then environment variables. CLI flags override all of them.
//
// Configuration Sections:
//   - Backend: Processing backend URL, HTTP timeout, retries, client rate limit
//   - Channel: Push channel keepalive, reconnect delay, handshake timeout
//   - Processing: Default step size, prompt and checkpoint decision
//   - Observer: Local observer API listen address and CORS origins
//   - Logging: Log level and output format
//   - RateLimit: Per-client rate limiting of the observer API
//
// Example Usage:
//
//	cfg, err := config.LoadFile("coordinator.toml")
//	fmt.Printf("backend %s, observer %s\n", cfg.Backend.URL, cfg.Observer.Addr())
//
// Environment Variables:
//   - BACKEND_URL, BACKEND_TIMEOUT, BACKEND_RETRIES, BACKEND_RPS
//   - CHANNEL_KEEPALIVE, CHANNEL_RECONNECT_DELAY, CHANNEL_HANDSHAKE_TIMEOUT
//   - STEP_SIZE, PROMPT, CHECKPOINT_DECISION
//   - OBSERVER_HOST, OBSERVER_PORT, CORS_ORIGINS
//   - LOG_LEVEL, LOG_DEV, LOG_OUTPUT
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
