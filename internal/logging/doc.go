// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Every coordinator component receives a named child logger so that channel,
// store, dispatcher and resolver lines can be told apart:
//
//	logger := logging.NewDefault()
//	channelLog := logger.Component("channel")
//	channelLog.Info("connected", zap.String("file_id", id), zap.Uint64("generation", gen))
package logging
