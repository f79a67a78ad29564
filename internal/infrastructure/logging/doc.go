// Package logging provides structured logging using uber/zap.
//
// Two modes are available:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability (LOG_DEV=true)
//
// The logger is the operator-visible diagnostic channel: relay failures,
// failed prompt requests and sandbox script errors are reported here and
// nowhere else.
//
// Example Usage:
//
//	logger := logging.NewFromLevel(cfg.Logging.Level, cfg.Logging.Development)
//	logger.Info("Relay starting", zap.String("port", "5000"))
//	logger.Error("Upstream call failed", zap.Error(err))
package logging
