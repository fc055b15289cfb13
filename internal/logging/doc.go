// Package logging provides structured logging for the sensordash tools.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns shared by the display unit, the hub and the sensor node.
//
// # Log Levels
//
//   - Debug: Serial lines, raw bytes, buffer overflows
//   - Info: Connections, commands applied, readings posted
//   - Warn: Rejected commands, failed sends that will be retried
//   - Error: Startup failures, transport errors
//
// # Structured Logging
//
//	logging.Info("Reading posted",
//	    zap.String("url", url),
//	    zap.Int("status", resp.StatusCode),
//	)
//
// # Configuration
//
// The level comes from the --log-level flag or the SENSORDASH_LOG_LEVEL
// environment variable. When neither is set the logger is a no-op so that
// curated CLI output is not interleaved with log lines.
//
//	if err := logging.Initialize(logLevel); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// Logs go to stderr; stdout is reserved for command output and, for the
// display emulator, the terminal UI.
package logging
