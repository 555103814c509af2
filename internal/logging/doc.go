// Package logging provides structured logging for the obsws server.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the server. It provides both general logging functions
// and specialized functions for protocol-specific logging needs.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (envelope dumps, dispatch decisions)
//   - Info: Normal operations (sessions, broadcasts, lifecycle changes)
//   - Warn: Non-fatal issues (lifecycle misuse, skipped sends)
//   - Error: Fatal issues (startup failures, critical errors)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Session identified",
//	    zap.Uint64("session_id", 7),
//	    zap.String("remote_addr", "192.168.1.100"),
//	)
//
// # Specialized Logging
//
// The package provides domain-specific logging functions:
//
// Session Logging:
//
//	logging.LogSession(id, remoteAddr, "connected")
//	logging.LogSession(id, remoteAddr, "identified")
//	logging.LogSession(id, remoteAddr, "disconnected")
//
// Envelope Logging (debug level only):
//
//	logging.LogEnvelope(id, "received", false, payload)
//	logging.LogEnvelope(id, "sent", true, payload)
//
// # Configuration
//
// Initialize logging at server startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Output Format
//
// Logs are written to stdout in console format (human-readable):
//
//	2025-11-25T10:30:45.123-0800  INFO  Session event
//	  session_id=7
//	  remote_addr=192.168.1.100
//	  event=connected
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
