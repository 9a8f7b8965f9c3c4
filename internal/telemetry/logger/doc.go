// Package logger builds the daemon's *slog.Logger.
//
// Loggers from New share one level, which SetLevel changes at runtime,
// redact credentials and guard codes, and add the request ID carried by a
// record's context.
package logger
