// Package log provides bee's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Records flow through a log/slog handler
// into a Formatter (text or JSON) and one or more Outputs. Loggers derived
// with With share their parent's level, formatter and outputs.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("lease"), log.Str("token", tok))
//	l.Info("acquired lease", log.Dur("ttl", ttl))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config. Redact masks
// sensitive keys such as store passwords; sampling keeps per-cycle debug
// records from flooding the output.
//
// # Interop
//
// RedirectStdLog routes the standard library logger (used by Pebble and the
// Redis client) through a Logger.
package log
