// Package log provides structured logging for InSOC components.
//
// Loggers are constructed explicitly and passed by dependency injection;
// there is no package-level default. Output goes through a formatter
// (text or JSON) to one or more outputs, and a log/slog bridge lets
// stdlib log users (Pebble among them) write through the same pipeline.
//
// Example:
//
//	logger := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	)
//	logger = logger.With(log.Component("ingest"))
//	logger.Info("batch stored", log.Int("inserted", n), log.Int64("last_id", id))
package log
