// Package handler provides the Handler interface and its built-in
// implementations for delivering formatted log entries.
//
// Handlers are synchronous: Handle formats the entry with the configured
// formatter.Formatter and writes it before returning, holding a mutex
// only around the write so each entry is one contiguous chunk of output.
// Formatters implementing formatter.BufferFormatter are fed a pooled
// buffer; formatter.WriterFormatter and plain Formatter are used
// otherwise.
//
// Built-in handlers:
//
//   - ConsoleHandler writes to any io.Writer (default: stdout).
//   - FileHandler writes to a file through lumberjack, which rotates by
//     size and removes old backups by count and age.
//   - MultiHandler fans out a single entry to multiple child handlers and
//     reports every child failure.
//   - SlogHandler adapts the Handler interface to log/slog.Handler, so
//     the standard library logger can feed any handler.
//
// Failed formats and writes are returned to the caller, counted in Stats
// and reported as warnings on the handler's zap diagnostics logger.
package handler
