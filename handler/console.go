package handler

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Philipp01105/contextlog/core"
	"github.com/Philipp01105/contextlog/formatter"
)

// ConsoleHandler writes log entries to stdout/stderr or any other writer.
// Entries are formatted and written on the calling goroutine.
type ConsoleHandler struct {
	*entryWriter
	closer io.Closer
}

// ConsoleConfig holds configuration for console handler
type ConsoleConfig struct {
	// Writer to write to (default: os.Stdout)
	Writer io.Writer
	// Formatter to use (default: TextFormatter)
	Formatter formatter.Formatter
	// Diagnostics receives write failures (default: zap.L())
	Diagnostics *zap.Logger
	// CloseWriter closes Writer on Close when it implements io.Closer
	CloseWriter bool
}

// NewConsoleHandler creates a new console handler
func NewConsoleHandler(cfg ConsoleConfig) *ConsoleHandler {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.Diagnostics == nil {
		cfg.Diagnostics = zap.L()
	}

	h := &ConsoleHandler{
		entryWriter: newEntryWriter(cfg.Writer, cfg.Formatter, cfg.Diagnostics.Named("console")),
	}
	if c, ok := cfg.Writer.(io.Closer); ok && cfg.CloseWriter {
		h.closer = c
	}
	return h
}

// Handle processes a log entry
func (h *ConsoleHandler) Handle(entry *core.Entry) error {
	return h.write(entry)
}

// CanRecycleEntry returns true: the entry is no longer referenced once
// Handle returns.
func (h *ConsoleHandler) CanRecycleEntry() bool {
	return true
}

// Stats returns a snapshot of the current statistics
func (h *ConsoleHandler) Stats() Snapshot {
	return h.stats.GetSnapshot()
}

// Close closes the underlying writer if the handler owns it
func (h *ConsoleHandler) Close() error {
	if h.closer == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closer.Close()
}
