package handler

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Philipp01105/contextlog/core"
	"github.com/Philipp01105/contextlog/formatter"
)

// FileHandler writes log entries to a file with size based rotation and
// backup cleanup.
type FileHandler struct {
	*entryWriter
	file *lumberjack.Logger
}

// FileConfig holds configuration for file handler
type FileConfig struct {
	// Filename is the path to the log file
	Filename string
	// Formatter to use (default: TextFormatter)
	Formatter formatter.Formatter
	// MaxSizeMB is the size in megabytes before rotation (default: 100)
	MaxSizeMB int
	// MaxBackups is the maximum number of old log files to retain (0 = keep all)
	MaxBackups int
	// MaxAgeDays removes backups older than this many days (0 = keep all)
	MaxAgeDays int
	// Compress gzips rotated files
	Compress bool
	// LocalTime uses local time in backup file names instead of UTC
	LocalTime bool
	// Diagnostics receives write failures (default: zap.L())
	Diagnostics *zap.Logger
}

// NewFileHandler creates a new file handler. The directory is created if
// needed; the file itself is opened on the first write.
func NewFileHandler(cfg FileConfig) (*FileHandler, error) {
	if cfg.Filename == "" {
		return nil, fmt.Errorf("filename is required")
	}
	if cfg.Diagnostics == nil {
		cfg.Diagnostics = zap.L()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Filename), 0755); err != nil {
		return nil, err
	}

	file := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  cfg.LocalTime,
	}
	log := cfg.Diagnostics.Named("file").With(zap.String("filename", cfg.Filename))
	return &FileHandler{
		entryWriter: newEntryWriter(file, cfg.Formatter, log),
		file:        file,
	}, nil
}

// Handle processes a log entry
func (h *FileHandler) Handle(entry *core.Entry) error {
	return h.write(entry)
}

// CanRecycleEntry returns true: the entry is no longer referenced once
// Handle returns.
func (h *FileHandler) CanRecycleEntry() bool {
	return true
}

// Rotate closes the current file, moves it aside with a timestamp suffix
// and opens a new one.
func (h *FileHandler) Rotate() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.file.Rotate()
}

// Stats returns a snapshot of the current statistics
func (h *FileHandler) Stats() Snapshot {
	return h.stats.GetSnapshot()
}

// Close closes the file
func (h *FileHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.file.Close()
}
