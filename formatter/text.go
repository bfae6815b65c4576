package formatter

import (
	"bytes"
	"io"
	"time"

	"github.com/Philipp01105/contextlog/core"
)

const (
	// DefaultTextPattern is the pattern of a TextFormatter without configuration.
	DefaultTextPattern = "%date [%level] %message%properties%newline"
	// DefaultCallerTextPattern is used when Config.IncludeCaller is set.
	DefaultCallerTextPattern = "%date [%level] [%file:%line] %message%properties%newline"
)

// TextFormatter formats log entries as human-readable text through a
// conversion pattern. Structured messages are rendered with
// Entry.RenderedMessage.
type TextFormatter struct {
	Config
	pattern *Pattern
}

// NewTextFormatter creates a new text formatter. An invalid pattern falls
// back to the default one.
func NewTextFormatter(cfg Config) *TextFormatter {
	if cfg.TimestampFormat == "" {
		cfg.TimestampFormat = time.RFC3339
	}
	if cfg.Pattern == "" {
		cfg.Pattern = DefaultTextPattern
		if cfg.IncludeCaller {
			cfg.Pattern = DefaultCallerTextPattern
		}
	}
	p, err := ParsePattern(cfg.Pattern, WithDateLayout(cfg.TimestampFormat))
	if err != nil {
		cfg.Pattern = DefaultTextPattern
		p = MustParsePattern(DefaultTextPattern, WithDateLayout(cfg.TimestampFormat))
	}
	return &TextFormatter{Config: cfg, pattern: p}
}

// Format formats an entry as text
func (f *TextFormatter) Format(entry *core.Entry) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	f.pattern.Format(buf, entry)

	// Copy buffer content to return
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// FormatTo formats an entry and writes it directly to the writer
func (f *TextFormatter) FormatTo(entry *core.Entry, w io.Writer) error {
	buf := getBuffer()

	f.pattern.Format(buf, entry)

	_, err := w.Write(buf.Bytes())
	putBuffer(buf)
	return err
}

// FormatEntry formats an entry into the given buffer (implements BufferFormatter).
func (f *TextFormatter) FormatEntry(entry *core.Entry, buf *bytes.Buffer) error {
	f.pattern.Format(buf, entry)
	return nil
}

// Render returns the formatted entry as a string.
func (f *TextFormatter) Render(entry *core.Entry) (string, error) {
	buf := getBuffer()
	defer putBuffer(buf)
	f.pattern.Format(buf, entry)
	return buf.String(), nil
}
