package handler

import (
	"bytes"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/Philipp01105/contextlog/core"
	"github.com/Philipp01105/contextlog/formatter"
)

// entryWriter formats entries and writes them to an io.Writer under a
// mutex, so every entry lands as one contiguous write.
type entryWriter struct {
	out             io.Writer
	formatter       formatter.Formatter
	bufferFormatter formatter.BufferFormatter
	writerFormatter formatter.WriterFormatter
	mu              sync.Mutex
	stats           *Stats
	log             *zap.Logger
}

func newEntryWriter(out io.Writer, f formatter.Formatter, log *zap.Logger) *entryWriter {
	if f == nil {
		f = formatter.NewTextFormatter(formatter.Config{})
	}
	if log == nil {
		log = zap.L()
	}
	w := &entryWriter{
		out:       out,
		formatter: f,
		stats:     NewStats(),
		log:       log,
	}
	// Cache the optional interfaces for the allocation-free paths
	w.bufferFormatter, _ = f.(formatter.BufferFormatter)
	w.writerFormatter, _ = f.(formatter.WriterFormatter)
	return w
}

var bufferPool = sync.Pool{
	New: func() interface{} {
		b := new(bytes.Buffer)
		b.Grow(512)
		return b
	},
}

func (w *entryWriter) write(entry *core.Entry) error {
	if entry == nil {
		return formatter.ErrNilEntry
	}

	if w.bufferFormatter != nil {
		buf := bufferPool.Get().(*bytes.Buffer)
		buf.Reset()
		defer func() {
			if buf.Cap() <= 64*1024 {
				bufferPool.Put(buf)
			}
		}()
		if err := w.bufferFormatter.FormatEntry(entry, buf); err != nil {
			return w.fail(entry, "format", err)
		}
		w.mu.Lock()
		n, err := w.out.Write(buf.Bytes())
		w.mu.Unlock()
		return w.done(entry, n, err)
	}

	if w.writerFormatter != nil {
		cw := countingWriter{w: w.out}
		w.mu.Lock()
		err := w.writerFormatter.FormatTo(entry, &cw)
		w.mu.Unlock()
		return w.done(entry, cw.n, err)
	}

	data, err := w.formatter.Format(entry)
	if err != nil {
		return w.fail(entry, "format", err)
	}
	w.mu.Lock()
	n, err := w.out.Write(data)
	w.mu.Unlock()
	return w.done(entry, n, err)
}

func (w *entryWriter) done(entry *core.Entry, n int, err error) error {
	if err != nil {
		return w.fail(entry, "write", err)
	}
	w.stats.IncrementProcessed(entry.Level, n)
	return nil
}

func (w *entryWriter) fail(entry *core.Entry, stage string, err error) error {
	w.stats.IncrementFailed()
	w.log.Warn("log entry dropped",
		zap.String("stage", stage),
		zap.Stringer("level", entry.Level),
		zap.String("logger", entry.LoggerName),
		zap.Error(err),
	)
	return err
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
