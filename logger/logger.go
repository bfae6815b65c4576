package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/Philipp01105/contextlog/core"
	"github.com/Philipp01105/contextlog/handler"
)

// osExit is a variable to allow overriding os.Exit in tests
var osExit = os.Exit

// Logger is the main logging interface (immutable)
type Logger struct {
	handler       handler.Handler
	level         core.Level
	name          string
	fields        []core.Field
	identity      string
	domain        string
	includeCaller bool
	callerSkip    int
	recycleEntry  bool
	threadNames   bool
	now           func() time.Time
}

// Builder provides a fluent API for building Logger instances
type Builder struct {
	handler       handler.Handler
	level         core.Level
	name          string
	fields        []core.Field
	identity      string
	domain        string
	includeCaller bool
	callerSkip    int
	recycleEntry  bool
	threadNames   bool
	coarseClock   bool
}

// NewBuilder creates a new logger builder
func NewBuilder() *Builder {
	return &Builder{
		level:       core.InfoLevel, // Default level
		callerSkip:  3,              // Default skip for getCaller
		threadNames: true,
	}
}

// WithHandler sets the handler
func (b *Builder) WithHandler(h handler.Handler) *Builder {
	b.handler = h
	// Pre-compute recycleEntry to avoid interface assertion per entry
	rc, ok := h.(handler.Recycler)
	b.recycleEntry = ok && rc.CanRecycleEntry()
	return b
}

// WithLevel sets the log level
func (b *Builder) WithLevel(level core.Level) *Builder {
	b.level = level
	return b
}

// WithName sets the logger name attached to every entry
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithFields adds default fields to all log entries
func (b *Builder) WithFields(fields ...core.Field) *Builder {
	b.fields = append(b.fields, fields...)
	return b
}

// WithIdentity sets the identity and domain attached to every entry
func (b *Builder) WithIdentity(identity, domain string) *Builder {
	b.identity = identity
	b.domain = domain
	return b
}

// WithCaller enables caller information
func (b *Builder) WithCaller(enabled bool) *Builder {
	b.includeCaller = enabled
	return b
}

// WithThreadNames toggles recording the calling goroutine id as the
// entry's thread name (default: enabled)
func (b *Builder) WithThreadNames(enabled bool) *Builder {
	b.threadNames = enabled
	return b
}

// WithCoarseClock timestamps entries with the shared coarse clock instead
// of calling time.Now for each entry
func (b *Builder) WithCoarseClock(enabled bool) *Builder {
	b.coarseClock = enabled
	return b
}

// Build creates the Logger instance
func (b *Builder) Build() *Logger {
	now := time.Now
	if b.coarseClock {
		core.StartCoarseClock()
		now = core.CoarseNow
	}
	return &Logger{
		handler:       b.handler,
		level:         b.level,
		name:          b.name,
		fields:        append([]core.Field(nil), b.fields...),
		identity:      b.identity,
		domain:        b.domain,
		includeCaller: b.includeCaller,
		callerSkip:    b.callerSkip,
		recycleEntry:  b.recycleEntry,
		threadNames:   b.threadNames,
		now:           now,
	}
}

// With creates a new Logger with additional fields (immutable operation)
func (l *Logger) With(fields ...core.Field) *Logger {
	newFields := make([]core.Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)

	child := *l
	child.fields = newFields
	return &child
}

// Named creates a child Logger whose name is the parent's name with name
// appended, separated by a dot
func (l *Logger) Named(name string) *Logger {
	child := *l
	switch {
	case name == "":
	case l.name == "":
		child.name = name
	default:
		child.name = l.name + "." + name
	}
	return &child
}

// Name returns the logger name
func (l *Logger) Name() string {
	return l.name
}

// Enabled reports whether entries at level are handled
func (l *Logger) Enabled(level core.Level) bool {
	return level >= l.level && l.handler != nil
}

// Log logs a message at the specified level. msg is either text or any
// value a structured formatter can serialize.
func (l *Logger) Log(level core.Level, msg any, fields ...core.Field) {
	// Level check optimization - exit early BEFORE any allocations
	if level < l.level {
		return
	}

	l.log(level, msg, fields)
}

// log is the internal logging method that takes a pre-allocated slice
func (l *Logger) log(level core.Level, msg any, fields []core.Field) {
	// Handler check - exit if no handler (avoid any work)
	if l.handler == nil {
		return
	}

	// Get entry from pool AFTER level check
	entry := core.GetEntry()
	entry.Time = l.now()
	entry.Level = level
	entry.Message = msg
	entry.LoggerName = l.name
	entry.Identity = l.identity
	entry.Domain = l.domain
	if l.threadNames {
		entry.ThreadName = core.ThreadName()
	}

	// Add logger's default fields
	if len(l.fields) > 0 {
		entry.Properties = append(entry.Properties, l.fields...)
	}

	// Add provided fields
	if len(fields) > 0 {
		entry.Properties = append(entry.Properties, fields...)
	}

	// The first error field becomes the entry's exception
	for i := range entry.Properties {
		if err := entry.Properties[i].Error(); err != nil {
			entry.Exception = err
			break
		}
	}

	if l.includeCaller {
		entry.Caller = core.GetCaller(l.callerSkip)
	}

	err := l.handler.Handle(entry)
	if err != nil {
		return
	}

	// Return entry to pool if handler supports it
	if l.recycleEntry {
		core.PutEntry(entry)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg any, fields ...core.Field) {
	if core.DebugLevel < l.level {
		return
	}
	l.log(core.DebugLevel, msg, fields)
}

// Info logs an info message
func (l *Logger) Info(msg any, fields ...core.Field) {
	if core.InfoLevel < l.level {
		return
	}
	l.log(core.InfoLevel, msg, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(msg any, fields ...core.Field) {
	if core.WarnLevel < l.level {
		return
	}
	l.log(core.WarnLevel, msg, fields)
}

// Error logs an error message
func (l *Logger) Error(msg any, fields ...core.Field) {
	if core.ErrorLevel < l.level {
		return
	}
	l.log(core.ErrorLevel, msg, fields)
}

// Fatal logs a fatal message and exits the program with os.Exit(1)
func (l *Logger) Fatal(msg any, fields ...core.Field) {
	l.log(core.FatalLevel, msg, fields)
	osExit(1)
}

// Panic logs a panic message and panics
func (l *Logger) Panic(msg any, fields ...core.Field) {
	l.log(core.PanicLevel, msg, fields)
	panic(msg)
}

// Debugf logs a debug message with formatting
func (l *Logger) Debugf(format string, args ...interface{}) {
	if core.DebugLevel < l.level {
		return
	}
	l.log(core.DebugLevel, fmt.Sprintf(format, args...), nil)
}

// Infof logs an info message with formatting
func (l *Logger) Infof(format string, args ...interface{}) {
	if core.InfoLevel < l.level {
		return
	}
	l.log(core.InfoLevel, fmt.Sprintf(format, args...), nil)
}

// Warnf logs a warning message with formatting
func (l *Logger) Warnf(format string, args ...interface{}) {
	if core.WarnLevel < l.level {
		return
	}
	l.log(core.WarnLevel, fmt.Sprintf(format, args...), nil)
}

// Errorf logs an error message with formatting
func (l *Logger) Errorf(format string, args ...interface{}) {
	if core.ErrorLevel < l.level {
		return
	}
	l.log(core.ErrorLevel, fmt.Sprintf(format, args...), nil)
}

// Fatalf logs a fatal message with formatting and exits the program with os.Exit(1)
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.log(core.FatalLevel, fmt.Sprintf(format, args...), nil)
	osExit(1)
}

// Panicf logs a panic message with formatting and panics
func (l *Logger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.log(core.PanicLevel, msg, nil)
	panic(msg)
}

// Close closes the logger's handler
func (l *Logger) Close() error {
	if l.handler != nil {
		return l.handler.Close()
	}
	return nil
}
