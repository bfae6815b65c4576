package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Philipp01105/contextlog/core"
)

var (
	// ErrNilWriter is returned when FormatTo is called without a writer.
	ErrNilWriter = errors.New("formatter: nil writer")
	// ErrNilEntry is returned when a nil entry is formatted.
	ErrNilEntry = errors.New("formatter: nil entry")
)

// Options configure a JSONLayout. Zero values inherit from Defaults.
type Options struct {
	// DateTimeFormat is a Go layout or a .NET-style pattern.
	DateTimeFormat string
	LoopHandling   LoopHandling
	// SkippedProperties is a comma-separated list of field names.
	SkippedProperties string
	Style             Style
	Scope             Scope
	// ConversionPattern is the envelope used in ScopeMessage.
	ConversionPattern string
	// TypeConverters and ContractResolvers are registry locators,
	// applied in order.
	TypeConverters    []string
	ContractResolvers []string

	// Registry resolves locators (nil for DefaultRegistry()).
	Registry *Registry
	// Defaults supply unset options (nil for StandardSettings()).
	Defaults *Settings
	// Diagnostics receives configuration warnings (nil for zap.L()).
	Diagnostics *zap.Logger
	// Process is attached to full records (nil for core.Process()).
	Process *core.ProcessContext
}

// layoutState is what a format call reads: one policy plus the style and
// scope resolved with it.
type layoutState struct {
	policy  *Policy
	style   Style
	scope   Scope
	pattern *Pattern
}

// JSONLayout serializes entries to JSON. In ScopeRecord each entry becomes
// one JSON object per line; in ScopeMessage only the message is serialized
// and then rendered through the conversion pattern.
//
// The serialization policy is built lazily on first use and reused until
// UpdateSettings is called. JSONLayout is safe for concurrent use.
type JSONLayout struct {
	opts     Options
	defaults *Settings
	registry *Registry
	log      *zap.Logger
	process  *core.ProcessContext
	// pattern is set when Options.ConversionPattern was given
	pattern *Pattern

	mu    sync.Mutex
	state atomic.Pointer[layoutState]
	stats Stats
}

// NewJSONLayout creates a layout. An explicit conversion pattern is parsed
// here; the policy, and a pattern taken from Defaults, are built on first
// use.
func NewJSONLayout(opts Options) (*JSONLayout, error) {
	l := &JSONLayout{
		opts:     opts,
		defaults: opts.Defaults,
		registry: opts.Registry,
		log:      opts.Diagnostics,
		process:  opts.Process,
	}
	if l.defaults == nil {
		l.defaults = StandardSettings()
	}
	if l.registry == nil {
		l.registry = DefaultRegistry()
	}
	if l.log == nil {
		l.log = zap.L()
	}
	l.log = l.log.Named("jsonlayout")
	if l.process == nil {
		l.process = core.Process()
	}

	if opts.ConversionPattern != "" {
		p, err := ParsePattern(opts.ConversionPattern)
		if err != nil {
			return nil, err
		}
		l.pattern = p
	}
	return l, nil
}

// MustJSONLayout is like NewJSONLayout but panics on error.
func MustJSONLayout(opts Options) *JSONLayout {
	l, err := NewJSONLayout(opts)
	if err != nil {
		panic(err)
	}
	return l
}

// ensureInitialized returns the active state, building it exactly once.
func (l *JSONLayout) ensureInitialized() *layoutState {
	if st := l.state.Load(); st != nil {
		return st
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if st := l.state.Load(); st != nil {
		return st
	}
	st := l.buildState(nil)
	l.state.Store(st)
	return st
}

// UpdateSettings replaces the active policy. A non-nil override is
// installed as is; nil rebuilds the policy from the options and the
// current defaults. Concurrent format calls see either the old or the new
// policy, never a mix.
func (l *JSONLayout) UpdateSettings(override *Policy) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Store(l.buildState(override))
}

// Policy returns the active policy, building it if needed.
func (l *JSONLayout) Policy() *Policy {
	return l.ensureInitialized().policy
}

// Pattern returns the conversion pattern used in ScopeMessage.
func (l *JSONLayout) Pattern() *Pattern {
	return l.ensureInitialized().pattern
}

// Stats returns a snapshot of the layout counters.
func (l *JSONLayout) Stats() Snapshot {
	return l.stats.Snapshot()
}

func (l *JSONLayout) buildState(override *Policy) *layoutState {
	st := &layoutState{
		policy:  override,
		style:   l.opts.Style,
		scope:   l.opts.Scope,
		pattern: l.pattern,
	}
	if st.pattern == nil {
		st.pattern = l.defaultPattern()
	}
	if st.style == StyleDefault {
		st.style = l.defaults.Style
	}
	if st.style == StyleDefault {
		st.style = StyleFull
	}
	if st.scope == ScopeDefault {
		st.scope = l.defaults.Scope
	}
	if st.scope == ScopeDefault {
		st.scope = ScopeMessage
	}
	if st.policy == nil {
		b := policyBuilder{
			opts:     &l.opts,
			defaults: l.defaults,
			registry: l.registry,
			log:      l.log,
			stats:    &l.stats,
		}
		st.policy = b.build()
	}
	l.stats.builds.Add(1)
	return st
}

// defaultPattern parses the conversion pattern from Defaults. An invalid
// one is reported and replaced by DefaultConversionPattern.
func (l *JSONLayout) defaultPattern() *Pattern {
	text := firstNonEmpty(l.defaults.ConversionPattern, DefaultConversionPattern)
	p, err := ParsePattern(text)
	if err != nil {
		l.log.Warn("invalid default conversion pattern",
			zap.String("pattern", text), zap.Error(err))
		p = MustParsePattern(DefaultConversionPattern)
	}
	return p
}

// Format formats an entry
func (l *JSONLayout) Format(entry *core.Entry) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	if err := l.FormatEntry(entry, buf); err != nil {
		return nil, err
	}

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// FormatTo formats an entry and writes it directly to the writer. Nothing
// is written when formatting fails.
func (l *JSONLayout) FormatTo(entry *core.Entry, w io.Writer) error {
	if w == nil {
		return ErrNilWriter
	}
	buf := getBuffer()
	defer putBuffer(buf)

	if err := l.FormatEntry(entry, buf); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Render returns the formatted entry as a string.
func (l *JSONLayout) Render(entry *core.Entry) (string, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	if err := l.FormatEntry(entry, buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatEntry formats an entry into the given buffer (implements BufferFormatter).
func (l *JSONLayout) FormatEntry(entry *core.Entry, buf *bytes.Buffer) error {
	if entry == nil {
		return ErrNilEntry
	}
	st := l.ensureInitialized()

	e, err := l.preSerialize(entry, st)
	if err != nil {
		l.stats.failures.Add(1)
		return err
	}

	switch st.scope {
	case ScopeRecord:
		if err := encodeTo(buf, Project(e, l.process, st.style), st.policy); err != nil {
			l.stats.failures.Add(1)
			return err
		}
		buf.WriteByte('\n')
	default:
		st.pattern.Format(buf, e)
	}
	l.stats.formatted.Add(1)
	return nil
}

// preSerialize returns the entry to format. Plain text messages pass
// through. Other messages are serialized once: an empty object is replaced
// by the rendered message, and in ScopeMessage the JSON text replaces the
// message object.
func (l *JSONLayout) preSerialize(e *core.Entry, st *layoutState) (*core.Entry, error) {
	switch e.Message.(type) {
	case nil, string:
		return e, nil
	}

	msg, err := Serialize(e.Message, st.policy)
	if err != nil {
		return nil, err
	}
	if msg == emptyObject {
		l.stats.fallbacks.Add(1)
		return e.WithMessage(e.RenderedMessage()), nil
	}
	if st.scope == ScopeMessage {
		return e.WithMessage(msg), nil
	}
	return e.WithMessage(json.RawMessage(msg)), nil
}
