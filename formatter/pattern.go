package formatter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Philipp01105/contextlog/core"
)

// DefaultPatternDateLayout is the layout of %date without an option.
const DefaultPatternDateLayout = "2006-01-02 15:04:05,000"

// Stage renders one element of a conversion pattern.
type Stage interface {
	Render(buf *bytes.Buffer, e *core.Entry)
}

// Pattern is an ordered chain of stages parsed from a conversion pattern
// such as "%date [%thread] %-5level %logger - %message%newline".
//
// Supported conversions (long and short names):
//
//	%date{layout} %d   entry time, layout is Go or .NET style
//	%utcdate{layout}   entry time in UTC
//	%thread %t         thread name
//	%level %p          level
//	%logger %c         logger name
//	%message %m        message
//	%newline %n        line break
//	%exception         error text followed by a line break
//	%property{key}     one property value
//	%properties        all properties as " key=value"
//	%file %line %method  caller location
//	%%                 a literal percent sign
//
// A conversion may carry padding and truncation: %-5level pads to five
// characters on the right, %20logger pads on the left, %.10logger keeps at
// most ten characters.
type Pattern struct {
	source           string
	stages           []Stage
	rendersException bool
}

// PatternOption customizes pattern parsing.
type PatternOption func(*patternConfig)

type patternConfig struct {
	dateLayout string
}

// WithDateLayout sets the layout used by %date without an option.
func WithDateLayout(layout string) PatternOption {
	return func(c *patternConfig) {
		c.dateLayout = TimeLayout(layout)
	}
}

// ParsePattern parses a conversion pattern.
func ParsePattern(pattern string, opts ...PatternOption) (*Pattern, error) {
	cfg := patternConfig{dateLayout: DefaultPatternDateLayout}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pattern{source: pattern}
	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			p.stages = append(p.stages, literalStage(literal.String()))
			literal.Reset()
		}
	}

	for i := 0; i < len(pattern); {
		c := pattern[i]
		if c != '%' {
			literal.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(pattern) && pattern[i+1] == '%' {
			literal.WriteByte('%')
			i += 2
			continue
		}

		start := i
		i++
		var pad padding
		if i < len(pattern) && pattern[i] == '-' {
			pad.left = true
			i++
		}
		pad.min, i = readInt(pattern, i)
		if i < len(pattern) && pattern[i] == '.' {
			pad.max, i = readInt(pattern, i+1)
		}

		nameStart := i
		for i < len(pattern) && isNameByte(pattern[i]) {
			i++
		}
		name := pattern[nameStart:i]
		if name == "" {
			return nil, fmt.Errorf("formatter: pattern %q: missing conversion name at offset %d", pattern, start)
		}

		var option string
		if i < len(pattern) && pattern[i] == '{' {
			end := strings.IndexByte(pattern[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("formatter: pattern %q: unterminated option at offset %d", pattern, i)
			}
			option = pattern[i+1 : i+end]
			i += end + 1
		}

		stage, err := newStage(name, option, &cfg)
		if err != nil {
			return nil, fmt.Errorf("formatter: pattern %q: %w", pattern, err)
		}
		if _, ok := stage.(exceptionStage); ok {
			p.rendersException = true
		}
		if pad.min > 0 || pad.max > 0 {
			stage = paddedStage{inner: stage, padding: pad}
		}
		flush()
		p.stages = append(p.stages, stage)
	}
	flush()
	return p, nil
}

// MustParsePattern is like ParsePattern but panics on error.
func MustParsePattern(pattern string, opts ...PatternOption) *Pattern {
	p, err := ParsePattern(pattern, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source pattern.
func (p *Pattern) String() string {
	return p.source
}

// RendersException reports whether the pattern contains %exception.
func (p *Pattern) RendersException() bool {
	return p.rendersException
}

// Render runs every stage in order.
func (p *Pattern) Render(buf *bytes.Buffer, e *core.Entry) {
	for _, s := range p.stages {
		s.Render(buf, e)
	}
}

// Format renders e and, when the pattern has no %exception stage, writes
// the entry's error on its own line after it.
func (p *Pattern) Format(buf *bytes.Buffer, e *core.Entry) {
	p.Render(buf, e)
	if !p.rendersException && e.Exception != nil {
		exceptionStage{}.Render(buf, e)
	}
}

func newStage(name, option string, cfg *patternConfig) (Stage, error) {
	switch name {
	case "date", "d":
		return dateStage{layout: dateLayout(option, cfg)}, nil
	case "utcdate":
		return dateStage{layout: dateLayout(option, cfg), utc: true}, nil
	case "thread", "t":
		return threadStage{}, nil
	case "level", "p":
		return levelStage{}, nil
	case "logger", "c":
		return loggerStage{}, nil
	case "message", "m":
		return messageStage{}, nil
	case "newline", "n":
		return literalStage("\n"), nil
	case "exception":
		return exceptionStage{}, nil
	case "property", "P":
		return propertyStage{key: option}, nil
	case "properties":
		return propertiesStage{}, nil
	case "file", "F":
		return fileStage{}, nil
	case "line", "L":
		return lineStage{}, nil
	case "method", "M":
		return methodStage{}, nil
	default:
		return nil, fmt.Errorf("unknown conversion %q", name)
	}
}

func dateLayout(option string, cfg *patternConfig) string {
	switch option {
	case "":
		return cfg.dateLayout
	case "ISO8601":
		return DefaultPatternDateLayout
	default:
		return TimeLayout(option)
	}
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func readInt(s string, i int) (int, int) {
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if start == i {
		return 0, i
	}
	n, _ := strconv.Atoi(s[start:i])
	return n, i
}

type literalStage string

func (s literalStage) Render(buf *bytes.Buffer, _ *core.Entry) {
	buf.WriteString(string(s))
}

type dateStage struct {
	layout string
	utc    bool
}

func (s dateStage) Render(buf *bytes.Buffer, e *core.Entry) {
	t := e.Time
	if s.utc {
		t = t.UTC()
	}
	buf.Write(t.AppendFormat(buf.AvailableBuffer(), s.layout))
}

type threadStage struct{}

func (threadStage) Render(buf *bytes.Buffer, e *core.Entry) {
	buf.WriteString(e.ThreadName)
}

type levelStage struct{}

func (levelStage) Render(buf *bytes.Buffer, e *core.Entry) {
	buf.WriteString(e.Level.String())
}

type loggerStage struct{}

func (loggerStage) Render(buf *bytes.Buffer, e *core.Entry) {
	buf.WriteString(e.LoggerName)
}

type messageStage struct{}

func (messageStage) Render(buf *bytes.Buffer, e *core.Entry) {
	buf.WriteString(e.RenderedMessage())
}

type exceptionStage struct{}

func (exceptionStage) Render(buf *bytes.Buffer, e *core.Entry) {
	if e.Exception == nil {
		return
	}
	fmt.Fprintf(buf, "%+v", e.Exception)
	buf.WriteByte('\n')
}

type propertyStage struct {
	key string
}

func (s propertyStage) Render(buf *bytes.Buffer, e *core.Entry) {
	for _, f := range e.Properties {
		if f.Key == s.key {
			buf.WriteString(f.StringValue())
			return
		}
	}
}

type propertiesStage struct{}

func (propertiesStage) Render(buf *bytes.Buffer, e *core.Entry) {
	for _, f := range e.Properties {
		buf.WriteByte(' ')
		buf.WriteString(f.Key)
		buf.WriteByte('=')
		buf.WriteString(f.StringValue())
	}
}

type fileStage struct{}

func (fileStage) Render(buf *bytes.Buffer, e *core.Entry) {
	if e.Caller.Defined {
		buf.WriteString(e.Caller.ShortFile)
	}
}

type lineStage struct{}

func (lineStage) Render(buf *bytes.Buffer, e *core.Entry) {
	if e.Caller.Defined {
		buf.Write(strconv.AppendInt(buf.AvailableBuffer(), int64(e.Caller.Line), 10))
	}
}

type methodStage struct{}

func (methodStage) Render(buf *bytes.Buffer, e *core.Entry) {
	if e.Caller.Defined {
		buf.WriteString(e.Caller.Function)
	}
}

type padding struct {
	min  int
	max  int
	left bool
}

type paddedStage struct {
	inner Stage
	padding
}

func (s paddedStage) Render(buf *bytes.Buffer, e *core.Entry) {
	start := buf.Len()
	s.inner.Render(buf, e)
	rendered := buf.Bytes()[start:]
	n := utf8.RuneCount(rendered)

	if s.max > 0 && n > s.max {
		// keep the tail, as the conversion pattern convention does
		runes := []rune(string(rendered))
		tail := string(runes[len(runes)-s.max:])
		n = s.max
		buf.Truncate(start)
		buf.WriteString(tail)
	}
	if n >= s.min {
		return
	}
	fill := strings.Repeat(" ", s.min-n)
	if s.left {
		buf.WriteString(fill)
		return
	}
	text := string(buf.Bytes()[start:])
	buf.Truncate(start)
	buf.WriteString(fill)
	buf.WriteString(text)
}
