package formatter

import (
	"fmt"
	"reflect"
	"strings"
)

// Style selects which attributes of an entry are projected into a record.
type Style int8

const (
	// StyleDefault inherits the style from Settings.
	StyleDefault Style = iota
	// StyleFull adds process, platform, caller and exception detail.
	StyleFull
	// StyleCompact keeps timestamp, level, logger, thread and message.
	StyleCompact
)

// String returns the string representation of the style
func (s Style) String() string {
	switch s {
	case StyleDefault:
		return "Default"
	case StyleFull:
		return "Full"
	case StyleCompact:
		return "Compact"
	default:
		return "Unknown"
	}
}

// ParseStyle converts a configuration string to a Style. An empty string
// yields StyleDefault.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return StyleDefault, nil
	case "full", "complete":
		return StyleFull, nil
	case "compact", "simple":
		return StyleCompact, nil
	default:
		return StyleDefault, fmt.Errorf("formatter: unknown style %q", s)
	}
}

// Scope selects whether the whole record or only the message is serialized.
type Scope int8

const (
	// ScopeDefault inherits the scope from Settings.
	ScopeDefault Scope = iota
	// ScopeMessage serializes the message and renders it through the
	// conversion pattern.
	ScopeMessage
	// ScopeRecord writes the projected record as one JSON object per line.
	ScopeRecord
)

// String returns the string representation of the scope
func (s Scope) String() string {
	switch s {
	case ScopeDefault:
		return "Default"
	case ScopeMessage:
		return "Message"
	case ScopeRecord:
		return "Record"
	default:
		return "Unknown"
	}
}

// ParseScope converts a configuration string to a Scope. An empty string
// yields ScopeDefault.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ScopeDefault, nil
	case "message":
		return ScopeMessage, nil
	case "record", "complete":
		return ScopeRecord, nil
	default:
		return ScopeDefault, fmt.Errorf("formatter: unknown scope %q", s)
	}
}

// LoopHandling decides what happens when a value references itself.
type LoopHandling int8

const (
	// LoopDefault inherits the loop handling from Settings.
	LoopDefault LoopHandling = iota
	// LoopIgnore elides the member that closes the cycle.
	LoopIgnore
	// LoopError fails serialization with ErrReferenceLoop.
	LoopError
)

// String returns the string representation of the loop handling mode
func (h LoopHandling) String() string {
	switch h {
	case LoopDefault:
		return "Default"
	case LoopIgnore:
		return "Ignore"
	case LoopError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ParseLoopHandling converts a configuration string to a LoopHandling.
// An empty string yields LoopDefault.
func ParseLoopHandling(s string) (LoopHandling, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return LoopDefault, nil
	case "ignore":
		return LoopIgnore, nil
	case "error":
		return LoopError, nil
	default:
		return LoopDefault, fmt.Errorf("formatter: unknown loop handling %q", s)
	}
}

const (
	// DefaultDateTimeFormat is the layout applied to every time.Time value
	// in serialized output.
	DefaultDateTimeFormat = "2006-01-02 15:04:05"
	// DefaultConversionPattern renders the serialized message alone.
	DefaultConversionPattern = "%message%newline"
)

// Settings are the fallback values a layout uses for every option it was
// not given explicitly. They are read when the layout builds its policy,
// so changes made before first use take effect, and changes made later
// only apply after UpdateSettings.
type Settings struct {
	DateTimeFormat    string
	LoopHandling      LoopHandling
	SkippedProperties []string
	// AdvancedFilter is used when no skip list is configured anywhere.
	AdvancedFilter    func(declaringType reflect.Type, name string) bool
	Style             Style
	Scope             Scope
	ConversionPattern string
}

// StandardSettings returns a fresh copy of the built-in defaults.
func StandardSettings() *Settings {
	return &Settings{
		DateTimeFormat:    DefaultDateTimeFormat,
		LoopHandling:      LoopIgnore,
		Style:             StyleFull,
		Scope:             ScopeMessage,
		ConversionPattern: DefaultConversionPattern,
	}
}

// SplitProperties splits a comma-separated list of field names, trimming
// blanks and dropping empty items.
func SplitProperties(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}
