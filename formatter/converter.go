package formatter

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// TypeConverter replaces values of the types it accepts before they are
// encoded. The returned value is encoded in place of the original.
type TypeConverter interface {
	CanConvert(t reflect.Type) bool
	Convert(v reflect.Value) (any, error)
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

// DateTimeConverter formats time.Time values with a single layout.
type DateTimeConverter struct {
	Layout string
}

// NewDateTimeConverter creates a converter for the given layout, which may
// be a Go reference layout or a .NET-style pattern such as
// "yyyy-MM-dd HH:mm:ss".
func NewDateTimeConverter(format string) *DateTimeConverter {
	if format == "" {
		format = DefaultDateTimeFormat
	}
	return &DateTimeConverter{Layout: TimeLayout(format)}
}

// CanConvert accepts time.Time.
func (c *DateTimeConverter) CanConvert(t reflect.Type) bool {
	return t == timeType
}

// Convert formats the time with the converter's layout.
func (c *DateTimeConverter) Convert(v reflect.Value) (any, error) {
	return v.Interface().(time.Time).Format(c.Layout), nil
}

// UnixTimeConverter encodes time.Time values as Unix seconds.
type UnixTimeConverter struct{}

// CanConvert accepts time.Time.
func (UnixTimeConverter) CanConvert(t reflect.Type) bool {
	return t == timeType
}

// Convert returns the Unix timestamp in seconds.
func (UnixTimeConverter) Convert(v reflect.Value) (any, error) {
	return v.Interface().(time.Time).Unix(), nil
}

// DurationConverter encodes time.Duration values as strings like "1.5s"
// instead of nanosecond counts.
type DurationConverter struct{}

// CanConvert accepts time.Duration.
func (DurationConverter) CanConvert(t reflect.Type) bool {
	return t == durationType
}

// Convert returns the duration's string form.
func (DurationConverter) Convert(v reflect.Value) (any, error) {
	return time.Duration(v.Int()).String(), nil
}

// StringerConverter encodes any value implementing fmt.Stringer with its
// String method.
type StringerConverter struct{}

// CanConvert accepts types whose value receiver implements fmt.Stringer.
func (StringerConverter) CanConvert(t reflect.Type) bool {
	return t.Kind() != reflect.Interface && t.Implements(stringerType)
}

// Convert calls String.
func (StringerConverter) Convert(v reflect.Value) (any, error) {
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, nil
	}
	return v.Interface().(fmt.Stringer).String(), nil
}

// dotnetTokens maps .NET custom date and time format specifiers to Go
// layout elements, longest first.
var dotnetTokens = []struct{ from, to string }{
	{"yyyy", "2006"},
	{"yy", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"dddd", "Monday"},
	{"ddd", "Mon"},
	{"dd", "02"},
	{"d", "2"},
	{"HH", "15"},
	{"H", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"m", "4"},
	{"ss", "05"},
	{"s", "5"},
	{"tt", "PM"},
	{"zzz", "-07:00"},
	{"zz", "-07"},
	{"K", "Z07:00"},
}

// goLayoutElements are reference-time elements that never occur in a
// .NET custom format outside quoted literals.
var goLayoutElements = []string{
	"2006", "01", "02", "03", "04", "05", "06", "15",
	"Jan", "Mon", "MST", "PM", "pm", "-07", "Z07", ".000", ".999",
}

// isGoLayout reports whether format mentions any Go reference-time element.
func isGoLayout(format string) bool {
	for _, el := range goLayoutElements {
		if strings.Contains(format, el) {
			return true
		}
	}
	return false
}

// TimeLayout returns a Go time layout for format. Go layouts pass through;
// otherwise .NET-style specifiers are translated and quoted literals are
// unquoted.
func TimeLayout(format string) string {
	if format == "" || isGoLayout(format) {
		return format
	}
	var b strings.Builder
	for i := 0; i < len(format); {
		c := format[i]
		if c == '\'' || c == '"' {
			end := strings.IndexByte(format[i+1:], c)
			if end < 0 {
				b.WriteString(format[i+1:])
				break
			}
			b.WriteString(format[i+1 : i+1+end])
			i += end + 2
			continue
		}
		if c == 'f' || c == 'F' {
			n := 0
			for i < len(format) && format[i] == c {
				n++
				i++
			}
			digit := "0"
			if c == 'F' {
				digit = "9"
			}
			b.WriteString(strings.Repeat(digit, n))
			continue
		}
		matched := false
		for _, tok := range dotnetTokens {
			if strings.HasPrefix(format[i:], tok.from) {
				b.WriteString(tok.to)
				i += len(tok.from)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}
