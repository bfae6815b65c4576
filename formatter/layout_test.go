package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Philipp01105/contextlog/core"
)

var layoutTime = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func layoutEntry(msg any) *core.Entry {
	return &core.Entry{
		Time:       layoutTime,
		Level:      core.DebugLevel,
		Message:    msg,
		LoggerName: "app",
		ThreadName: "7",
	}
}

func newTestLayout(t *testing.T, opts Options) *JSONLayout {
	t.Helper()
	if opts.Process == nil {
		opts.Process = testProcess
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = zap.NewNop()
	}
	l, err := NewJSONLayout(opts)
	if err != nil {
		t.Fatalf("NewJSONLayout() error = %v", err)
	}
	return l
}

func mustRender(t *testing.T, l *JSONLayout, e *core.Entry) string {
	t.Helper()
	out, err := l.Render(e)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return out
}

func TestJSONLayout_ObjectMessage(t *testing.T) {
	l := newTestLayout(t, Options{})

	got := mustRender(t, l, layoutEntry(map[string]string{"info": "log message 1"}))
	if got != "{\"info\":\"log message 1\"}\n" {
		t.Errorf("Render() = %q", got)
	}
}

func TestJSONLayout_SkippedProperties(t *testing.T) {
	l := newTestLayout(t, Options{SkippedProperties: "Obj"})

	got := mustRender(t, l, layoutEntry(payload{Value: 10, Text: "text", Obj: []string{"a"}}))
	if got != "{\"Value\":10,\"Text\":\"text\"}\n" {
		t.Errorf("Render() = %q", got)
	}
}

func TestJSONLayout_PlainTextUnchanged(t *testing.T) {
	l := newTestLayout(t, Options{})

	for _, msg := range []string{"hello", "", "{}", `{"a":1}`} {
		if got := mustRender(t, l, layoutEntry(msg)); got != msg+"\n" {
			t.Errorf("Render(%q) = %q", msg, got)
		}
	}
	if l.Stats().Fallbacks != 0 {
		t.Errorf("Expected no fallbacks for text messages, got: %d", l.Stats().Fallbacks)
	}
}

type opaque struct {
	id int
}

func TestJSONLayout_EmptyObjectFallback(t *testing.T) {
	l := newTestLayout(t, Options{SkippedProperties: "Value, Text, Obj"})

	tests := []struct {
		msg  any
		want string
	}{
		{opaque{id: 3}, "{3}\n"},
		{payload{Value: 1, Text: "a"}, "{1 a <nil>}\n"},
		{map[string]int{}, "map[]\n"},
	}
	for _, tt := range tests {
		if got := mustRender(t, l, layoutEntry(tt.msg)); got != tt.want {
			t.Errorf("Render(%#v) = %q, want %q", tt.msg, got, tt.want)
		}
	}
	if got := l.Stats().Fallbacks; got != uint64(len(tests)) {
		t.Errorf("Expected %d fallbacks, got: %d", len(tests), got)
	}
}

func TestJSONLayout_Envelope(t *testing.T) {
	l := newTestLayout(t, Options{
		ConversionPattern: "%date{yyyy-MM-dd HH:mm:ss} [%thread] %-5level %logger - %message%newline",
	})

	got := mustRender(t, l, layoutEntry(map[string]int{"a": 1}))
	if got != "2024-01-01 10:00:00 [7] DEBUG app - {\"a\":1}\n" {
		t.Errorf("Render() = %q", got)
	}
}

func TestJSONLayout_ExceptionAfterMessage(t *testing.T) {
	l := newTestLayout(t, Options{})

	e := layoutEntry(map[string]string{"info": "failed"})
	e.Exception = errors.New("connection refused")
	if got := mustRender(t, l, e); got != "{\"info\":\"failed\"}\nconnection refused\n" {
		t.Errorf("Render() = %q", got)
	}
}

func TestJSONLayout_RecordScopeCompact(t *testing.T) {
	l := newTestLayout(t, Options{Scope: ScopeRecord, Style: StyleCompact})

	got := mustRender(t, l, layoutEntry(map[string]string{"info": "log message 1"}))
	want := `{"timestamp":"2024-01-01 10:00:00","level":"DEBUG","logger":"app","thread":"7","message":{"info":"log message 1"}}` + "\n"
	if got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}

	got = mustRender(t, l, layoutEntry("plain"))
	if !strings.Contains(got, `"message":"plain"`) {
		t.Errorf("Expected plain text message, got: %s", got)
	}

	got = mustRender(t, l, layoutEntry(opaque{id: 9}))
	if !strings.Contains(got, `"message":"{9}"`) {
		t.Errorf("Expected fallback text message, got: %s", got)
	}
}

func TestJSONLayout_RecordScopeFull(t *testing.T) {
	l := newTestLayout(t, Options{Scope: ScopeRecord})

	e := layoutEntry("started")
	e.Exception = errors.New("boom")
	e.Properties = []core.Field{{Key: "port", Type: core.IntType, Int64: 8080}}

	got := mustRender(t, l, e)
	if !strings.HasSuffix(got, "\n") || strings.Count(got, "\n") != 1 {
		t.Fatalf("Expected exactly one line, got: %q", got)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, got)
	}
	checks := map[string]any{
		KeySessionID:     testProcess.SessionID,
		KeyProcessID:     float64(testProcess.PID),
		KeyMachineName:   "build-01",
		KeyIs64Bit:       true,
		KeyExceptionText: "boom",
		KeyProperties:    map[string]any{"port": float64(8080)},
	}
	for key, want := range checks {
		if !reflect.DeepEqual(decoded[key], want) {
			t.Errorf("%s = %#v, want %#v", key, decoded[key], want)
		}
	}
}

func TestJSONLayout_InitializesOnce(t *testing.T) {
	l := newTestLayout(t, Options{SkippedProperties: "Obj"})

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Render(layoutEntry(payload{Value: 1}))
		}()
	}
	wg.Wait()

	s := l.Stats()
	if s.PolicyBuilds != 1 {
		t.Errorf("Expected 1 policy build, got: %d", s.PolicyBuilds)
	}
	if s.Formatted != 64 {
		t.Errorf("Expected 64 formatted entries, got: %d", s.Formatted)
	}
	if l.Policy() != l.Policy() {
		t.Error("Expected the same policy on every call")
	}
}

func TestJSONLayout_AtomicRefresh(t *testing.T) {
	l := newTestLayout(t, Options{})
	skipObj := &Policy{Filter: NewSkipFilter("Obj"), Converters: []TypeConverter{NewDateTimeConverter("")}}
	skipText := &Policy{Filter: NewSkipFilter("Text"), Converters: []TypeConverter{NewDateTimeConverter("")}}

	msg := payload{Value: 1, Text: "t", Obj: 2}
	allowed := map[string]bool{
		"{\"Value\":1,\"Text\":\"t\"}\n": true,
		"{\"Value\":1,\"Obj\":2}\n":      true,
	}
	l.UpdateSettings(skipObj)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				l.UpdateSettings(skipText)
			} else {
				l.UpdateSettings(skipObj)
			}
		}
	}()

	for i := 0; i < 500; i++ {
		got := mustRender(t, l, layoutEntry(msg))
		if !allowed[got] {
			t.Errorf("Render() observed a mixed policy: %q", got)
			break
		}
	}
	close(stop)
	wg.Wait()
}

func TestJSONLayout_UpdateSettingsOverride(t *testing.T) {
	l := newTestLayout(t, Options{SkippedProperties: "Obj"})
	before := l.Policy()

	override := &Policy{LoopHandling: LoopError}
	l.UpdateSettings(override)
	if l.Policy() != override {
		t.Fatal("Expected the override to be installed as is")
	}

	l.UpdateSettings(nil)
	if p := l.Policy(); p == override || p == before {
		t.Error("Expected UpdateSettings(nil) to build a fresh policy")
	}
	if got := l.Stats().PolicyBuilds; got != 3 {
		t.Errorf("Expected 3 policy builds, got: %d", got)
	}
}

func TestJSONLayout_DefaultsReadAtBuild(t *testing.T) {
	defaults := StandardSettings()
	l := newTestLayout(t, Options{Defaults: defaults})
	msg := payload{Value: 1, Text: "t", Obj: 2}

	defaults.SkippedProperties = []string{"Obj"}
	if got := mustRender(t, l, layoutEntry(msg)); got != "{\"Value\":1,\"Text\":\"t\"}\n" {
		t.Errorf("Expected defaults set before first use to apply, got: %q", got)
	}

	defaults.SkippedProperties = []string{"Text"}
	if got := mustRender(t, l, layoutEntry(msg)); got != "{\"Value\":1,\"Text\":\"t\"}\n" {
		t.Errorf("Expected the cached policy to stay in effect, got: %q", got)
	}

	l.UpdateSettings(nil)
	if got := mustRender(t, l, layoutEntry(msg)); got != "{\"Value\":1,\"Obj\":2}\n" {
		t.Errorf("Expected UpdateSettings(nil) to pick up new defaults, got: %q", got)
	}
}

func TestJSONLayout_DefaultPatternReadAtBuild(t *testing.T) {
	defaults := StandardSettings()
	l := newTestLayout(t, Options{Defaults: defaults})
	e := layoutEntry("hello")

	defaults.ConversionPattern = "%level %message%newline"
	if got := mustRender(t, l, e); got != "DEBUG hello\n" {
		t.Errorf("Expected pattern set before first use to apply, got: %q", got)
	}

	defaults.ConversionPattern = "[%logger] %message%newline"
	if got := mustRender(t, l, e); got != "DEBUG hello\n" {
		t.Errorf("Expected the cached pattern to stay in effect, got: %q", got)
	}

	l.UpdateSettings(nil)
	if got := mustRender(t, l, e); got != "[app] hello\n" {
		t.Errorf("Expected UpdateSettings(nil) to pick up the new pattern, got: %q", got)
	}

	explicit := newTestLayout(t, Options{Defaults: defaults, ConversionPattern: "%message%newline"})
	if got := mustRender(t, explicit, e); got != "hello\n" {
		t.Errorf("Expected an explicit pattern to win over defaults, got: %q", got)
	}
}

func TestJSONLayout_InvalidDefaultPattern(t *testing.T) {
	defaults := StandardSettings()
	defaults.ConversionPattern = "%bogus"
	obsCore, logs := observer.New(zapcore.WarnLevel)
	l := newTestLayout(t, Options{Defaults: defaults, Diagnostics: zap.New(obsCore)})

	if got := mustRender(t, l, layoutEntry("hello")); got != "hello\n" {
		t.Errorf("Expected fallback to the message-only pattern, got: %q", got)
	}
	if logs.Len() != 1 {
		t.Errorf("Expected 1 warning, got: %d", logs.Len())
	}
}

func TestJSONLayout_AdvancedFilter(t *testing.T) {
	defaults := StandardSettings()
	defaults.AdvancedFilter = func(declaringType reflect.Type, name string) bool {
		return !(declaringType == reflect.TypeOf(payload{}) && name == "Text")
	}
	msg := payload{Value: 1, Text: "t", Obj: 2}

	l := newTestLayout(t, Options{Defaults: defaults})
	if got := mustRender(t, l, layoutEntry(msg)); got != "{\"Value\":1,\"Obj\":2}\n" {
		t.Errorf("Render() = %q", got)
	}

	// an explicit skip list replaces the predicate
	l = newTestLayout(t, Options{Defaults: defaults, SkippedProperties: "Value"})
	if got := mustRender(t, l, layoutEntry(msg)); got != "{\"Text\":\"t\",\"Obj\":2}\n" {
		t.Errorf("Render() = %q", got)
	}
}

func TestJSONLayout_BrokenLocatorsAreSkipped(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)
	reg.RegisterConverter("panics", func() (TypeConverter, error) {
		panic("cannot construct")
	})

	obsCore, logs := observer.New(zapcore.WarnLevel)
	l := newTestLayout(t, Options{
		Registry:          reg,
		Diagnostics:       zap.New(obsCore),
		TypeConverters:    []string{"missing", "panics", "duration-string"},
		ContractResolvers: []string{"nope, some/module", "sensitive"},
	})

	msg := struct {
		User     string
		Password string
		Wait     time.Duration
	}{"bob", "hunter2", time.Second}
	if got := mustRender(t, l, layoutEntry(msg)); got != "{\"User\":\"bob\",\"Wait\":\"1s\"}\n" {
		t.Errorf("Render() = %q", got)
	}

	if got := l.Stats().RejectedLocators; got != 3 {
		t.Errorf("Expected 3 rejected locators, got: %d", got)
	}
	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("Expected 3 warnings, got: %d", len(entries))
	}
	wantLocators := []string{"missing", "panics", "nope, some/module"}
	for i, entry := range entries {
		if entry.LoggerName != "jsonlayout" {
			t.Errorf("Expected logger jsonlayout, got: %s", entry.LoggerName)
		}
		if got := entry.ContextMap()["locator"]; got != wantLocators[i] {
			t.Errorf("warning %d locator = %v, want %s", i, got, wantLocators[i])
		}
	}
}

func TestJSONLayout_PanickingConverter(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterConverter("int-bomb", func() (TypeConverter, error) {
		return panickingConverter{}, nil
	})
	l := newTestLayout(t, Options{Registry: reg, TypeConverters: []string{"int-bomb"}})

	var buf bytes.Buffer
	err := l.FormatTo(layoutEntry(struct{ N int }{1}), &buf)
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("Expected converter panic as error, got: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected nothing written, got: %q", buf.String())
	}
	if got := l.Stats().Failures; got != 1 {
		t.Errorf("Expected 1 failure, got: %d", got)
	}
}

func TestJSONLayout_DateTimeFormat(t *testing.T) {
	l := newTestLayout(t, Options{DateTimeFormat: "dd.MM.yyyy"})

	got := mustRender(t, l, layoutEntry(struct{ Due time.Time }{layoutTime}))
	if got != "{\"Due\":\"01.01.2024\"}\n" {
		t.Errorf("Render() = %q", got)
	}
}

func TestJSONLayout_LoopHandling(t *testing.T) {
	data := &sample{Value: 1}
	data.OtherData = data

	l := newTestLayout(t, Options{SkippedProperties: "Date,Dict,Text"})
	if got := mustRender(t, l, layoutEntry(data)); got != "{\"Value\":1}\n" {
		t.Errorf("Render() = %q", got)
	}

	l = newTestLayout(t, Options{LoopHandling: LoopError})
	var buf bytes.Buffer
	err := l.FormatTo(layoutEntry(data), &buf)
	if !errors.Is(err, ErrReferenceLoop) {
		t.Fatalf("FormatTo() error = %v, want ErrReferenceLoop", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected nothing written, got: %q", buf.String())
	}
	if l.Stats().Failures != 1 {
		t.Errorf("Expected 1 failure, got: %d", l.Stats().Failures)
	}
}

func TestJSONLayout_NilArguments(t *testing.T) {
	l := newTestLayout(t, Options{})

	if err := l.FormatTo(layoutEntry("x"), nil); !errors.Is(err, ErrNilWriter) {
		t.Errorf("Expected ErrNilWriter, got: %v", err)
	}
	var buf bytes.Buffer
	if err := l.FormatTo(nil, &buf); !errors.Is(err, ErrNilEntry) {
		t.Errorf("Expected ErrNilEntry, got: %v", err)
	}
	if _, err := l.Format(nil); !errors.Is(err, ErrNilEntry) {
		t.Errorf("Expected ErrNilEntry, got: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected nothing written, got: %q", buf.String())
	}
}

func TestJSONLayout_InvalidPattern(t *testing.T) {
	if _, err := NewJSONLayout(Options{ConversionPattern: "%bogus"}); err == nil {
		t.Error("Expected an error for an unknown conversion")
	}
}

func TestJSONLayout_ImplementsFormatters(t *testing.T) {
	var l any = newTestLayout(t, Options{})
	if _, ok := l.(Formatter); !ok {
		t.Error("Expected JSONLayout to implement Formatter")
	}
	if _, ok := l.(WriterFormatter); !ok {
		t.Error("Expected JSONLayout to implement WriterFormatter")
	}
	if _, ok := l.(BufferFormatter); !ok {
		t.Error("Expected JSONLayout to implement BufferFormatter")
	}
	if _, ok := l.(Renderer); !ok {
		t.Error("Expected JSONLayout to implement Renderer")
	}
}

func BenchmarkJSONLayout_MessageScope(b *testing.B) {
	l := MustJSONLayout(Options{SkippedProperties: "Obj", Process: testProcess, Diagnostics: zap.NewNop()})
	e := layoutEntry(payload{Value: 10, Text: "text", Obj: 1})
	var buf bytes.Buffer

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = l.FormatEntry(e, &buf)
	}
}

func BenchmarkJSONLayout_RecordScope(b *testing.B) {
	l := MustJSONLayout(Options{Scope: ScopeRecord, Process: testProcess, Diagnostics: zap.NewNop()})
	e := layoutEntry("request served")
	e.Properties = []core.Field{{Key: "status", Type: core.IntType, Int64: 200}}
	var buf bytes.Buffer

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = l.FormatEntry(e, &buf)
	}
}
