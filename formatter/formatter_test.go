package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Philipp01105/contextlog/core"
)

func TestTextFormatter_Basic(t *testing.T) {
	f := NewTextFormatter(Config{})

	entry := &core.Entry{
		Time:    time.Date(2026, 2, 18, 13, 0, 0, 0, time.UTC),
		Level:   core.InfoLevel,
		Message: "test message",
	}

	result, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	if got := string(result); got != "2026-02-18T13:00:00Z [INFO] test message\n" {
		t.Errorf("Unexpected output, got: %q", got)
	}
}

func TestTextFormatter_WithProperties(t *testing.T) {
	f := NewTextFormatter(Config{})

	entry := &core.Entry{
		Time:    time.Now(),
		Level:   core.InfoLevel,
		Message: "test",
		Properties: []core.Field{
			{Key: "key1", Type: core.StringType, Str: "value1"},
			{Key: "key2", Type: core.IntType, Int64: 42},
		},
	}

	result, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := string(result)
	if !strings.Contains(output, "test key1=value1 key2=42\n") {
		t.Errorf("Expected properties after the message, got: %s", output)
	}
}

func TestTextFormatter_WithCaller(t *testing.T) {
	f := NewTextFormatter(Config{IncludeCaller: true})

	entry := &core.Entry{
		Time:    time.Now(),
		Level:   core.InfoLevel,
		Message: "test",
		Caller: core.CallerInfo{
			File:      "/path/to/file.go",
			ShortFile: "file.go",
			Line:      123,
			Function:  "main.main",
			Defined:   true,
		},
	}

	result, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := string(result)
	if !strings.Contains(output, "[file.go:123]") {
		t.Errorf("Expected caller info in output, got: %s", output)
	}
}

func TestTextFormatter_CustomPattern(t *testing.T) {
	f := NewTextFormatter(Config{
		Pattern:         "%date %-5level %logger: %message%newline",
		TimestampFormat: "HH:mm:ss",
	})

	entry := &core.Entry{
		Time:       time.Date(2026, 2, 18, 13, 4, 5, 0, time.UTC),
		Level:      core.WarnLevel,
		LoggerName: "db",
		Message:    "slow query",
	}

	out, err := f.Render(entry)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "13:04:05 WARN  db: slow query\n" {
		t.Errorf("Unexpected output, got: %q", out)
	}
}

func TestTextFormatter_InvalidPatternFallsBack(t *testing.T) {
	f := NewTextFormatter(Config{Pattern: "%unknown"})
	if f.Pattern != DefaultTextPattern {
		t.Errorf("Expected default pattern, got: %s", f.Pattern)
	}
}

func TestTextFormatter_ObjectMessageAndException(t *testing.T) {
	f := NewTextFormatter(Config{Pattern: "%message%newline"})

	entry := &core.Entry{
		Level:     core.ErrorLevel,
		Message:   struct{ Code int }{500},
		Exception: errors.New("upstream failed"),
	}

	var buf bytes.Buffer
	if err := f.FormatEntry(entry, &buf); err != nil {
		t.Fatalf("FormatEntry() error = %v", err)
	}
	if buf.String() != "{500}\nupstream failed\n" {
		t.Errorf("Unexpected output, got: %q", buf.String())
	}
}

func TestJSONLayout_RecordWithCaller(t *testing.T) {
	l := MustJSONLayout(Options{Scope: ScopeRecord, Process: testProcess})

	entry := &core.Entry{
		Time:    time.Now(),
		Level:   core.InfoLevel,
		Message: "test",
		Caller: core.CallerInfo{
			File:      "/path/to/file.go",
			ShortFile: "file.go",
			Line:      123,
			Function:  "main.main",
			Defined:   true,
		},
	}

	result, err := l.Format(entry)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(result, &data); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}

	caller, ok := data["caller"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected caller object in JSON")
	}

	if caller["file"] != "file.go" {
		t.Errorf("Expected file='file.go', got: %v", caller["file"])
	}
	if caller["line"] != float64(123) { // JSON numbers are float64
		t.Errorf("Expected line=123, got: %v", caller["line"])
	}
}

func BenchmarkTextFormatter(b *testing.B) {
	f := NewTextFormatter(Config{})
	entry := &core.Entry{
		Time:    time.Now(),
		Level:   core.InfoLevel,
		Message: "test message",
		Properties: []core.Field{
			{Key: "key1", Type: core.StringType, Str: "value1"},
			{Key: "key2", Type: core.IntType, Int64: 42},
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = f.Format(entry)
	}
}
