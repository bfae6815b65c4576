package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Philipp01105/contextlog/core"
	"github.com/Philipp01105/contextlog/formatter"
	"github.com/Philipp01105/contextlog/handler"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate(nil))
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "contextlog.yaml", `
name: billing
layout:
  style: compact
  scope: record
  skippedProperties: Password, Token
  contractResolvers: [sensitive]
  typeConverters: [unix-time]
sink:
  level: debug
  maxBackups: 7
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "billing", cfg.Name)
	assert.Equal(t, "compact", cfg.Layout.Style)
	assert.Equal(t, "record", cfg.Layout.Scope)
	assert.Equal(t, []string{"sensitive"}, cfg.Layout.ContractResolvers)
	assert.Equal(t, []string{"unix-time"}, cfg.Layout.TypeConverters)
	assert.Equal(t, "debug", cfg.Sink.Level)
	assert.Equal(t, 7, cfg.Sink.MaxBackups)
	// untouched keys keep their defaults
	assert.Equal(t, "stdout", cfg.Sink.Output)
	assert.Equal(t, 100, cfg.Sink.MaxSizeMB)
}

func TestLoad_EnvironmentOverridesYAML(t *testing.T) {
	path := writeFile(t, "contextlog.yaml", "layout:\n  style: compact\nsink:\n  level: debug\n")
	t.Setenv("CONTEXTLOG_LAYOUT_STYLE", "full")
	t.Setenv("CONTEXTLOG_LAYOUT_CONTRACT_RESOLVERS", "sensitive;audit, billing")
	t.Setenv("CONTEXTLOG_SINK_COMPRESS", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "full", cfg.Layout.Style)
	assert.Equal(t, []string{"sensitive", "audit, billing"}, cfg.Layout.ContractResolvers)
	assert.True(t, cfg.Sink.Compress)
	assert.Equal(t, "debug", cfg.Sink.Level)
}

func TestLoad_EnvFile(t *testing.T) {
	path := writeFile(t, "test.env", "CONTEXTLOG_LAYOUT_SCOPE=record\n")
	t.Cleanup(func() { os.Unsetenv("CONTEXTLOG_LAYOUT_SCOPE") })

	cfg, err := Load("", path)
	require.NoError(t, err)
	assert.Equal(t, "record", cfg.Layout.Scope)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)

	path := writeFile(t, "typo.yaml", "layout:\n  stlye: compact\n")
	_, err = Load(path)
	assert.Error(t, err, "unknown keys should be rejected")

	t.Setenv("CONTEXTLOG_SINK_MAX_BACKUPS", "many")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Layout.Style = "fancy"
	cfg.Layout.LoopHandling = "explode"
	cfg.Layout.ContractResolvers = []string{"sensitive", "nope"}
	cfg.Layout.TypeConverters = []string{"missing, some/module"}
	cfg.Sink.Level = "loud"
	cfg.Sink.MaxAgeDays = -1

	err := cfg.Validate(formatter.DefaultRegistry())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 6)
	assert.True(t, errors.Is(err, formatter.ErrUnknownLocator))
}

func TestValidate_CustomRegistry(t *testing.T) {
	reg := formatter.NewRegistry()
	reg.RegisterFilter("audit, billing", func() (formatter.FieldFilter, error) {
		return formatter.NewSkipFilter("Card"), nil
	})

	cfg := Default()
	cfg.Layout.ContractResolvers = []string{"audit, billing"}
	assert.NoError(t, cfg.Validate(reg))

	cfg.Layout.ContractResolvers = []string{"sensitive"}
	assert.ErrorIs(t, cfg.Validate(reg), formatter.ErrUnknownLocator)
}

func TestLayoutOptions(t *testing.T) {
	l := LayoutConfig{
		DateTimeFormat:    "yyyy-MM-dd",
		LoopHandling:      "error",
		SkippedProperties: "Obj",
		Style:             "compact",
		Scope:             "message",
		ConversionPattern: "%level %message%newline",
		TypeConverters:    []string{"stringer"},
	}

	opts, err := l.LayoutOptions()
	require.NoError(t, err)
	assert.Equal(t, formatter.Options{
		DateTimeFormat:    "yyyy-MM-dd",
		LoopHandling:      formatter.LoopError,
		SkippedProperties: "Obj",
		Style:             formatter.StyleCompact,
		Scope:             formatter.ScopeMessage,
		ConversionPattern: "%level %message%newline",
		TypeConverters:    []string{"stringer"},
	}, opts)

	empty, err := LayoutConfig{}.LayoutOptions()
	require.NoError(t, err)
	assert.Equal(t, formatter.StyleDefault, empty.Style)
	assert.Equal(t, formatter.ScopeDefault, empty.Scope)

	_, err = LayoutConfig{Scope: "everything"}.LayoutOptions()
	assert.Error(t, err)
}

func TestSinkConfig_NewSink(t *testing.T) {
	layout := formatter.MustJSONLayout(formatter.Options{
		Scope:       formatter.ScopeRecord,
		Style:       formatter.StyleCompact,
		Diagnostics: zap.NewNop(),
	})

	console, err := SinkConfig{Output: "stderr"}.NewSink(layout, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &handler.ConsoleHandler{}, console)

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	sink, err := SinkConfig{Output: path, MaxSizeMB: 1}.NewSink(layout, zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, &handler.FileHandler{}, sink)

	entry := &core.Entry{Level: core.InfoLevel, Message: "hello", LoggerName: "app"}
	require.NoError(t, sink.Handle(entry))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
	assert.Equal(t, uint64(1), sink.Stats().ProcessedTotal)
}

func TestSinkConfig_LevelValue(t *testing.T) {
	level, err := SinkConfig{Level: "warning"}.LevelValue()
	require.NoError(t, err)
	assert.Equal(t, core.WarnLevel, level)

	_, err = SinkConfig{Level: "verbose"}.LevelValue()
	assert.Error(t, err)
}
