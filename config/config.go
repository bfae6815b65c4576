// Package config loads layout and sink settings from an optional YAML file
// and the environment.
//
// Values are applied in three steps: built-in defaults, then the YAML file,
// then environment variables prefixed with CONTEXTLOG_. A .env file is read
// before the environment is parsed; variables already set in the process
// win over the file.
//
//	layout:
//	  style: compact
//	  scope: record
//	  skippedProperties: Password,Token
//	  contractResolvers: [sensitive]
//	sink:
//	  output: /var/log/app/app.log
//	  level: info
//
// The same settings from the environment:
//
//	CONTEXTLOG_LAYOUT_STYLE=compact
//	CONTEXTLOG_LAYOUT_CONTRACT_RESOLVERS=sensitive;my-filter, billing
//	CONTEXTLOG_SINK_OUTPUT=stderr
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Philipp01105/contextlog/core"
	"github.com/Philipp01105/contextlog/formatter"
	"github.com/Philipp01105/contextlog/handler"
	"github.com/Philipp01105/contextlog/logger"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CONTEXTLOG_"

// Config is the root of the configuration tree.
type Config struct {
	// Name is the logger name of the application logger.
	Name   string       `yaml:"name" env:"NAME"`
	Layout LayoutConfig `yaml:"layout" envPrefix:"LAYOUT_"`
	Sink   SinkConfig   `yaml:"sink" envPrefix:"SINK_"`
}

// LayoutConfig mirrors formatter.Options in configuration form. Empty
// values inherit from the layout defaults.
type LayoutConfig struct {
	DateTimeFormat    string   `yaml:"dateTimeFormat" env:"DATE_TIME_FORMAT"`
	LoopHandling      string   `yaml:"loopHandling" env:"LOOP_HANDLING"`
	SkippedProperties string   `yaml:"skippedProperties" env:"SKIPPED_PROPERTIES"`
	Style             string   `yaml:"style" env:"STYLE"`
	Scope             string   `yaml:"scope" env:"SCOPE"`
	ConversionPattern string   `yaml:"conversionPattern" env:"CONVERSION_PATTERN"`
	TypeConverters    []string `yaml:"typeConverters" env:"TYPE_CONVERTERS" envSeparator:";"`
	ContractResolvers []string `yaml:"contractResolvers" env:"CONTRACT_RESOLVERS" envSeparator:";"`
}

// SinkConfig selects where formatted entries go. Output is "stdout",
// "stderr" or a file path; the rotation settings apply to files only.
type SinkConfig struct {
	Output     string `yaml:"output" env:"OUTPUT"`
	Level      string `yaml:"level" env:"LEVEL"`
	MaxSizeMB  int    `yaml:"maxSizeMB" env:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"maxBackups" env:"MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"maxAgeDays" env:"MAX_AGE_DAYS"`
	Compress   bool   `yaml:"compress" env:"COMPRESS"`
	LocalTime  bool   `yaml:"localTime" env:"LOCAL_TIME"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Name: "app",
		Sink: SinkConfig{
			Output:     "stdout",
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds a configuration from the defaults, the YAML file at path
// (skipped when path is empty) and the environment. Without envFiles a
// .env file in the working directory is read if present; named envFiles
// must exist.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("config: load env files: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := cfg.decodeYAML(data); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeYAML overlays data on c. Unknown keys are rejected.
func (c *Config) decodeYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overrides fields whose variables are set.
func (c *Config) applyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("config: parse environment: %w", err)
	}
	return nil
}

// Validate reports every invalid value at once. Locators are checked
// against reg (formatter.DefaultRegistry() when nil).
func (c *Config) Validate(reg *formatter.Registry) error {
	if reg == nil {
		reg = formatter.DefaultRegistry()
	}

	var err error
	if _, e := c.Layout.LayoutOptions(); e != nil {
		err = multierr.Append(err, e)
	}
	err = multierr.Append(err, reg.Validate(c.Layout.ContractResolvers, c.Layout.TypeConverters))
	if _, e := logger.LookupLevel(c.Sink.Level); e != nil {
		err = multierr.Append(err, fmt.Errorf("config: sink: %w", e))
	}
	if c.Sink.MaxSizeMB < 0 || c.Sink.MaxBackups < 0 || c.Sink.MaxAgeDays < 0 {
		err = multierr.Append(err, errors.New("config: sink: rotation settings must not be negative"))
	}
	return err
}

// LayoutOptions converts the layout section to formatter.Options. The
// caller still sets Registry, Defaults, Diagnostics and Process.
func (l LayoutConfig) LayoutOptions() (formatter.Options, error) {
	var err error
	style, e := formatter.ParseStyle(l.Style)
	err = multierr.Append(err, e)
	scope, e := formatter.ParseScope(l.Scope)
	err = multierr.Append(err, e)
	loops, e := formatter.ParseLoopHandling(l.LoopHandling)
	err = multierr.Append(err, e)
	if err != nil {
		return formatter.Options{}, err
	}

	return formatter.Options{
		DateTimeFormat:    l.DateTimeFormat,
		LoopHandling:      loops,
		SkippedProperties: l.SkippedProperties,
		Style:             style,
		Scope:             scope,
		ConversionPattern: l.ConversionPattern,
		TypeConverters:    append([]string(nil), l.TypeConverters...),
		ContractResolvers: append([]string(nil), l.ContractResolvers...),
	}, nil
}

// Sink is a handler that reports its statistics.
type Sink interface {
	handler.Handler
	Stats() handler.Snapshot
}

// NewSink creates the handler described by s.
func (s SinkConfig) NewSink(f formatter.Formatter, diagnostics *zap.Logger) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(s.Output)) {
	case "", "stdout":
		return handler.NewConsoleHandler(handler.ConsoleConfig{
			Writer:      os.Stdout,
			Formatter:   f,
			Diagnostics: diagnostics,
		}), nil
	case "stderr":
		return handler.NewConsoleHandler(handler.ConsoleConfig{
			Writer:      os.Stderr,
			Formatter:   f,
			Diagnostics: diagnostics,
		}), nil
	}
	h, err := handler.NewFileHandler(handler.FileConfig{
		Filename:    s.Output,
		Formatter:   f,
		MaxSizeMB:   s.MaxSizeMB,
		MaxBackups:  s.MaxBackups,
		MaxAgeDays:  s.MaxAgeDays,
		Compress:    s.Compress,
		LocalTime:   s.LocalTime,
		Diagnostics: diagnostics,
	})
	if err != nil {
		return nil, fmt.Errorf("config: sink: %w", err)
	}
	return h, nil
}

// LevelValue returns the parsed minimum level of the sink.
func (s SinkConfig) LevelValue() (core.Level, error) {
	return logger.LookupLevel(s.Level)
}
