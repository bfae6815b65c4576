package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Philipp01105/contextlog/config"
	"github.com/Philipp01105/contextlog/formatter"
	"github.com/Philipp01105/contextlog/logger"
	"github.com/Philipp01105/contextlog/metrics"
)

// Data is a self-referencing sample payload.
type Data struct {
	Value       int
	Float       float64
	Text        string
	Date        time.Time
	OtherData   *Data
	Obj         any
	NullableInt *int
	Dict        map[string]int
}

type options struct {
	configFile  string
	envFiles    []string
	level       string
	dumpMetrics bool
	verbose     bool
}

func main() {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "contextlog-demo",
		Short: "Write sample entries through the JSON layout",
		Long: "contextlog-demo loads a layout configuration from a YAML file and CONTEXTLOG_* " +
			"environment variables, then logs plain text, object messages, cyclic graphs and errors.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "YAML configuration file")
	flags.StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load before reading the environment")
	flags.StringVar(&opts.level, "level", "", "minimum level (overrides the sink level)")
	flags.BoolVar(&opts.dumpMetrics, "metrics", false, "print layout and handler metrics on exit")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "print configuration diagnostics")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.configFile, opts.envFiles...)
	if err != nil {
		return err
	}
	if opts.level != "" {
		cfg.Sink.Level = opts.level
	}
	if err := cfg.Validate(nil); err != nil {
		return err
	}

	diag := zap.NewNop()
	if opts.verbose {
		if diag, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer diag.Sync()
	}

	layoutOpts, err := cfg.Layout.LayoutOptions()
	if err != nil {
		return err
	}
	layoutOpts.Diagnostics = diag
	layout, err := formatter.NewJSONLayout(layoutOpts)
	if err != nil {
		return err
	}

	sink, err := cfg.Sink.NewSink(layout, diag)
	if err != nil {
		return err
	}
	level, err := cfg.Sink.LevelValue()
	if err != nil {
		return err
	}

	collector := metrics.NewCollector("")
	collector.AddLayout("main", layout)
	collector.AddHandler(cfg.Sink.Output, sink)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collector)

	log := logger.NewBuilder().
		WithHandler(sink).
		WithLevel(level).
		WithName(cfg.Name).
		WithCaller(true).
		Build()

	writeSamples(log)

	if err := log.Close(); err != nil {
		return err
	}
	if opts.dumpMetrics {
		return dumpMetrics(reg)
	}
	return nil
}

func writeSamples(log *logger.Logger) {
	ten := 10
	data := &Data{
		Value: 10,
		Date:  time.Now().UTC(),
		OtherData: &Data{
			Value: 12,
			Float: 12.345,
			Text:  "\" \\ / \b \f \n \r \t .",
		},
		Obj:         []int{1, 2, 3},
		NullableInt: &ten,
		Dict:        map[string]int{"aaaa": 1, "bbb": 2},
		Text:        "simple text",
	}
	data.OtherData.OtherData = data

	type info struct {
		Info string `json:"info"`
	}
	now := time.Now()
	today := now.Truncate(24 * time.Hour)

	log.Info(info{Info: "log message"})
	log.Info(info{Info: "log message"}, logger.Err(errors.New("exception message")))
	log.Infof("log message %v", now)
	log.Infof("log message %v %v", today, now)
	log.Infof("log message %d %v %v", now.Month(), today, now)

	log.Info(data)
	log.Info(struct {
		Obj *Data
		Exc error
	}{Obj: data, Exc: errors.New("exception message")})
	log.Infof("log message %v %v", now, data.Value)
	log.Named("orders").Info("order placed", logger.Int("order.id", 7), logger.Float64("order.total", 9.5))
}

func dumpMetrics(reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(os.Stderr, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
