// Package metrics exports layout and handler statistics to Prometheus.
//
// A Collector reads the counters of registered layouts and handlers at
// scrape time, so formatting and writing never touch Prometheus types.
package metrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Philipp01105/contextlog/formatter"
	"github.com/Philipp01105/contextlog/handler"
)

// DefaultNamespace prefixes every metric name unless another one is given.
const DefaultNamespace = "contextlog"

// LayoutSource is implemented by formatter.JSONLayout.
type LayoutSource interface {
	Stats() formatter.Snapshot
}

// HandlerSource is implemented by the console and file handlers.
type HandlerSource interface {
	Stats() handler.Snapshot
}

// Collector is a prometheus.Collector over named layouts and handlers.
type Collector struct {
	mu       sync.RWMutex
	layouts  map[string]LayoutSource
	handlers map[string]HandlerSource

	formatted    *prometheus.Desc
	fallbacks    *prometheus.Desc
	policyBuilds *prometheus.Desc
	rejected     *prometheus.Desc
	failures     *prometheus.Desc

	processed *prometheus.Desc
	failed    *prometheus.Desc
	written   *prometheus.Desc
}

// NewCollector creates a collector whose metric names start with
// namespace (DefaultNamespace when empty).
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	layout := []string{"layout"}
	sink := []string{"handler"}
	return &Collector{
		layouts:  make(map[string]LayoutSource),
		handlers: make(map[string]HandlerSource),

		formatted: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "layout", "entries_formatted_total"),
			"Total number of entries formatted by the layout.", layout, nil),
		fallbacks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "layout", "message_fallbacks_total"),
			"Total number of messages replaced by their text rendering because they serialized to an empty object.", layout, nil),
		policyBuilds: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "layout", "policy_builds_total"),
			"Total number of serialization policies built or installed.", layout, nil),
		rejected: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "layout", "rejected_locators_total"),
			"Total number of filter and converter locators skipped because they could not be loaded.", layout, nil),
		failures: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "layout", "failures_total"),
			"Total number of entries the layout could not format.", layout, nil),

		processed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "handler", "entries_written_total"),
			"Total number of entries written by level.", append(sink, "level"), nil),
		failed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "handler", "entries_failed_total"),
			"Total number of entries that could not be formatted or written.", sink, nil),
		written: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "handler", "bytes_written_total"),
			"Total number of bytes written.", sink, nil),
	}
}

// AddLayout registers a layout under name, replacing any previous one.
func (c *Collector) AddLayout(name string, l LayoutSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layouts[name] = l
}

// AddHandler registers a handler under name, replacing any previous one.
func (c *Collector) AddHandler(name string, h HandlerSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = h
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.formatted, c.fallbacks, c.policyBuilds, c.rejected, c.failures,
		c.processed, c.failed, c.written,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, name := range sortedKeys(c.layouts) {
		s := c.layouts[name].Stats()
		counter(ch, c.formatted, s.Formatted, name)
		counter(ch, c.fallbacks, s.Fallbacks, name)
		counter(ch, c.policyBuilds, s.PolicyBuilds, name)
		counter(ch, c.rejected, s.RejectedLocators, name)
		counter(ch, c.failures, s.Failures, name)
	}

	for _, name := range sortedKeys(c.handlers) {
		s := c.handlers[name].Stats()
		for level, n := range s.Processed {
			counter(ch, c.processed, n, name, level.String())
		}
		counter(ch, c.failed, s.FailedTotal, name)
		counter(ch, c.written, s.BytesWritten, name)
	}
}

func counter(ch chan<- prometheus.Metric, desc *prometheus.Desc, v uint64, labels ...string) {
	ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
