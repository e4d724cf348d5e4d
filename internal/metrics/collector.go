// Package metrics exposes pipe metrics to Prometheus.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zoobzio/metricz"

	"github.com/zoobzio/segz"
)

// Source is anything that owns a pipe metrics registry.
type Source interface {
	Name() segz.Name
	Metrics() *metricz.Registry
}

type series struct {
	key       metricz.Key
	desc      *prometheus.Desc
	valueType prometheus.ValueType
}

func counter(key metricz.Key, name, help string) series {
	return series{
		key:       key,
		desc:      prometheus.NewDesc(name, help, []string{"pipe"}, nil),
		valueType: prometheus.CounterValue,
	}
}

func gauge(key metricz.Key, name, help string) series {
	return series{
		key:       key,
		desc:      prometheus.NewDesc(name, help, []string{"pipe"}, nil),
		valueType: prometheus.GaugeValue,
	}
}

var allSeries = []series{
	counter(segz.PipeInvokedTotal, "segz_pipe_invoked_total", "Pipe invocations."),
	counter(segz.PipeCompletedTotal, "segz_pipe_completed_total", "Invocations whose chain ran to the end."),
	counter(segz.PipeFailedTotal, "segz_pipe_failed_total", "Failed invocations."),
	counter(segz.PipeHaltedTotal, "segz_pipe_halted_total", "Invocations stopped by a segment that did not continue."),
	gauge(segz.PipeSegmentsTotal, "segz_pipe_segments", "Segments in the last invocation."),
	gauge(segz.PipeSegmentsCompleted, "segz_pipe_segments_completed", "Segments that handed off in the last invocation."),
	gauge(segz.PipeDurationMs, "segz_pipe_duration_milliseconds", "Duration of the last invocation."),
}

// Collector is a prometheus.Collector over any number of pipes.
type Collector struct {
	mu      sync.RWMutex
	sources []Source
}

// NewCollector returns a collector tracking sources.
func NewCollector(sources ...Source) *Collector {
	return &Collector{sources: sources}
}

// Track adds a pipe to the collector.
func (c *Collector) Track(s Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, s)
}

// Describe implements prometheus.Collector.
func (*Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, s := range allSeries {
		ch <- s.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, src := range c.sources {
		registry := src.Metrics()
		for _, s := range allSeries {
			var value float64
			if s.valueType == prometheus.CounterValue {
				value = registry.Counter(s.key).Value()
			} else {
				value = registry.Gauge(s.key).Value()
			}
			ch <- prometheus.MustNewConstMetric(s.desc, s.valueType, value, src.Name())
		}
	}
}

// Registry returns a Prometheus registry with c registered.
func Registry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	return reg
}
