package prometheus

import (
	"errors"
	"net/http"

	credcore "github.com/credware/credcore"
	"github.com/credware/credcore/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ErrNilSource is returned when an exporter is built without a metrics source.
var ErrNilSource = errors.New("nil metrics source")

type metricsSource interface {
	MetricsSnapshot() credcore.MetricsSnapshot
	AuditDropped() uint64
}

type counterDesc struct {
	id   credcore.MetricID
	desc *prometheus.Desc
}

type histogramDesc struct {
	id   credcore.MetricID
	desc *prometheus.Desc
}

// Collector implements prometheus.Collector over an engine snapshot. Every
// scrape reads one consistent MetricsSnapshot; no state is kept between
// scrapes.
type Collector struct {
	source     metricsSource
	counters   []counterDesc
	histograms []histogramDesc
	dropped    *prometheus.Desc
}

// NewCollector builds a Collector reading from the given [credcore.Engine].
func NewCollector(engine *credcore.Engine) (*Collector, error) {
	return NewCollectorFromSource(engine)
}

// NewCollectorFromSource builds a Collector from a custom snapshot source.
func NewCollectorFromSource(source metricsSource) (*Collector, error) {
	if source == nil {
		return nil, ErrNilSource
	}

	c := &Collector{
		source:     source,
		counters:   make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms: make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, histogramDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	c.dropped = prometheus.NewDesc(
		"credcore_audit_dropped_total",
		"Dropped audit events due to dispatcher backpressure.",
		nil, nil,
	)
	return c, nil
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, counter := range c.counters {
		ch <- counter.desc
	}
	for _, hist := range c.histograms {
		ch <- hist.desc
	}
	ch <- c.dropped
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.source.MetricsSnapshot()

	for _, counter := range c.counters {
		ch <- prometheus.MustNewConstMetric(
			counter.desc,
			prometheus.CounterValue,
			float64(snapshot.Counters[counter.id]),
		)
	}

	for _, hist := range c.histograms {
		nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[hist.id])
		cumulative := internaldefs.CumulativeBuckets(nonCumulative)

		buckets := make(map[float64]uint64, len(internaldefs.HistogramBoundValues))
		for i, bound := range internaldefs.HistogramBoundValues {
			buckets[bound] = cumulative[i]
		}
		count := cumulative[len(cumulative)-1]

		// The core snapshot carries bucket counts only; sum is not tracked.
		ch <- prometheus.MustNewConstHistogram(hist.desc, count, 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(
		c.dropped,
		prometheus.CounterValue,
		float64(c.source.AuditDropped()),
	)
}

// Exporter owns a private registry with a single Collector and serves it
// over HTTP. Hosts that run their own registry can register a Collector
// directly instead.
type Exporter struct {
	registry *prometheus.Registry
}

// NewExporter builds an Exporter reading from the given [credcore.Engine].
func NewExporter(engine *credcore.Engine) (*Exporter, error) {
	return NewExporterFromSource(engine)
}

// NewExporterFromSource builds an Exporter from a custom snapshot source.
func NewExporterFromSource(source metricsSource) (*Exporter, error) {
	collector, err := NewCollectorFromSource(source)
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return nil, err
	}
	return &Exporter{registry: registry}, nil
}

// Handler returns an http.Handler serving the exporter's registry in
// Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
