package otel

import (
	"context"
	"errors"
	"fmt"

	credcore "github.com/credware/credcore"
	"github.com/credware/credcore/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned by [New] when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned by [New] when no snapshot source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

// Snapshotter is the read surface of [credcore.Engine] the bridge needs.
type Snapshotter interface {
	MetricsSnapshot() credcore.MetricsSnapshot
	AuditDropped() uint64
}

// histogramInstruments holds the per-bucket gauges and the sample-count
// gauge backing one core histogram. The core snapshot carries bucket counts
// only, so the histogram is exposed as cumulative bucket gauges rather than
// a native OTel histogram.
type histogramInstruments struct {
	id      credcore.MetricID
	buckets []metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Bridge mirrors engine counters and histograms into observable
// OpenTelemetry instruments. Collection is pull-based: every reader cycle
// triggers one callback that reads a single consistent snapshot.
type Bridge struct {
	source Snapshotter

	counters   map[credcore.MetricID]metric.Int64ObservableCounter
	histograms []histogramInstruments
	dropped    metric.Int64ObservableCounter

	registration metric.Registration
}

// New builds the instrument set on meter and registers the collection
// callback. Pass a *credcore.Engine as the source, or anything exposing the
// same snapshot methods. Close the bridge to unregister.
func New(meter metric.Meter, source Snapshotter) (*Bridge, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	b := &Bridge{
		source:   source,
		counters: make(map[credcore.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}

	var observables []metric.Observable
	track := func(ins metric.Observable) { observables = append(observables, ins) }

	for _, def := range internaldefs.CounterDefs {
		counter, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		b.counters[def.ID] = counter
		track(counter)
	}

	for _, def := range internaldefs.HistogramDefs {
		hist, err := buildHistogram(meter, def)
		if err != nil {
			return nil, err
		}
		b.histograms = append(b.histograms, hist)
		for _, g := range hist.buckets {
			track(g)
		}
		track(hist.count)
	}

	dropped, err := meter.Int64ObservableCounter(
		"credcore_audit_dropped_total",
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("audit dropped counter: %w", err)
	}
	b.dropped = dropped
	track(dropped)

	registration, err := meter.RegisterCallback(b.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	b.registration = registration
	return b, nil
}

func buildHistogram(meter metric.Meter, def internaldefs.HistogramDef) (histogramInstruments, error) {
	hist := histogramInstruments{
		id:      def.ID,
		buckets: make([]metric.Int64ObservableGauge, 0, len(internaldefs.HistogramBoundSuffix)),
	}

	for _, suffix := range internaldefs.HistogramBoundSuffix {
		name := def.Name + "_bucket_le_" + suffix
		gauge, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
		if err != nil {
			return histogramInstruments{}, fmt.Errorf("bucket gauge %s: %w", name, err)
		}
		hist.buckets = append(hist.buckets, gauge)
	}

	count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Histogram total sample count."))
	if err != nil {
		return histogramInstruments{}, fmt.Errorf("count gauge %s_count: %w", def.Name, err)
	}
	hist.count = count
	return hist, nil
}

// observe is the registered callback: one snapshot per collection cycle.
func (b *Bridge) observe(_ context.Context, observer metric.Observer) error {
	snapshot := b.source.MetricsSnapshot()

	for id, counter := range b.counters {
		observer.ObserveInt64(counter, int64(snapshot.Counters[id]))
	}

	for _, hist := range b.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[hist.id]))
		for i, gauge := range hist.buckets {
			observer.ObserveInt64(gauge, int64(cumulative[i]))
		}
		observer.ObserveInt64(hist.count, int64(cumulative[len(cumulative)-1]))
	}

	observer.ObserveInt64(b.dropped, int64(b.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (b *Bridge) Close() error {
	if b == nil || b.registration == nil {
		return nil
	}
	return b.registration.Unregister()
}
