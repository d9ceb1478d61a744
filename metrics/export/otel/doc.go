// Package otel bridges credcore counters and histograms into OpenTelemetry
// observable instruments.
//
// [New] builds an Int64ObservableCounter per credcore counter and cumulative
// bucket gauges for each histogram, then registers one collection callback
// that reads [credcore.Engine.MetricsSnapshot] per reader cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider — callers supply the Meter.
//   - Mutate engine state.
package otel
