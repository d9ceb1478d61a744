// Package prometheus provides Prometheus collectors for credcore metrics.
//
// [NewCollector] adapts [credcore.Engine.MetricsSnapshot] to the
// prometheus.Collector interface for hosts that run their own registry;
// [NewExporter] wraps one in a private registry and exposes an http.Handler.
// Counter names are prefixed credcore_*_total; the single histogram is
// credcore_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global default registry — callers choose where.
//   - Mutate engine state.
package prometheus
