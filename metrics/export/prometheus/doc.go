// Package prometheus provides Prometheus collectors for goguard metrics.
//
// [NewPrometheusExporter] accepts a [goguard.Coordinator] and exposes an [http.Handler]
// that renders all goguard counters and histograms in Prometheus text exposition format.
// Counter names are prefixed goguard_*_total; the single histogram is
// goguard_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate coordinator state.
package prometheus
