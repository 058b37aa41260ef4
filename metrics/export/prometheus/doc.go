// Package prometheus renders hostAuth engine metrics in the Prometheus text
// exposition format.
//
// [NewPrometheusExporter] reads from a [hostAuth.Engine] and serves an
// [http.Handler]. Counters are named hostauth_*_total; the single histogram
// is hostauth_permission_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
