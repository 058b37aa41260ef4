// Package otel exposes hostAuth engine metrics through an OpenTelemetry Meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter and
// one Int64ObservableGauge per histogram bucket. A single callback reads
// [hostAuth.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
