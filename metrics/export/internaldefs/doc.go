// Package internaldefs holds the metric names and bucket bounds shared by the
// exporters, so that Prometheus and OpenTelemetry output never drift apart.
//
// # What this package must NOT do
//
//   - Import an exporter package.
//   - Perform I/O.
package internaldefs
