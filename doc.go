// Package hostAuth runs the bearer-token session lifecycle for a multi-host
// server: login, authenticate, permission (with sliding expiry), refresh and
// logout, each governed by the policy of the host the request was addressed to.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// A request names its host with [WithHost]. Hosts that bind sessions to the
// client attach the binding values with [WithCSRS] and [WithFingerprintHash];
// a route-level mode override is attached with [WithRouteMode].
//
// # Architecture boundaries
//
// hostAuth is the public surface. It exposes [Engine], [Builder], [Config], the
// error taxonomy ([AuthError], [StatusOf]) and value types (MetricsSnapshot,
// AuditEvent). Flow orchestration and audit dispatch live under internal/ and are
// never exported. Policy resolution lives in policy, host loading in hosts,
// token handling in jwt, and record persistence in session and its backends.
//
// # What this package must NOT do
//
//   - Surface codec or backend error text to clients; use [MessageOf].
//   - Log tokens, refresh values or secrets.
//   - Perform I/O outside of Engine methods and [Builder.Build].
//   - Import any sub-package that re-imports hostAuth (no import cycles).
package hostAuth
