// Package middleware adapts hostAuth.Engine to net/http.
//
// # Handlers
//
//   - [Bind] attaches the host name, csrs cookie and client fingerprint to the
//     request context.
//   - [RequireSession] binds the request, authorizes its bearer token and
//     injects the identity and record.
//   - [RefreshHandler] exchanges a token and refresh value for a new token.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Every decision is
// the Engine's; failures are written with hostAuth.StatusOf and
// hostAuth.MessageOf.
//
// # What this package must NOT do
//
//   - Parse or sign tokens.
//   - Touch the permission store.
//   - Route requests. Mounting is the caller's.
package middleware
