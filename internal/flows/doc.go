// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunAuthenticate, RunPermission, RunRefresh,
// RunLogout) accepts the per-request input plus a typed dependency struct and
// returns a result that classifies failures with a FailureKind. The root package
// maps those kinds onto its public error taxonomy.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the permission store and the host token
// codec. They do NOT own either resource; ownership stays with the Engine. The
// effective policy and codec of the request's host are passed in as input, so
// a single Deps value serves every host.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import hostAuth (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency interfaces.
//   - Surface codec errors to callers without classifying them.
package flows
