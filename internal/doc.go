// Package internal holds the pieces of hostAuth that are private to the module.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher plus Sink implementations)
//   - flows: pure-function orchestrators for every Engine operation
//
// Nothing here may appear in the public hostAuth API.
package internal
