// Package local is a password-based identity provider for hosts whose provider
// is "local".
//
// [Provider.Authenticate] checks an argon2id password hash and mints the
// provider token that hostAuth.Engine.Login countersigns. The token carries the
// account's "id" and its configured claims.
//
// # What this package must NOT do
//
//   - Store permission records. The Engine owns them.
//   - Tell an unknown identifier apart from a wrong password.
package local
