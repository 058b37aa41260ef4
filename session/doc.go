// Package session defines the permission record kept for every active login and the
// [Store] contract its backends implement.
//
// # Identity keys
//
// A record is looked up by the identity it was created for: the stripped token claims
// plus the binding fields the host requires. Identities are compared structurally by
// hashing their canonical CBOR form (sorted keys, numbers normalized to float64) with
// BLAKE3, see [IdentityKey]. Two identities that would compare equal as JSON documents
// produce the same key.
//
// # Architecture boundaries
//
// This package owns the [Record] model, the [Filter]/[Update] vocabulary, and the codec
// used for record blobs. Backends live in subpackages (memstore, redisstore,
// sqlitestore) and are verified by the shared storetest suite.
//
// # What this package must NOT do
//
//   - Import hostAuth, jwt, or policy (no upward imports).
//   - Decide whether a record is expired; callers compare ExpiresAt themselves.
//   - Store signing keys or secrets.
package session
