// Package jwt is the token codec used by hostAuth: it signs, verifies, and decodes
// claim-map bearer tokens for a host's resolved key material and options.
//
// # Architecture boundaries
//
// The codec knows nothing about sessions, hosts, or the permission store. It receives
// fully resolved [SignOptions] and [VerifyOptions] and reports failures through the
// sentinel errors of github.com/golang-jwt/jwt/v5. Callers translate those failures
// with [Classify] instead of inspecting messages.
//
// # What this package must NOT do
//
//   - Import hostAuth, policy, or session (no upward imports).
//   - Surface key material in errors.
package jwt
