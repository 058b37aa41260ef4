// Package policy resolves a host's declarative authentication section into an
// effective, fully defaulted [AuthPolicy].
//
// Resolution is pure: it performs no I/O, never mutates its input, and yields the same
// AuthPolicy for the same input. Key files are read by the caller (see package hosts)
// and handed in as [Keys].
//
// Route-level fragments go through [CleanLocation], which keeps at most a session mode
// switch. Routes cannot change how tokens are signed or verified.
package policy
