package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/hostAuth/policy"
	"github.com/MrEthical07/hostAuth/session"
)

// PermissionFailureKind classifies permission check failures.
type PermissionFailureKind int

const (
	PermissionFailureNone PermissionFailureKind = iota
	PermissionFailureNoPolicy
	PermissionFailureNotFound
	PermissionFailureExpired
	PermissionFailureStore
)

// PermissionInput is one permission check for an authenticated identity.
type PermissionInput struct {
	Policy   *policy.AuthPolicy
	Identity session.Identity
}

// PermissionResult carries the live record or failure metadata.
type PermissionResult struct {
	Failure PermissionFailureKind
	Err     error
	Record  *session.Record
	// Slid is set when ExpiresAt was pushed forward by this call.
	Slid bool
	// Expired is set when the record had passed its ExpiresAt.
	Expired bool
	// Deleted is set when an expired record was removed by this call.
	Deleted bool
}

// PermissionDeps captures permission flow dependencies.
type PermissionDeps struct {
	Now   func() time.Time
	Store session.Store
}

// RunPermission loads the record for in.Identity and checks it is still live. A
// live record is slid forward by MaxInactivitySeconds in slideExpiration mode. An
// expired record is deleted.
func RunPermission(ctx context.Context, in PermissionInput, deps PermissionDeps) PermissionResult {
	if in.Policy == nil {
		return PermissionResult{Failure: PermissionFailureNoPolicy}
	}
	if in.Identity == nil {
		return PermissionResult{Failure: PermissionFailureNotFound, Err: session.ErrNotFound}
	}

	filter := session.ByIdentity(in.Identity)
	rec, err := deps.Store.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return PermissionResult{Failure: PermissionFailureNotFound, Err: err}
		}
		return PermissionResult{Failure: PermissionFailureStore, Err: err}
	}

	now := nowFrom(deps.Now)
	if rec.ExpiresAt.After(now) {
		if in.Policy.EffectiveMode() != policy.ModeSlideExpiration {
			return PermissionResult{Record: rec}
		}
		expiresAt := now.Add(seconds(in.Policy.MaxInactivitySeconds))
		// A logout that ran since FindOne wins: the slide never re-creates a record.
		if err := deps.Store.UpdateOne(ctx, filter, session.Update{ExpiresAt: &expiresAt}); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return PermissionResult{Failure: PermissionFailureNotFound, Err: err}
			}
			return PermissionResult{Failure: PermissionFailureStore, Err: err, Record: rec}
		}
		rec.ExpiresAt = expiresAt
		return PermissionResult{Record: rec, Slid: true}
	}

	if err := deps.Store.DeleteOne(ctx, filter); err != nil {
		return PermissionResult{Failure: PermissionFailureStore, Err: err, Record: rec, Expired: true}
	}
	return PermissionResult{Failure: PermissionFailureExpired, Record: rec, Expired: true, Deleted: true}
}
