package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/hostAuth/jwt"
	"github.com/MrEthical07/hostAuth/policy"
	"github.com/MrEthical07/hostAuth/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNoPolicy
	RefreshFailureNotFound
	RefreshFailureExpired
	RefreshFailureTokenExpired
	RefreshFailureTokenInvalid
	RefreshFailureResign
	RefreshFailureStore
)

// RefreshInput is a {jwt, refresh} pair presented to one host.
type RefreshInput struct {
	Policy  *policy.AuthPolicy
	Codec   TokenCodec
	Token   string
	Refresh string
}

// RefreshResult carries the re-signed token or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Record  *session.Record
	Token   string
	Refresh string
	// Expired is set when the record had passed its ExpiresAt.
	Expired bool
	// Deleted is set when an expired record was removed by this call.
	Deleted bool
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Classify func(error) jwt.Class
	Now      func() time.Time
	Store    session.Store
}

// RunRefresh re-signs in.Token when in.Refresh names a live record. The refresh
// value is returned unchanged. A record whose ExpiresAt has passed is deleted.
func RunRefresh(ctx context.Context, in RefreshInput, deps RefreshDeps) RefreshResult {
	if in.Policy == nil || in.Codec == nil {
		return RefreshResult{Failure: RefreshFailureNoPolicy}
	}
	if in.Refresh == "" {
		return RefreshResult{Failure: RefreshFailureNotFound, Err: session.ErrNotFound}
	}

	filter := session.ByRefresh(in.Refresh)
	rec, err := deps.Store.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return RefreshResult{Failure: RefreshFailureNotFound, Err: err}
		}
		return RefreshResult{Failure: RefreshFailureStore, Err: err}
	}

	if rec.ExpiresAt.Before(nowFrom(deps.Now)) {
		if err := deps.Store.DeleteOne(ctx, filter); err != nil {
			return RefreshResult{Failure: RefreshFailureStore, Err: err, Record: rec, Expired: true}
		}
		return RefreshResult{Failure: RefreshFailureExpired, Record: rec, Expired: true, Deleted: true}
	}

	token, err := Resign(in.Codec, in.Policy, in.Token)
	if err != nil {
		var kind RefreshFailureKind
		switch classifyToken(deps.Classify, err) {
		case AuthenticateFailureExpired:
			kind = RefreshFailureTokenExpired
		case AuthenticateFailureInvalid:
			kind = RefreshFailureTokenInvalid
		default:
			kind = RefreshFailureResign
		}
		return RefreshResult{Failure: kind, Err: err, Record: rec}
	}

	return RefreshResult{Record: rec, Token: token, Refresh: in.Refresh}
}

// Resign verifies token ignoring its expiry, strips the registered claims and
// signs the remaining payload again with the host's sign options.
func Resign(codec TokenCodec, p *policy.AuthPolicy, token string) (string, error) {
	claims, err := codec.VerifyIgnoringExpiration(token, p.Verify)
	if err != nil {
		return "", err
	}
	return codec.Sign(jwt.StripRegistered(claims), p.Sign)
}
