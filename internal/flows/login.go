package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/hostAuth/policy"
	"github.com/MrEthical07/hostAuth/session"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureNoPolicy
	LoginFailureDecode
	LoginFailureSign
	LoginFailureStore
)

// LoginInput is one login request against one host.
type LoginInput struct {
	Policy        *policy.AuthPolicy
	Codec         TokenCodec
	Binding       Binding
	ProviderToken string
	ProviderUser  map[string]any
}

// LoginResult carries the issued token pair or failure metadata.
type LoginResult struct {
	Failure   LoginFailureKind
	Err       error
	Identity  session.Identity
	Token     string
	Refresh   string
	ExpiresAt time.Time
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Decode     func(string) (map[string]any, error)
	Now        func() time.Time
	NewRefresh func() string
	Store      session.Store
}

// RunLogin countersigns a provider token and records the resulting permission.
// The provider token is decoded without verification; the provider is trusted
// upstream. The stored record is keyed by the identity, so logging in again
// with the same identity overwrites the previous permission.
func RunLogin(ctx context.Context, in LoginInput, deps LoginDeps) LoginResult {
	if in.Policy == nil || in.Codec == nil {
		return LoginResult{Failure: LoginFailureNoPolicy}
	}

	claims, err := deps.Decode(in.ProviderToken)
	if err != nil {
		return LoginResult{Failure: LoginFailureDecode, Err: err}
	}
	payload := BuildIdentity(claims, nil, Binding{})
	identity := BuildIdentity(claims, in.Policy, in.Binding)

	token, err := in.Codec.Sign(payload, in.Policy.Sign)
	if err != nil {
		return LoginResult{Failure: LoginFailureSign, Err: err, Identity: identity}
	}

	now := nowFrom(deps.Now)
	expiresAt := now.Add(seconds(in.Policy.SessionLifetimeSeconds()))
	providerToken := in.ProviderToken
	update := session.Update{
		Token:     &providerToken,
		IssuedAt:  &now,
		ExpiresAt: &expiresAt,
	}
	if in.Policy.Provider.Trusted {
		update.User = in.ProviderUser
	}
	var refresh string
	if in.Policy.EffectiveMode() == policy.ModeRefreshTokens {
		refresh = deps.NewRefresh()
		update.Refresh = &refresh
	}

	if err := deps.Store.UpsertOne(ctx, session.ByIdentity(identity), update); err != nil {
		return LoginResult{Failure: LoginFailureStore, Err: err, Identity: identity}
	}

	return LoginResult{
		Identity:  identity,
		Token:     token,
		Refresh:   refresh,
		ExpiresAt: expiresAt,
	}
}
