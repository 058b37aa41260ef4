package flows

import (
	"time"

	"github.com/MrEthical07/hostAuth/jwt"
	"github.com/MrEthical07/hostAuth/policy"
	"github.com/MrEthical07/hostAuth/session"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login        LoginDeps
	Authenticate AuthenticateDeps
	Permission   PermissionDeps
	Refresh      RefreshDeps
	Logout       LogoutDeps
}

// TokenCodec is the part of jwt.Codec the flows use.
type TokenCodec interface {
	Sign(payload map[string]any, opts jwt.SignOptions) (string, error)
	Verify(token string, opts jwt.VerifyOptions) (map[string]any, error)
	VerifyIgnoringExpiration(token string, opts jwt.VerifyOptions) (map[string]any, error)
}

// Binding carries the request attributes a host may bind into identities.
type Binding struct {
	Csrs            string
	FingerprintHash string
}

// BuildIdentity strips the registered claims from claims and adds the binding
// fields p asks for. claims is not modified.
func BuildIdentity(claims map[string]any, p *policy.AuthPolicy, b Binding) session.Identity {
	id := session.Identity(jwt.StripRegistered(claims))
	if p == nil {
		return id
	}
	if p.BindCsrs {
		id["csrs"] = b.Csrs
	}
	if p.BindProvider {
		id["provider"] = p.Provider.Claim()
	}
	if p.BindFingerprint {
		id["fingerprintHash"] = b.FingerprintHash
	}
	return id
}

func nowFrom(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
