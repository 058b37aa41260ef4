package policy

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/MrEthical07/hostAuth/jwt"
)

const (
	// DefaultMaxInactivitySeconds is applied when a host leaves maxInactivitySeconds unset.
	DefaultMaxInactivitySeconds = 1800
	// DefaultRefreshInSeconds is applied when a host leaves refreshInSeconds unset.
	DefaultRefreshInSeconds = 86400
	// DefaultExpiresIn is the token lifetime in refreshTokens mode.
	DefaultExpiresIn = "30m"
	// LocalProvider is the provider name that makes issuer derivation use the
	// application's own name.
	LocalProvider = "local"
)

// ProviderID is a provider identifier that may be written as a number or a string.
type ProviderID string

// UnmarshalJSON accepts a string or a number.
func (p *ProviderID) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*p = ""
	case string:
		*p = ProviderID(v)
	case float64:
		*p = ProviderID(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return fmt.Errorf("policy: provider id must be a string or number, got %T", raw)
	}
	return nil
}

// Provider describes who issued the tokens this host accepts at login.
type Provider struct {
	Name    string     `json:"name,omitempty"`
	ID      ProviderID `json:"id,omitempty"`
	Trusted bool       `json:"trusted,omitempty"`
}

// Claim returns the descriptor in the form bound into session identities.
func (p Provider) Claim() map[string]any {
	return map[string]any{
		"name":    p.Name,
		"id":      string(p.ID),
		"trusted": p.Trusted,
	}
}

// Raw is a host's `auth` section as declared in configuration.
type Raw struct {
	Mode                 Mode      `json:"mode,omitempty"`
	Algorithm            string    `json:"algorithm,omitempty"`
	Issuer               ClaimRule `json:"issuer"`
	Audience             ClaimRule `json:"audience"`
	JwtID                ClaimRule `json:"jwtid"`
	MaxInactivitySeconds int       `json:"maxInactivitySeconds,omitempty"`
	RefreshInSeconds     int       `json:"refreshInSeconds,omitempty"`
	BindCsrs             bool      `json:"bindCsrs,omitempty"`
	BindProvider         bool      `json:"bindProvider,omitempty"`
	BindFingerprint      bool      `json:"bindFingerprint,omitempty"`
	NoTimestamp          bool      `json:"noTimestamp,omitempty"`
	Provider             Provider  `json:"provider"`

	// Applied only in refreshTokens mode.
	ExpiresIn      Span   `json:"expiresIn,omitempty"`
	NotBefore      Span   `json:"notBefore,omitempty"`
	ClockTolerance int    `json:"clockTolerance,omitempty"`
	ClockTimestamp int64  `json:"clockTimestamp,omitempty"`
	MaxAge         Span   `json:"maxAge,omitempty"`
	Nonce          string `json:"nonce,omitempty"`
}

// Keys carries key material already read from configuration.
type Keys struct {
	Secret     []byte
	PrivateKey []byte
	PublicKey  []byte
}

// Context is the process- and host-level information resolution depends on.
type Context struct {
	// AppName replaces the issuer when the provider is "local".
	AppName string
	// ServerNames are the names the host answers to. Verification accepts any of
	// them as audience.
	ServerNames []string
}

// AuthPolicy is a host's effective authentication policy. It is immutable after
// Resolve; share it freely between goroutines.
type AuthPolicy struct {
	Mode                 Mode
	Algorithm            string
	Issuer               ClaimRule
	Audience             ClaimRule
	JwtID                ClaimRule
	MaxInactivitySeconds int
	RefreshInSeconds     int
	BindCsrs             bool
	BindProvider         bool
	BindFingerprint      bool
	NoTimestamp          bool
	Provider             Provider

	SigningKey      []byte
	VerificationKey []byte

	Sign   jwt.SignOptions
	Verify jwt.VerifyOptions
}

// WithMode returns a copy of p governed by mode. Signing and verification options
// are left untouched.
func (p *AuthPolicy) WithMode(mode Mode) *AuthPolicy {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Mode = mode
	cp.Sign = p.Sign.Clone()
	cp.Verify = p.Verify.Clone()
	return &cp
}

// EffectiveMode returns the normalized mode.
func (p *AuthPolicy) EffectiveMode() Mode {
	if p == nil {
		return ModeFixed
	}
	return p.Mode.Normalize()
}

// SessionLifetimeSeconds is the window granted at login: RefreshInSeconds in
// refreshTokens mode, MaxInactivitySeconds otherwise.
func (p *AuthPolicy) SessionLifetimeSeconds() int {
	if p.EffectiveMode() == ModeRefreshTokens {
		return p.RefreshInSeconds
	}
	return p.MaxInactivitySeconds
}
