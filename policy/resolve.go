package policy

import (
	"time"
)

// Resolve turns raw into an effective AuthPolicy. A nil raw section means the host
// is unauthenticated and yields nil.
func Resolve(raw *Raw, keys Keys, rc Context) *AuthPolicy {
	if raw == nil {
		return nil
	}

	p := &AuthPolicy{
		Mode:                 raw.Mode,
		Algorithm:            raw.Algorithm,
		Issuer:               raw.Issuer.direct(RuleFromProvider),
		Audience:             raw.Audience.direct(RuleFromHost),
		JwtID:                raw.JwtID.direct(RuleFromProvider),
		MaxInactivitySeconds: raw.MaxInactivitySeconds,
		RefreshInSeconds:     raw.RefreshInSeconds,
		BindCsrs:             raw.BindCsrs,
		BindProvider:         raw.BindProvider,
		BindFingerprint:      raw.BindFingerprint,
		NoTimestamp:          raw.NoTimestamp,
		Provider:             raw.Provider,
	}

	// A shared secret serves both roles.
	if len(keys.Secret) > 0 {
		p.SigningKey = cloneBytes(keys.Secret)
		p.VerificationKey = cloneBytes(keys.Secret)
	} else {
		p.SigningKey = cloneBytes(keys.PrivateKey)
		p.VerificationKey = cloneBytes(keys.PublicKey)
	}

	if p.MaxInactivitySeconds <= 0 {
		p.MaxInactivitySeconds = DefaultMaxInactivitySeconds
	}
	if p.RefreshInSeconds <= 0 {
		p.RefreshInSeconds = DefaultRefreshInSeconds
	}

	if raw.Algorithm != "" {
		p.Sign.Algorithm = raw.Algorithm
	}

	resolveIssuer(p, rc)
	resolveJwtID(p, rc)
	resolveAudience(p, rc)

	if raw.NoTimestamp {
		p.Sign.NoTimestamp = true
	}

	if raw.Mode == ModeRefreshTokens {
		p.Sign.ExpiresIn = raw.ExpiresIn.Duration()
		if p.Sign.ExpiresIn <= 0 {
			p.Sign.ExpiresIn = defaultExpiresIn()
		}
		if raw.NotBefore > 0 {
			p.Sign.NotBefore = raw.NotBefore.Duration()
		}
		if raw.ClockTolerance > 0 {
			p.Verify.ClockTolerance = time.Duration(raw.ClockTolerance) * time.Second
		}
		if raw.ClockTimestamp != 0 {
			p.Verify.ClockTimestamp = raw.ClockTimestamp
		}
		if raw.MaxAge > 0 {
			p.Verify.MaxAge = raw.MaxAge.Duration()
		}
		if raw.Nonce != "" {
			p.Verify.Nonce = raw.Nonce
		}
	}

	return p
}

func resolveIssuer(p *AuthPolicy, rc Context) {
	var issuer string
	switch p.Issuer.Kind {
	case RuleLiteral:
		issuer = p.Issuer.Value
	case RuleFromProvider:
		if p.Provider.Name == "" {
			return
		}
		issuer = p.Provider.Name
		if issuer == LocalProvider {
			issuer = rc.AppName
		}
	case RuleFromHost:
		issuer = firstName(rc)
	default:
		return
	}
	p.Sign.Issuer = issuer
	p.Verify.Issuer = issuer
}

func resolveJwtID(p *AuthPolicy, rc Context) {
	switch p.JwtID.Kind {
	case RuleLiteral:
		p.Sign.JwtID = p.JwtID.Value
		p.Verify.JwtID = p.JwtID.Value
	case RuleFromProvider, RuleFromHost:
		id := string(p.Provider.ID)
		if p.JwtID.Kind == RuleFromHost {
			id = firstName(rc)
		}
		if id == "" {
			return
		}
		// The verify side only records the derived id; it is never enforced.
		p.Sign.JwtID = id
		p.Verify.UnenforcedJwtID = id
	}
}

func resolveAudience(p *AuthPolicy, rc Context) {
	if !p.Audience.Set() {
		return
	}
	switch p.Audience.Kind {
	case RuleLiteral:
		p.Sign.Audience = []string{p.Audience.Value}
	case RuleFromProvider:
		if p.Provider.Name != "" {
			p.Sign.Audience = []string{p.Provider.Name}
		}
	default:
		p.Sign.Audience = cloneStrings(rc.ServerNames)
	}
	p.Verify.Audience = cloneStrings(rc.ServerNames)
}

func defaultExpiresIn() time.Duration {
	span, err := ParseSpan(DefaultExpiresIn)
	if err != nil {
		return 30 * time.Minute
	}
	return span.Duration()
}

func firstName(rc Context) string {
	if len(rc.ServerNames) == 0 {
		return ""
	}
	return rc.ServerNames[0]
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}
