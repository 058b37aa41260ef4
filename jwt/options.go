package jwt

import "time"

// SignOptions are applied when a payload is signed. Zero values mean "not set".
type SignOptions struct {
	Algorithm   string
	Issuer      string
	Audience    []string
	JwtID       string
	ExpiresIn   time.Duration
	NotBefore   time.Duration
	NoTimestamp bool
}

// VerifyOptions are applied when a token is verified. Zero values mean "not set".
type VerifyOptions struct {
	Algorithms []string
	Issuer     string
	// Audience matches when the token carries any of the listed values.
	Audience []string
	JwtID    string
	// UnenforcedJwtID is carried for inspection only and never checked.
	UnenforcedJwtID string
	ClockTolerance  time.Duration
	// ClockTimestamp, when non-zero, replaces the current time (unix seconds).
	ClockTimestamp   int64
	MaxAge           time.Duration
	Nonce            string
	IgnoreExpiration bool
}

// Clone returns a deep copy of o.
func (o SignOptions) Clone() SignOptions {
	if o.Audience != nil {
		o.Audience = append([]string(nil), o.Audience...)
	}
	return o
}

// Clone returns a deep copy of o.
func (o VerifyOptions) Clone() VerifyOptions {
	if o.Algorithms != nil {
		o.Algorithms = append([]string(nil), o.Algorithms...)
	}
	if o.Audience != nil {
		o.Audience = append([]string(nil), o.Audience...)
	}
	return o
}
