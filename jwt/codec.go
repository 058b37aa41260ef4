package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RegisteredClaims lists the claims stripped from every payload before it is
// treated as application identity.
var RegisteredClaims = []string{"iat", "nbf", "exp", "iss", "aud", "sub", "jti"}

// Codec signs and verifies tokens for one set of key material.
//
// Codec instances are immutable after NewCodec and safe for concurrent use.
type Codec struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	now       func() time.Time
}

// Option customizes a Codec.
type Option func(*Codec)

// WithClock replaces time.Now for issued-at stamping and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec parses signingKey and verificationKey for algorithm. Either key may be
// empty; the corresponding operation then fails with ErrNoSigningKey or
// ErrNoVerificationKey.
func NewCodec(algorithm string, signingKey, verificationKey []byte, opts ...Option) (*Codec, error) {
	method, family, err := lookupMethod(algorithm)
	if err != nil {
		return nil, err
	}
	signKey, err := parseSignKey(family, signingKey)
	if err != nil {
		return nil, err
	}
	verifyKey, err := parseVerifyKey(family, verificationKey)
	if err != nil {
		return nil, err
	}

	c := &Codec{
		method:    method,
		signKey:   signKey,
		verifyKey: verifyKey,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Algorithm returns the JOSE name of the signing algorithm.
func (c *Codec) Algorithm() string {
	return c.method.Alg()
}

// Sign serializes payload with the registered claims implied by opts. The payload
// map is not modified.
func (c *Codec) Sign(payload map[string]any, opts SignOptions) (string, error) {
	if c.signKey == nil {
		return "", ErrNoSigningKey
	}
	if opts.Algorithm != "" && opts.Algorithm != c.method.Alg() {
		return "", fmt.Errorf("%w: %q does not match codec algorithm", ErrUnsupportedAlgorithm, opts.Algorithm)
	}

	claims := make(jwt.MapClaims, len(payload)+6)
	for k, v := range payload {
		claims[k] = v
	}

	base := c.now().Unix()
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		base = iat.Unix()
	}
	if opts.NoTimestamp {
		delete(claims, "iat")
	} else {
		claims["iat"] = base
	}
	if opts.ExpiresIn > 0 {
		claims["exp"] = base + int64(opts.ExpiresIn/time.Second)
	}
	if opts.NotBefore > 0 {
		claims["nbf"] = base + int64(opts.NotBefore/time.Second)
	}
	if opts.Issuer != "" {
		claims["iss"] = opts.Issuer
	}
	switch len(opts.Audience) {
	case 0:
	case 1:
		claims["aud"] = opts.Audience[0]
	default:
		claims["aud"] = append([]string(nil), opts.Audience...)
	}
	if opts.JwtID != "" {
		claims["jti"] = opts.JwtID
	}

	return jwt.NewWithClaims(c.method, claims).SignedString(c.signKey)
}

// Verify checks the signature and the claims required by opts and returns the
// full payload, registered claims included.
func (c *Codec) Verify(token string, opts VerifyOptions) (map[string]any, error) {
	if c.verifyKey == nil {
		return nil, ErrNoVerificationKey
	}

	algs := opts.Algorithms
	if len(algs) == 0 {
		algs = []string{c.method.Alg()}
	}
	parser := jwt.NewParser(jwt.WithValidMethods(algs), jwt.WithoutClaimsValidation())

	claims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.verifyKey, nil
	})
	if err != nil {
		return nil, err
	}
	if err := c.validateClaims(claims, opts); err != nil {
		return nil, err
	}
	return map[string]any(claims), nil
}

// VerifyIgnoringExpiration is Verify with the exp check disabled.
func (c *Codec) VerifyIgnoringExpiration(token string, opts VerifyOptions) (map[string]any, error) {
	opts.IgnoreExpiration = true
	return c.Verify(token, opts)
}

// Decode returns the payload without verifying the signature. It is meant for
// tokens minted by an external provider that was already trusted upstream.
func Decode(token string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return map[string]any(claims), nil
}

// Decode is the package-level Decode, exposed on the codec for symmetry.
func (c *Codec) Decode(token string) (map[string]any, error) {
	return Decode(token)
}

// StripRegistered returns a copy of payload without the registered claims.
func StripRegistered(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	for _, name := range RegisteredClaims {
		delete(out, name)
	}
	return out
}

func (c *Codec) validateClaims(claims jwt.MapClaims, opts VerifyOptions) error {
	now := c.now()
	if opts.ClockTimestamp != 0 {
		now = time.Unix(opts.ClockTimestamp, 0)
	}
	tolerance := opts.ClockTolerance

	nbf, err := claims.GetNotBefore()
	if err != nil {
		return err
	}
	if nbf != nil && nbf.After(now.Add(tolerance)) {
		return fmt.Errorf("%w: jwt not active", jwt.ErrTokenNotValidYet)
	}

	if !opts.IgnoreExpiration {
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return err
		}
		if exp != nil && !now.Before(exp.Add(tolerance)) {
			return fmt.Errorf("%w: jwt expired", jwt.ErrTokenExpired)
		}
	}

	if opts.Issuer != "" {
		iss, err := claims.GetIssuer()
		if err != nil {
			return err
		}
		if iss != opts.Issuer {
			return fmt.Errorf("%w: jwt issuer invalid", jwt.ErrTokenInvalidIssuer)
		}
	}

	if len(opts.Audience) > 0 {
		aud, err := claims.GetAudience()
		if err != nil {
			return err
		}
		if !audienceMatches(aud, opts.Audience) {
			return fmt.Errorf("%w: jwt audience invalid", jwt.ErrTokenInvalidAudience)
		}
	}

	if opts.JwtID != "" {
		jti, _ := claims["jti"].(string)
		if jti != opts.JwtID {
			return fmt.Errorf("%w: jwt jwtid invalid", jwt.ErrTokenInvalidId)
		}
	}

	if opts.Nonce != "" {
		nonce, _ := claims["nonce"].(string)
		if nonce != opts.Nonce {
			return fmt.Errorf("%w: jwt nonce invalid", jwt.ErrTokenInvalidClaims)
		}
	}

	if opts.MaxAge > 0 {
		iat, err := claims.GetIssuedAt()
		if err != nil {
			return err
		}
		if iat == nil {
			return fmt.Errorf("%w: iat required when maxAge is specified", jwt.ErrTokenRequiredClaimMissing)
		}
		if !now.Before(iat.Add(opts.MaxAge + tolerance)) {
			return fmt.Errorf("%w: maxAge exceeded", jwt.ErrTokenExpired)
		}
	}

	return nil
}

func audienceMatches(have jwt.ClaimStrings, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// Class is the coarse category of a codec failure.
type Class int

const (
	// ClassOther covers configuration and unexpected failures.
	ClassOther Class = iota
	// ClassExpired covers exp and maxAge failures.
	ClassExpired
	// ClassInvalid covers malformed tokens, bad signatures, and claim mismatches.
	ClassInvalid
)

// invalidErrors are client-side token faults. Malformed and not-yet-valid
// tokens belong here, not in ClassOther.
var invalidErrors = []error{
	jwt.ErrTokenMalformed,
	jwt.ErrTokenSignatureInvalid,
	jwt.ErrSignatureInvalid,
	jwt.ErrTokenInvalidClaims,
	jwt.ErrTokenNotValidYet,
	jwt.ErrTokenUsedBeforeIssued,
	jwt.ErrTokenInvalidIssuer,
	jwt.ErrTokenInvalidAudience,
	jwt.ErrTokenInvalidSubject,
	jwt.ErrTokenInvalidId,
	jwt.ErrTokenRequiredClaimMissing,
	jwt.ErrInvalidType,
}

// Classify maps a codec error onto a Class.
func Classify(err error) Class {
	if err == nil {
		return ClassOther
	}
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ClassExpired
	}
	for _, target := range invalidErrors {
		if errors.Is(err, target) {
			return ClassInvalid
		}
	}
	return ClassOther
}
