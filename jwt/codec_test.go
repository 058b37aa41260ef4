package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("secret-secret-secret-secret-secret")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newHMACCodec(t *testing.T, now time.Time) *Codec {
	t.Helper()
	c, err := NewCodec("HS256", testSecret, testSecret, WithClock(fixedClock(now)))
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return c
}

func TestSignVerifyRoundTripKeepsPayload(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newHMACCodec(t, now)

	token, err := c.Sign(map[string]any{"id": "u1", "role": "admin"}, SignOptions{
		Issuer:    "issuer-a",
		Audience:  []string{"example.com"},
		JwtID:     "7",
		ExpiresIn: 30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	payload, err := c.Verify(token, VerifyOptions{Issuer: "issuer-a", Audience: []string{"example.com"}, JwtID: "7"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if payload["id"] != "u1" || payload["role"] != "admin" {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if payload["iat"].(float64) != float64(now.Unix()) {
		t.Fatalf("expected iat %d, got %v", now.Unix(), payload["iat"])
	}
	if payload["exp"].(float64) != float64(now.Add(30*time.Minute).Unix()) {
		t.Fatalf("unexpected exp %v", payload["exp"])
	}
}

func TestSignNoTimestampOmitsIssuedAt(t *testing.T) {
	c := newHMACCodec(t, time.Unix(1_700_000_000, 0))
	token, err := c.Sign(map[string]any{"id": "u1"}, SignOptions{NoTimestamp: true})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	payload, err := Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := payload["iat"]; ok {
		t.Fatalf("expected no iat, got %#v", payload)
	}
}

func TestVerifyExpiredClassifiesAsExpired(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0)
	signer := newHMACCodec(t, issued)
	token, err := signer.Sign(map[string]any{"id": "u1"}, SignOptions{ExpiresIn: time.Minute})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	later := newHMACCodec(t, issued.Add(2*time.Minute))
	_, err = later.Verify(token, VerifyOptions{})
	if Classify(err) != ClassExpired {
		t.Fatalf("expected expired class, got %v (%v)", Classify(err), err)
	}

	if _, err := later.VerifyIgnoringExpiration(token, VerifyOptions{}); err != nil {
		t.Fatalf("expected ignore-expiration verify to pass: %v", err)
	}

	tolerant := VerifyOptions{ClockTolerance: 5 * time.Minute}
	if _, err := later.Verify(token, tolerant); err != nil {
		t.Fatalf("expected clock tolerance to absorb expiry: %v", err)
	}
}

func TestVerifyMaxAgeExceededIsExpired(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0)
	token, err := newHMACCodec(t, issued).Sign(map[string]any{"id": "u1"}, SignOptions{})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err = newHMACCodec(t, issued.Add(time.Hour)).Verify(token, VerifyOptions{MaxAge: time.Minute})
	if Classify(err) != ClassExpired {
		t.Fatalf("expected maxAge to classify as expired, got %v", err)
	}
}

func TestVerifyClaimMismatchesAreInvalid(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newHMACCodec(t, now)
	token, err := c.Sign(map[string]any{"id": "u1", "nonce": "n1"}, SignOptions{Issuer: "a", Audience: []string{"x"}})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	cases := map[string]VerifyOptions{
		"issuer":   {Issuer: "b"},
		"audience": {Audience: []string{"y"}},
		"jwtid":    {JwtID: "missing"},
		"nonce":    {Nonce: "n2"},
	}
	for name, opts := range cases {
		if _, err := c.Verify(token, opts); Classify(err) != ClassInvalid {
			t.Fatalf("%s: expected invalid class, got %v", name, err)
		}
	}

	if _, err := c.Verify(token, VerifyOptions{Audience: []string{"y", "x"}}); err != nil {
		t.Fatalf("expected any-of audience match: %v", err)
	}
	if _, err := c.Verify(token, VerifyOptions{UnenforcedJwtID: "anything"}); err != nil {
		t.Fatalf("expected unenforced jwtid to be ignored: %v", err)
	}
}

func TestVerifyRejectsForeignSignatureAndGarbage(t *testing.T) {
	c := newHMACCodec(t, time.Now())
	other, err := NewCodec("HS256", []byte("another-secret-another-secret"), nil)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	token, err := other.Sign(map[string]any{"id": "u1"}, SignOptions{})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.Verify(token, VerifyOptions{}); Classify(err) != ClassInvalid {
		t.Fatalf("expected invalid signature, got %v", err)
	}
	if _, err := c.Verify("not.a.jwt", VerifyOptions{}); Classify(err) != ClassInvalid {
		t.Fatalf("expected malformed token to be invalid, got %v", err)
	}
}

func TestVerifyNotYetValidIsInvalid(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newHMACCodec(t, now)
	token, err := c.Sign(map[string]any{"id": "u1"}, SignOptions{NotBefore: time.Hour})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err = c.Verify(token, VerifyOptions{})
	if !errors.Is(err, gjwt.ErrTokenNotValidYet) {
		t.Fatalf("expected not-valid-yet error, got %v", err)
	}
	if Classify(err) != ClassInvalid {
		t.Fatalf("expected nbf failure to classify as invalid, got %v", Classify(err))
	}

	later := newHMACCodec(t, now.Add(2*time.Hour))
	if _, err := later.Verify(token, VerifyOptions{}); err != nil {
		t.Fatalf("expected token to verify after nbf: %v", err)
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	c, err := NewCodec("EdDSA", priv, pub)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{"id": "u1"})
	token, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := c.Verify(token, VerifyOptions{}); Classify(err) != ClassInvalid {
		t.Fatalf("expected wrong algorithm to be rejected as invalid, got %v", err)
	}

	own, err := c.Sign(map[string]any{"id": "u1"}, SignOptions{})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.Verify(own, VerifyOptions{}); err != nil {
		t.Fatalf("expected EdDSA round trip: %v", err)
	}
}

func TestMissingKeysAreConfigurationErrors(t *testing.T) {
	verifyOnly, err := NewCodec("HS256", nil, testSecret)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	if _, err := verifyOnly.Sign(map[string]any{}, SignOptions{}); err != ErrNoSigningKey {
		t.Fatalf("expected ErrNoSigningKey, got %v", err)
	}

	signOnly, err := NewCodec("HS256", testSecret, nil)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	_, err = signOnly.Verify("a.b.c", VerifyOptions{})
	if err != ErrNoVerificationKey || Classify(err) != ClassOther {
		t.Fatalf("expected ErrNoVerificationKey as ClassOther, got %v", err)
	}

	if _, err := NewCodec("none", nil, nil); err == nil {
		t.Fatal("expected unsupported algorithm")
	}
}

func TestStripRegisteredLeavesApplicationClaims(t *testing.T) {
	in := map[string]any{"iat": 1, "nbf": 1, "exp": 1, "iss": "i", "aud": "a", "sub": "s", "jti": "j", "id": "u1"}
	out := StripRegistered(in)
	if len(out) != 1 || out["id"] != "u1" {
		t.Fatalf("unexpected stripped payload %#v", out)
	}
	if len(in) != 8 {
		t.Fatal("input payload must not be modified")
	}
}
