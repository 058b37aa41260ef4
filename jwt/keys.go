package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAlgorithm is used when a host does not name one.
const DefaultAlgorithm = "HS256"

var (
	// ErrUnsupportedAlgorithm is returned for algorithms outside the HMAC, RSA,
	// RSA-PSS, ECDSA, and EdDSA families.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	// ErrNoSigningKey is returned by Sign when the host has no signing key.
	ErrNoSigningKey = errors.New("no signing key configured")
	// ErrNoVerificationKey is returned by Verify when the host has no verification key.
	ErrNoVerificationKey = errors.New("no verification key configured")
)

type keyFamily int

const (
	familyHMAC keyFamily = iota
	familyRSA
	familyECDSA
	familyEdDSA
)

func lookupMethod(algorithm string) (jwt.SigningMethod, keyFamily, error) {
	alg := strings.TrimSpace(algorithm)
	if alg == "" {
		alg = DefaultAlgorithm
	}
	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
	switch {
	case strings.HasPrefix(alg, "HS"):
		return method, familyHMAC, nil
	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "PS"):
		return method, familyRSA, nil
	case strings.HasPrefix(alg, "ES"):
		return method, familyECDSA, nil
	case alg == "EdDSA":
		return method, familyEdDSA, nil
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
}

func parseSignKey(family keyFamily, key []byte) (any, error) {
	if len(key) == 0 {
		return nil, nil
	}
	switch family {
	case familyHMAC:
		return key, nil
	case familyRSA:
		k, err := jwt.ParseRSAPrivateKeyFromPEM(key)
		if err != nil {
			return nil, errors.New("invalid rsa private key")
		}
		return k, nil
	case familyECDSA:
		k, err := jwt.ParseECPrivateKeyFromPEM(key)
		if err != nil {
			return nil, errors.New("invalid ecdsa private key")
		}
		return k, nil
	default:
		return parseEdPrivateKey(key)
	}
}

func parseVerifyKey(family keyFamily, key []byte) (any, error) {
	if len(key) == 0 {
		return nil, nil
	}
	switch family {
	case familyHMAC:
		return key, nil
	case familyRSA:
		k, err := jwt.ParseRSAPublicKeyFromPEM(key)
		if err != nil {
			return nil, errors.New("invalid rsa public key")
		}
		return k, nil
	case familyECDSA:
		k, err := jwt.ParseECPublicKeyFromPEM(key)
		if err != nil {
			return nil, errors.New("invalid ecdsa public key")
		}
		return k, nil
	default:
		return parseEdPublicKey(key)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
