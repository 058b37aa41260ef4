package local

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    = 8 * 1024
	minSaltLength  = 16
	minKeyLength   = 16
	minPassword    = 10
	maxPassword    = 1024
	argon2Variant  = "argon2id"
	phcParamFormat = "m=%d,t=%d,p=%d"
)

var (
	// ErrPasswordLength reports a password outside the accepted byte length.
	ErrPasswordLength = fmt.Errorf("password must be %d to %d bytes", minPassword, maxPassword)
	// ErrMalformedHash reports a stored hash that is not an argon2id PHC string.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Params are the argon2id cost parameters.
type Params struct {
	MemoryKB    uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follow the argon2id recommendation for interactive logins.
func DefaultParams() Params {
	return Params{
		MemoryKB:    64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (p Params) validate() error {
	switch {
	case p.MemoryKB < minMemoryKB:
		return fmt.Errorf("argon2 memory must be >= %d KB", minMemoryKB)
	case p.Iterations < 1:
		return errors.New("argon2 iterations must be >= 1")
	case p.Parallelism < 1:
		return errors.New("argon2 parallelism must be >= 1")
	case p.SaltLength < minSaltLength:
		return fmt.Errorf("argon2 salt length must be >= %d", minSaltLength)
	case p.KeyLength < minKeyLength:
		return fmt.Errorf("argon2 key length must be >= %d", minKeyLength)
	}
	return nil
}

// Hasher hashes and verifies passwords as argon2id PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt>$<key>
//
// Passwords are hashed as raw bytes with no normalization.
type Hasher struct {
	params Params
}

// NewHasher validates p and returns a Hasher using it for new hashes.
func NewHasher(p Params) (*Hasher, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Hasher{params: p}, nil
}

// Hash derives a new PHC string for password with a random salt.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) < minPassword || len(password) > maxPassword {
		return "", ErrPasswordLength
	}
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.MemoryKB, h.params.Parallelism, h.params.KeyLength)
	return encodePHC(phc{params: h.params, salt: salt, key: key}), nil
}

// Verify reports whether password matches encoded. Whatever parameters
// encoded was produced with are used, so older hashes keep verifying.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	if len(password) > maxPassword {
		return false, nil
	}
	parsed, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(password), parsed.salt, parsed.params.Iterations, parsed.params.MemoryKB, parsed.params.Parallelism, parsed.params.KeyLength)
	return subtle.ConstantTimeCompare(key, parsed.key) == 1, nil
}

// NeedsRehash reports whether encoded was produced with weaker parameters
// than the Hasher's.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	parsed, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	old := parsed.params
	return old.MemoryKB < h.params.MemoryKB ||
		old.Iterations < h.params.Iterations ||
		old.Parallelism < h.params.Parallelism ||
		old.KeyLength != h.params.KeyLength, nil
}

type phc struct {
	params Params
	salt   []byte
	key    []byte
}

func encodePHC(v phc) string {
	return fmt.Sprintf("$%s$v=%d$"+phcParamFormat+"$%s$%s",
		argon2Variant, argon2.Version,
		v.params.MemoryKB, v.params.Iterations, v.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(v.salt),
		base64.RawStdEncoding.EncodeToString(v.key),
	)
}

func decodePHC(encoded string) (phc, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != argon2Variant {
		return phc{}, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return phc{}, fmt.Errorf("%w: version %q", ErrMalformedHash, fields[2])
	}

	var out phc
	var parallelism uint32
	n, err := fmt.Sscanf(fields[3], phcParamFormat, &out.params.MemoryKB, &out.params.Iterations, &parallelism)
	if err != nil || n != 3 || fmt.Sprintf(phcParamFormat, out.params.MemoryKB, out.params.Iterations, parallelism) != fields[3] {
		return phc{}, fmt.Errorf("%w: parameters %q", ErrMalformedHash, fields[3])
	}
	if out.params.MemoryKB < minMemoryKB || out.params.Iterations < 1 || parallelism < 1 || parallelism > 255 {
		return phc{}, fmt.Errorf("%w: parameters %q", ErrMalformedHash, fields[3])
	}
	out.params.Parallelism = uint8(parallelism)

	if out.salt, err = decodeB64(fields[4]); err != nil || len(out.salt) < minSaltLength {
		return phc{}, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if out.key, err = decodeB64(fields[5]); err != nil || len(out.key) == 0 {
		return phc{}, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	out.params.SaltLength = uint32(len(out.salt))
	out.params.KeyLength = uint32(len(out.key))
	return out, nil
}

// decodeB64 accepts padded and unpadded standard base64.
func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
