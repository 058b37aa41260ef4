package local

import (
	"errors"
	"strings"
	"testing"
)

func cheapParams() Params {
	return Params{MemoryKB: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func newHasher(t *testing.T, p Params) *Hasher {
	t.Helper()
	h, err := NewHasher(p)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newHasher(t, cheapParams())
	encoded, err := h.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", encoded)
	}

	ok, err := h.Verify("P@ssw0rd-Ascii", encoded)
	if err != nil || !ok {
		t.Fatalf("Verify = %v, %v", ok, err)
	}
	ok, err = h.Verify("wrong-password", encoded)
	if err != nil || ok {
		t.Fatalf("wrong password Verify = %v, %v", ok, err)
	}
}

func TestHashesAreSalted(t *testing.T) {
	h := newHasher(t, cheapParams())
	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Fatal("two hashes of one password must differ")
	}
}

func TestVerifyAcceptsPaddedEncoding(t *testing.T) {
	h := newHasher(t, cheapParams())
	encoded, _ := h.Hash("padded-password")
	parts := strings.Split(encoded, "$")
	parts[4] += "=="
	ok, err := h.Verify("padded-password", strings.Join(parts, "$"))
	if err != nil || !ok {
		t.Fatalf("padded Verify = %v, %v", ok, err)
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := newHasher(t, cheapParams())
	encoded, _ := weak.Hash("upgrade-me-please")

	if again, err := weak.NeedsRehash(encoded); err != nil || again {
		t.Fatalf("same params NeedsRehash = %v, %v", again, err)
	}

	strong := cheapParams()
	strong.Iterations = 2
	if again, err := newHasher(t, strong).NeedsRehash(encoded); err != nil || !again {
		t.Fatalf("stronger params NeedsRehash = %v, %v", again, err)
	}

	// Old hashes verify under new params.
	if ok, _ := newHasher(t, strong).Verify("upgrade-me-please", encoded); !ok {
		t.Fatal("old hash must still verify")
	}
}

func TestPasswordLengthBounds(t *testing.T) {
	h := newHasher(t, cheapParams())
	for _, pw := range []string{"", "short", strings.Repeat("x", maxPassword+1)} {
		if _, err := h.Hash(pw); !errors.Is(err, ErrPasswordLength) {
			t.Fatalf("Hash(len %d) err = %v", len(pw), err)
		}
	}
	if _, err := h.Hash(strings.Repeat("x", maxPassword)); err != nil {
		t.Fatalf("max length rejected: %v", err)
	}

	encoded, _ := h.Hash("valid-password")
	if ok, err := h.Verify(strings.Repeat("x", maxPassword+1), encoded); ok || err != nil {
		t.Fatalf("oversized Verify = %v, %v", ok, err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newHasher(t, cheapParams())
	valid, _ := h.Hash("valid-password")
	parts := strings.Split(valid, "$")

	mutate := func(i int, v string) string {
		cp := append([]string(nil), parts...)
		cp[i] = v
		return strings.Join(cp, "$")
	}
	cases := map[string]string{
		"empty":          "",
		"bcrypt":         "$2a$10$abcdefghijklmnopqrstuv",
		"argon2i":        mutate(1, "argon2i"),
		"old version":    mutate(2, "v=16"),
		"low memory":     mutate(3, "m=1024,t=1,p=1"),
		"zero time":      mutate(3, "m=8192,t=0,p=1"),
		"extra param":    mutate(3, "m=8192,t=1,p=1,x=2"),
		"reordered":      mutate(3, "t=1,m=8192,p=1"),
		"short salt":     mutate(4, "c2FsdA"),
		"bad key base64": mutate(5, "!!!"),
	}
	for name, encoded := range cases {
		if _, err := h.Verify("valid-password", encoded); !errors.Is(err, ErrMalformedHash) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}

func TestNewHasherValidates(t *testing.T) {
	bad := []func(*Params){
		func(p *Params) { p.MemoryKB = 1024 },
		func(p *Params) { p.Iterations = 0 },
		func(p *Params) { p.Parallelism = 0 },
		func(p *Params) { p.SaltLength = 8 },
		func(p *Params) { p.KeyLength = 8 },
	}
	for i, mutate := range bad {
		p := DefaultParams()
		mutate(&p)
		if _, err := NewHasher(p); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
	if _, err := NewHasher(DefaultParams()); err != nil {
		t.Fatalf("default params rejected: %v", err)
	}
}
