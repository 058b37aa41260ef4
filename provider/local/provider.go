package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/MrEthical07/hostAuth/jwt"
)

// ErrRejected is returned for an unknown identifier and for a wrong password
// alike.
var ErrRejected = errors.New("local provider: invalid identifier or password")

// ErrUserNotFound is returned by a Users implementation for an unknown identifier.
var ErrUserNotFound = errors.New("local provider: user not found")

// User is an account known to the provider.
type User struct {
	ID           string
	Identifier   string
	PasswordHash string
	// Claims are added to the provider token next to "id".
	Claims map[string]any
	// Profile is returned alongside the token for hosts that trust the provider.
	Profile map[string]any
}

// Users looks accounts up by login identifier.
type Users interface {
	UserByIdentifier(ctx context.Context, identifier string) (User, error)
}

// Provider authenticates accounts by password and mints provider tokens.
type Provider struct {
	users  Users
	hasher *Hasher
	codec  *jwt.Codec
	sign   jwt.SignOptions
	// decoy is verified for unknown identifiers so both rejections cost the same.
	decoy string
}

// New returns a Provider signing tokens with codec and sign.
func New(users Users, hasher *Hasher, codec *jwt.Codec, sign jwt.SignOptions) (*Provider, error) {
	if users == nil || hasher == nil || codec == nil {
		return nil, errors.New("local provider: users, hasher and codec are required")
	}
	decoy, err := hasher.Hash("decoy-password-never-matches")
	if err != nil {
		return nil, err
	}
	return &Provider{users: users, hasher: hasher, codec: codec, sign: sign, decoy: decoy}, nil
}

// Authenticate checks password for identifier and returns a signed provider
// token and the account profile.
func (p *Provider) Authenticate(ctx context.Context, identifier, password string) (string, map[string]any, error) {
	user, err := p.users.UserByIdentifier(ctx, identifier)
	if errors.Is(err, ErrUserNotFound) {
		_, _ = p.hasher.Verify(password, p.decoy)
		return "", nil, ErrRejected
	}
	if err != nil {
		return "", nil, fmt.Errorf("local provider: lookup: %w", err)
	}

	ok, err := p.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return "", nil, fmt.Errorf("local provider: stored hash for %s: %w", user.ID, err)
	}
	if !ok {
		return "", nil, ErrRejected
	}

	payload := make(map[string]any, len(user.Claims)+1)
	for k, v := range user.Claims {
		payload[k] = v
	}
	payload["id"] = user.ID

	token, err := p.codec.Sign(payload, p.sign)
	if err != nil {
		return "", nil, fmt.Errorf("local provider: sign: %w", err)
	}
	return token, user.Profile, nil
}

// MemoryUsers is a Users backed by a map. Identifiers match case-insensitively.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryUsers returns an empty MemoryUsers.
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[string]User)}
}

// Put adds or replaces u.
func (m *MemoryUsers) Put(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[strings.ToLower(u.Identifier)] = u
}

// UserByIdentifier implements Users.
func (m *MemoryUsers) UserByIdentifier(_ context.Context, identifier string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[strings.ToLower(identifier)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}
