package session

import (
	"time"
)

// Identity is the claim map a record is keyed by. Values follow encoding/json
// conventions: numbers are float64, objects map[string]any, arrays []any.
type Identity map[string]any

// Clone returns a deep copy of id.
func (id Identity) Clone() Identity {
	if id == nil {
		return nil
	}
	return Identity(cloneValue(map[string]any(id)).(map[string]any))
}

// Record is the persisted permission for one login.
type Record struct {
	ID            string
	Authenticated Identity
	Token         string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	// User is present only when the host's provider is trusted.
	User map[string]any
	// Refresh is present only in refreshTokens mode.
	Refresh string
}

// Expired reports whether the record's expiry is not after now.
func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Authenticated = r.Authenticated.Clone()
	if r.User != nil {
		cp.User = cloneValue(r.User).(map[string]any)
	}
	return &cp
}

// Filter selects a record either by its identity or by its refresh value.
// Exactly one field must be set.
type Filter struct {
	Authenticated Identity
	Refresh       string
}

// ByIdentity returns a filter on the record's identity.
func ByIdentity(id Identity) Filter { return Filter{Authenticated: id} }

// ByRefresh returns a filter on the record's refresh value.
func ByRefresh(refresh string) Filter { return Filter{Refresh: refresh} }

// Validate reports ErrInvalidFilter unless exactly one selector is set.
func (f Filter) Validate() error {
	hasIdentity := f.Authenticated != nil
	hasRefresh := f.Refresh != ""
	if hasIdentity == hasRefresh {
		return ErrInvalidFilter
	}
	return nil
}

// Update lists the fields an upsert sets. Nil fields are left unchanged.
type Update struct {
	Token     *string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
	User      map[string]any
	Refresh   *string
}

// Apply writes the set fields of u into r.
func (u Update) Apply(r *Record) {
	if u.Token != nil {
		r.Token = *u.Token
	}
	if u.IssuedAt != nil {
		r.IssuedAt = *u.IssuedAt
	}
	if u.ExpiresAt != nil {
		r.ExpiresAt = *u.ExpiresAt
	}
	if u.User != nil {
		r.User = cloneValue(u.User).(map[string]any)
	}
	if u.Refresh != nil {
		r.Refresh = *u.Refresh
	}
}

// Seed returns the record an upsert creates when nothing matches f.
func Seed(f Filter, id string) *Record {
	return &Record{
		ID:            id,
		Authenticated: f.Authenticated.Clone(),
		Refresh:       f.Refresh,
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case Identity:
		return cloneValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
