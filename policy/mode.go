package policy

import (
	"encoding/json"
	"fmt"
)

// Mode selects how a session's expiry evolves.
type Mode string

const (
	// ModeFixed keeps the expiry computed at login.
	ModeFixed Mode = "fixed"
	// ModeSlideExpiration pushes the expiry forward on every successful permission check.
	ModeSlideExpiration Mode = "slideExpiration"
	// ModeRefreshTokens issues short-lived tokens plus an opaque refresh value.
	ModeRefreshTokens Mode = "refreshTokens"
)

// Normalize maps the empty mode onto ModeFixed.
func (m Mode) Normalize() Mode {
	if m == "" {
		return ModeFixed
	}
	return m
}

// Valid reports whether m (after normalization) is a known mode.
func (m Mode) Valid() bool {
	switch m.Normalize() {
	case ModeFixed, ModeSlideExpiration, ModeRefreshTokens:
		return true
	}
	return false
}

// UnmarshalJSON accepts a mode name, null, or false (both meaning "no mode").
func (m *Mode) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*m = ""
	case bool:
		if v {
			return fmt.Errorf("policy: mode cannot be true")
		}
		*m = ""
	case string:
		*m = Mode(v)
	default:
		return fmt.Errorf("policy: mode must be a string, got %T", raw)
	}
	if !m.Valid() {
		return fmt.Errorf("policy: unknown mode %q", string(*m))
	}
	return nil
}
