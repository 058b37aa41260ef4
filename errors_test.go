package hostAuth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/MrEthical07/hostAuth/session"
)

func TestStatusAndMessage(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{nil, http.StatusOK, "OK"},
		{ErrInvalidCredentials, http.StatusForbidden, "Invalid credentials."},
		{ErrLoginExpiredInactivity, http.StatusUnauthorized, "Login expired due to inactivity."},
		{ErrRefreshForbidden, http.StatusForbidden, "Forbidden"},
		{ErrRefreshUnauthorized, http.StatusUnauthorized, "Unauthorized"},
		{ErrLoginExpired, http.StatusUnauthorized, "Login expired."},
		{fmt.Errorf("%w: %q", ErrUnknownHost, "x"), http.StatusNotFound, "Not Found"},
		{session.ErrStoreUnavailable, http.StatusInternalServerError, "Internal Server Error"},
		{ErrAuthDisabled, http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tc := range cases {
		if got := StatusOf(tc.err); got != tc.status {
			t.Errorf("StatusOf(%v) = %d, want %d", tc.err, got, tc.status)
		}
		if got := MessageOf(tc.err); got != tc.message {
			t.Errorf("MessageOf(%v) = %q, want %q", tc.err, got, tc.message)
		}
	}
}

func TestAuthErrorMatchesByKind(t *testing.T) {
	wrapped := fmt.Errorf("permission: %w", ErrLoginExpiredInactivity)
	if !errors.Is(wrapped, ErrLoginExpiredInactivity) {
		t.Fatal("wrapped sentinel must match")
	}
	if errors.Is(wrapped, ErrLoginExpired) {
		t.Fatal("different kinds must not match")
	}

	copyOf := &AuthError{Kind: KindRefreshForbidden}
	if !errors.Is(copyOf, ErrRefreshForbidden) {
		t.Fatal("copy with the same kind must match")
	}

	joined := errors.Join(ErrRefreshUnauthorized, session.ErrStoreUnavailable)
	if !errors.Is(joined, ErrRefreshUnauthorized) || !errors.Is(joined, session.ErrStoreUnavailable) {
		t.Fatal("joined error must match both")
	}
	if StatusOf(joined) != http.StatusUnauthorized {
		t.Fatalf("joined status = %d", StatusOf(joined))
	}
}

func TestAuditCode(t *testing.T) {
	cases := map[error]string{
		ErrInvalidCredentials: string(KindInvalidCredentials),
		errors.Join(ErrLoginExpiredInactivity, session.ErrStoreUnavailable): string(KindLoginExpiredInactivity),
		fmt.Errorf("%w: dial tcp: refused", session.ErrStoreUnavailable):    "store_unavailable",
		fmt.Errorf("%w: no key", ErrToken):                                  "token_error",
		ErrAuthDisabled:                                                     "auth_disabled",
		errors.New("boom"):                                                  "internal",
	}
	for err, want := range cases {
		if got := auditCode(err); got != want {
			t.Errorf("auditCode(%v) = %q, want %q", err, got, want)
		}
	}
}
