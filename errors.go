package hostAuth

import (
	"errors"
	"net/http"
)

// ErrorKind names one entry of the client-facing error taxonomy.
type ErrorKind string

const (
	KindInvalidCredentials     ErrorKind = "invalid_credentials"
	KindLoginExpiredInactivity ErrorKind = "login_expired_inactivity"
	KindRefreshForbidden       ErrorKind = "refresh_forbidden"
	KindRefreshUnauthorized    ErrorKind = "refresh_unauthorized"
	KindLoginExpired           ErrorKind = "login_expired"
)

// AuthError is a client-facing failure. Message is safe to send to the client
// verbatim; it never carries token or codec details.
//
// AuthError values are compared by Kind, so a wrapped copy still matches its
// sentinel with errors.Is.
type AuthError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// Is matches any AuthError of the same Kind.
func (e *AuthError) Is(target error) bool {
	var t *AuthError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	// ErrInvalidCredentials is returned when a token does not verify, a login
	// token cannot be decoded, or no permission record exists for the identity.
	ErrInvalidCredentials = &AuthError{Kind: KindInvalidCredentials, Status: http.StatusForbidden, Message: "Invalid credentials."}
	// ErrLoginExpiredInactivity is returned when the permission record has passed
	// its ExpiresAt. The record is deleted.
	ErrLoginExpiredInactivity = &AuthError{Kind: KindLoginExpiredInactivity, Status: http.StatusUnauthorized, Message: "Login expired due to inactivity."}
	// ErrRefreshForbidden is returned when no record holds the refresh value.
	ErrRefreshForbidden = &AuthError{Kind: KindRefreshForbidden, Status: http.StatusForbidden, Message: "Forbidden"}
	// ErrRefreshUnauthorized is returned when the record holding the refresh value
	// has expired. The record is deleted.
	ErrRefreshUnauthorized = &AuthError{Kind: KindRefreshUnauthorized, Status: http.StatusUnauthorized, Message: "Unauthorized"}
	// ErrLoginExpired is returned when a token's exp (or maxAge) has passed.
	ErrLoginExpired = &AuthError{Kind: KindLoginExpired, Status: http.StatusUnauthorized, Message: "Login expired."}
)

var (
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrUnknownHost is returned when the request's host is not registered.
	ErrUnknownHost = errors.New("unknown host")
	// ErrAuthDisabled is returned when the request's host has no auth section.
	ErrAuthDisabled = errors.New("host has no auth policy")
	// ErrToken wraps codec failures that are neither expiry nor invalidity, such
	// as missing key material.
	ErrToken = errors.New("token codec failure")
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid config")
)

// StatusOf returns the HTTP status for err: the AuthError status, 404 for
// ErrUnknownHost, and 500 for anything else.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Status
	}
	if errors.Is(err, ErrUnknownHost) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// MessageOf returns the client-safe message for err. Errors outside the
// taxonomy yield the generic status text.
func MessageOf(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return http.StatusText(StatusOf(err))
}
