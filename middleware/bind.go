package middleware

import (
	"context"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"github.com/zeebo/blake3"

	hostAuth "github.com/MrEthical07/hostAuth"
)

// CsrsCookie is the cookie carrying the client's csrs value.
const CsrsCookie = "csrs"

// Bind attaches the request's host, csrs cookie and fingerprint hash to its
// context. Hosts that do not bind these values ignore them.
func Bind(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(bindContext(r)))
	})
}

func bindContext(r *http.Request) context.Context {
	ctx := hostAuth.WithHost(r.Context(), HostName(r))
	if c, err := r.Cookie(CsrsCookie); err == nil {
		ctx = hostAuth.WithCSRS(ctx, c.Value)
	}
	return hostAuth.WithFingerprintHash(ctx, Fingerprint(r))
}

// HostName returns the request host without its port.
func HostName(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(strings.ToLower(host), ".")
}

// ClientIP returns the remote address without its port.
func ClientIP(r *http.Request) string {
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return h
	}
	return r.RemoteAddr
}

// Fingerprint hashes the User-Agent, Accept-Language and client IP with
// BLAKE3 and returns the hex digest.
func Fingerprint(r *http.Request) string {
	material := r.UserAgent() + "\x00" + r.Header.Get("Accept-Language") + "\x00" + ClientIP(r)
	sum := blake3.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}
