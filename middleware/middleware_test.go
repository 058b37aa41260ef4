package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	hostAuth "github.com/MrEthical07/hostAuth"
	"github.com/MrEthical07/hostAuth/hosts"
	"github.com/MrEthical07/hostAuth/policy"
	"github.com/MrEthical07/hostAuth/session/memstore"
)

const hostsDoc = `{
	"serverName": ["app.test", "www.app.test"],
	"secretKey": "middleware-secret",
	"server": {"auth": {"mode": "refreshTokens", "bindCsrs": true, "bindFingerprint": true, "refreshInSeconds": 7200}}
}`

func newEngine(t *testing.T) (*hostAuth.Engine, *time.Time) {
	t.Helper()
	files, err := hosts.Parse([]byte(hostsDoc), "jsonc")
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	engine, err := hostAuth.New().
		WithHosts(files...).
		WithStore(memstore.New()).
		WithClock(func() time.Time { return now }).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	return engine, &now
}

func newRequest(method, target string, body io.Reader) *http.Request {
	r := httptest.NewRequest(method, target, body)
	r.Host = "app.test:8443"
	r.RemoteAddr = "203.0.113.9:51234"
	r.Header.Set("User-Agent", "test-agent/1.0")
	r.Header.Set("Accept-Language", "en")
	r.AddCookie(&http.Cookie{Name: CsrsCookie, Value: "csrs-1"})
	return r
}

// login runs Login through Bind, as a login route would.
func login(t *testing.T, engine *hostAuth.Engine) (string, string) {
	t.Helper()
	provider, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{"id": "u1"}).SignedString([]byte("idp"))
	require.NoError(t, err)

	var token, refresh string
	h := Bind(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, refresh, err = engine.Login(r.Context(), provider, nil)
	}))
	h.ServeHTTP(httptest.NewRecorder(), newRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	return token, refresh
}

func TestBindAttachesRequestValues(t *testing.T) {
	var got context.Context
	h := Bind(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { got = r.Context() }))
	r := newRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), r)

	require.Equal(t, "app.test", hostAuth.HostFromContext(got))
	require.Len(t, Fingerprint(r), 64)
}

func TestFingerprintTracksClient(t *testing.T) {
	a := newRequest(http.MethodGet, "/", nil)
	b := newRequest(http.MethodGet, "/", nil)
	require.Equal(t, Fingerprint(a), Fingerprint(b))

	b.RemoteAddr = "198.51.100.1:1"
	require.NotEqual(t, Fingerprint(a), Fingerprint(b))

	c := newRequest(http.MethodGet, "/", nil)
	c.Header.Set("User-Agent", "other")
	require.NotEqual(t, Fingerprint(a), Fingerprint(c))
}

func TestHostName(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for in, want := range map[string]string{
		"app.test":      "app.test",
		"APP.test:8080": "app.test",
		"[::1]:443":     "::1",
		"www.app.test.": "www.app.test",
	} {
		r.Host = in
		require.Equal(t, want, HostName(r), in)
	}
}

func TestRequireSessionAdmitsBoundToken(t *testing.T) {
	engine, _ := newEngine(t)
	token, _ := login(t, engine)

	var identity map[string]any
	h := RequireSession(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := hostAuth.IdentityFromContext(r.Context())
		require.True(t, ok)
		rec, ok := hostAuth.RecordFromContext(r.Context())
		require.True(t, ok)
		require.NotEmpty(t, rec.ID)
		identity = id
		w.WriteHeader(http.StatusNoContent)
	}))

	r := newRequest(http.MethodGet, "/private", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "u1", identity["id"])
	require.Equal(t, "csrs-1", identity["csrs"])
	require.Equal(t, Fingerprint(r), identity["fingerprintHash"])
}

func TestRequireSessionRejections(t *testing.T) {
	engine, _ := newEngine(t)
	token, _ := login(t, engine)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next must not run")
	})
	h := RequireSession(engine)(next)

	cases := []struct {
		name   string
		mutate func(*http.Request)
		status int
		body   string
	}{
		{"no header", func(r *http.Request) {}, http.StatusForbidden, "Invalid credentials."},
		{"not bearer", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, http.StatusForbidden, "Invalid credentials."},
		{"other device", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
			r.Header.Set("User-Agent", "stolen")
		}, http.StatusForbidden, "Invalid credentials."},
		{"unknown host", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
			r.Host = "nope.test"
		}, http.StatusNotFound, "Not Found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRequest(http.MethodGet, "/private", nil)
			tc.mutate(r)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			require.Equal(t, tc.status, w.Code)
			require.Equal(t, tc.body+"\n", w.Body.String())
		})
	}
}

func TestRequireSessionModeSlides(t *testing.T) {
	engine, now := newEngine(t)
	token, _ := login(t, engine)
	*now = now.Add(time.Minute)

	var expires time.Time
	h := RequireSessionMode(engine, policy.ModeSlideExpiration)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, _ := hostAuth.RecordFromContext(r.Context())
		expires = rec.ExpiresAt
	}))
	r := newRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), r)

	require.Equal(t, now.Add(policy.DefaultMaxInactivitySeconds*time.Second), expires)
}

func TestRefreshHandler(t *testing.T) {
	engine, now := newEngine(t)
	token, refresh := login(t, engine)
	*now = now.Add(40 * time.Minute)
	h := RefreshHandler(engine)

	body, err := json.Marshal(RefreshPair{JWT: token, Refresh: refresh})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, newRequest(http.MethodPost, "/refresh", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var out RefreshPair
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	require.Equal(t, refresh, out.Refresh)
	require.NotEmpty(t, out.JWT)

	body, _ = json.Marshal(RefreshPair{JWT: token, Refresh: "unknown"})
	w = httptest.NewRecorder()
	h.ServeHTTP(w, newRequest(http.MethodPost, "/refresh", bytes.NewReader(body)))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "Forbidden\n", w.Body.String())

	*now = now.Add(2 * time.Hour)
	body, _ = json.Marshal(RefreshPair{JWT: token, Refresh: refresh})
	w = httptest.NewRecorder()
	h.ServeHTTP(w, newRequest(http.MethodPost, "/refresh", bytes.NewReader(body)))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, newRequest(http.MethodPost, "/refresh", bytes.NewReader([]byte("{"))))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, newRequest(http.MethodGet, "/refresh", nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
