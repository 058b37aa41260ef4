package hostAuth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/hostAuth/hosts"
	"github.com/MrEthical07/hostAuth/session"
	"github.com/MrEthical07/hostAuth/session/memstore"
)

const (
	testHost   = "app.test"
	testSecret = "engine-secret-engine-secret-engine-secret"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testHostFiles(tb testing.TB, auth string) []hosts.File {
	tb.Helper()
	doc := fmt.Sprintf(`[
		{"serverName": %q, "secretKey": %q, "server": {"auth": %s}},
		{"serverName": "static.test", "server": {}}
	]`, testHost, testSecret, auth)
	files, err := hosts.Parse([]byte(doc), "json")
	if err != nil {
		tb.Fatalf("parse hosts: %v", err)
	}
	return files
}

type testEngine struct {
	*Engine
	clock *testClock
	store session.Store
}

// newTestEngine builds an engine over a memory store serving app.test with the
// given auth section and static.test without one.
func newTestEngine(tb testing.TB, auth string, mutate ...func(*Builder)) *testEngine {
	tb.Helper()
	clock := newTestClock()
	store := memstore.New()
	return newTestEngineWithStore(tb, auth, clock, store, mutate...)
}

func newTestEngineWithStore(tb testing.TB, auth string, clock *testClock, store session.Store, mutate ...func(*Builder)) *testEngine {
	tb.Helper()
	b := New().
		WithHosts(testHostFiles(tb, auth)...).
		WithStore(store).
		WithClock(clock.Now).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithMetricsEnabled(true)
	for _, m := range mutate {
		m(b)
	}
	engine, err := b.Build()
	if err != nil {
		tb.Fatalf("build engine: %v", err)
	}
	tb.Cleanup(func() {
		_ = engine.Close()
		_ = store.Close()
	})
	return &testEngine{Engine: engine, clock: clock, store: store}
}

func hostCtx() context.Context {
	return WithHost(context.Background(), testHost)
}

func providerToken(tb testing.TB, claims gjwt.MapClaims) string {
	tb.Helper()
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("provider-key"))
	if err != nil {
		tb.Fatalf("provider token: %v", err)
	}
	return token
}

func defaultProviderToken(tb testing.TB) string {
	return providerToken(tb, gjwt.MapClaims{
		"id":   "u1",
		"role": "editor",
		"iss":  "idp.test",
		"aud":  "somewhere",
		"exp":  1,
	})
}
