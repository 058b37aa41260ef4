//go:build integration
// +build integration

package test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	hostAuth "github.com/MrEthical07/hostAuth"
	"github.com/MrEthical07/hostAuth/hosts"
	"github.com/MrEthical07/hostAuth/session"
	"github.com/MrEthical07/hostAuth/session/memstore"
	"github.com/MrEthical07/hostAuth/session/redisstore"
	"github.com/MrEthical07/hostAuth/session/sqlitestore"
)

const integrationHost = "int.test"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type backend struct {
	name string
	open func(t *testing.T) session.Store
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) session.Store { return memstore.New() }},
		{"redis", func(t *testing.T) session.Store {
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatalf("miniredis run failed: %v", err)
			}
			t.Cleanup(mr.Close)
			return redisstore.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "int")
		}},
		{"sqlite", func(t *testing.T) session.Store {
			store, err := sqlitestore.Open(context.Background(), "file:"+t.TempDir()+"/int.db")
			if err != nil {
				t.Fatalf("sqlite open failed: %v", err)
			}
			return store
		}},
	}
}

func newEngine(t *testing.T, store session.Store, auth string) (*hostAuth.Engine, *clock) {
	t.Helper()
	files, err := hosts.Parse([]byte(fmt.Sprintf(
		`{"serverName": %q, "secretKey": "integration-secret", "server": {"auth": %s}}`, integrationHost, auth)), "json")
	if err != nil {
		t.Fatalf("parse hosts: %v", err)
	}
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	engine, err := hostAuth.New().
		WithHosts(files...).
		WithStore(store).
		WithClock(c.Now).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(func() {
		_ = engine.Close()
		_ = store.Close()
	})
	return engine, c
}

func hostCtx() context.Context {
	return hostAuth.WithHost(context.Background(), integrationHost)
}

func providerToken(t *testing.T, id string) string {
	t.Helper()
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{
		"id":     id,
		"scopes": []any{"read", "write"},
		"org":    map[string]any{"id": 42, "name": "acme"},
	}).SignedString([]byte("idp"))
	if err != nil {
		t.Fatalf("provider token: %v", err)
	}
	return token
}
