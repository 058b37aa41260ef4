package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/hostAuth/session"
	"github.com/MrEthical07/hostAuth/session/storetest"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb, "test", opts...), mr
}

func TestRedisStore(t *testing.T) {
	storetest.RunStoreTests(t, func(t *testing.T) session.Store {
		s, _ := newTestStore(t)
		return s
	})
}

func TestKeysAreNamespaced(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	refresh := "r-1"
	if err := s.UpsertOne(ctx, session.ByIdentity(session.Identity{"id": 1.0}), session.Update{Refresh: &refresh}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	keys := mr.Keys()
	if len(keys) != 3 {
		t.Fatalf("expected record plus two index keys, got %v", keys)
	}
	for _, k := range keys {
		if len(k) < 5 || k[:5] != "test:" {
			t.Fatalf("key %q is outside the store prefix", k)
		}
	}
	if !mr.Exists("test:ref:r-1") {
		t.Fatal("refresh index missing")
	}
}

func TestDeleteRemovesEveryKey(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	f := session.ByIdentity(session.Identity{"id": 2.0})
	refresh := "r-2"
	if err := s.UpsertOne(ctx, f, session.Update{Refresh: &refresh}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.DeleteOne(ctx, f); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected no keys after delete, got %v", keys)
	}
}

func TestRetentionExpiresRecords(t *testing.T) {
	s, mr := newTestStore(t, WithRetention(time.Minute))
	ctx := context.Background()
	f := session.ByIdentity(session.Identity{"id": 3.0})
	exp := time.Now().Add(time.Hour)
	if err := s.UpsertOne(ctx, f, session.Update{ExpiresAt: &exp}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.FindOne(ctx, f); err != nil {
		t.Fatalf("find before retention: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	if _, err := s.FindOne(ctx, f); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after retention, got %v", err)
	}

	// A stale index must not resurrect the old record id.
	token := "again"
	if err := s.UpsertOne(ctx, f, session.Update{Token: &token}); err != nil {
		t.Fatalf("upsert after expiry: %v", err)
	}
	rec, err := s.FindOne(ctx, f)
	if err != nil {
		t.Fatalf("find after re-login: %v", err)
	}
	if rec.Token != "again" || rec.Authenticated["id"] != 3.0 {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestUnavailableRedisIsWrapped(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()
	ctx := context.Background()

	_, err := s.FindOne(ctx, session.ByRefresh("r"))
	if !errors.Is(err, session.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := s.Ping(ctx); !errors.Is(err, session.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable from ping, got %v", err)
	}
}

func TestCorruptRecordIsReported(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	mr.Set("test:ref:bad", "id-1")
	mr.HSet("test:rec:id-1", "id", "id-1", "exp", "not-a-number")

	_, err := s.FindOne(ctx, session.ByRefresh("bad"))
	if !errors.Is(err, session.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable for corrupt record, got %v", err)
	}
}
