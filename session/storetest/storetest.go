// Package storetest holds the conformance suite every session.Store backend runs.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/hostAuth/session"
)

// StoreFactory returns a fresh, empty store. The suite closes it.
type StoreFactory func(t *testing.T) session.Store

// RunStoreTests runs the complete Store suite against factory.
func RunStoreTests(t *testing.T, factory StoreFactory) {
	t.Run("FindMissingReturnsNotFound", func(t *testing.T) { testFindMissing(t, factory) })
	t.Run("UpsertCreatesThenFinds", func(t *testing.T) { testUpsertCreates(t, factory) })
	t.Run("UpsertSetsOnlyPresentFields", func(t *testing.T) { testUpsertMerges(t, factory) })
	t.Run("IdentityIsStructural", func(t *testing.T) { testIdentityStructural(t, factory) })
	t.Run("UpdateChangesExistingRecord", func(t *testing.T) { testUpdateExisting(t, factory) })
	t.Run("UpdateNeverCreates", func(t *testing.T) { testUpdateMissing(t, factory) })
	t.Run("UpdateAfterDeleteLeavesNoRecord", func(t *testing.T) { testUpdateAfterDelete(t, factory) })
	t.Run("FindByRefresh", func(t *testing.T) { testFindByRefresh(t, factory) })
	t.Run("RefreshIndexFollowsUpdates", func(t *testing.T) { testRefreshReindex(t, factory) })
	t.Run("DeleteByIdentityIsIdempotent", func(t *testing.T) { testDeleteIdempotent(t, factory) })
	t.Run("DeleteByRefreshClearsBothIndexes", func(t *testing.T) { testDeleteByRefresh(t, factory) })
	t.Run("InvalidFilterRejected", func(t *testing.T) { testInvalidFilter(t, factory) })
	t.Run("ConcurrentIdentitiesDoNotInterfere", func(t *testing.T) { testConcurrent(t, factory) })
}

func open(t *testing.T, factory StoreFactory) session.Store {
	t.Helper()
	s := factory(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func at(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func testFindMissing(t *testing.T, factory StoreFactory) {
	s := open(t, factory)
	ctx := context.Background()

	_, err := s.FindOne(ctx, session.ByIdentity(session.Identity{"id": 1.0}))
	require.ErrorIs(t, err, session.ErrNotFound)

	_, err = s.FindOne(ctx, session.ByRefresh("nope"))
	require.ErrorIs(t, err, session.ErrNotFound)
}

func testUpsertCreates(t *testing.T, factory StoreFactory) {
	s := open(t, factory)
	ctx := context.Background()
	id := session.Identity{"id": 1.0, "csrs": "c1", "provider": map[string]any{"name": "acme", "id": "p", "trusted": true}}

	err := s.UpsertOne(ctx, session.ByIdentity(id), session.Update{
		Token:     ptr("provider-token"),
		IssuedAt:  ptr(at(100)),
		ExpiresAt: ptr(at(1900)),
		User:      map[string]any{"name": "Ada", "age": 36.0},
		Refresh:   ptr("r-1"),
	})
	require.NoError(t, err)

	rec, err := s.FindOne(ctx, session.ByIdentity(id))
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	require.Equal(t, id, rec.Authenticated)
	require.Equal(t, "provider-token", rec.Token)
	require.True(t, rec.IssuedAt.Equal(at(100)))
	require.True(t, rec.ExpiresAt.Equal(at(1900)))
	require.Equal(t, map[string]any{"name": "Ada", "age": 36.0}, rec.User)
	require.Equal(t, "r-1", rec.Refresh)
}

func testUpsertMerges(t *testing.T, factory StoreFactory) {
	s := open(t, factory)
	ctx := context.Background()
	f := session.ByIdentity(session.Identity{"id": 2.0})

	require.NoError(t, s.UpsertOne(ctx, f, session.Update{Token: ptr("t"), IssuedAt: ptr(at(10)), ExpiresAt: ptr(at(20))}))
	first, err := s.FindOne(ctx, f)
	require.NoError(t, err)

	require.NoError(t, s.UpsertOne(ctx, f, session.Update{ExpiresAt: ptr(at(99))}))
	second, err := s.FindOne(ctx, f)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "t", second.Token)
	require.True(t, second.IssuedAt.Equal(at(10)))
	require.True(t, second.ExpiresAt.Equal(at(99)))
	require.Nil(t, second.User)
	require.Empty(t, second.Refresh)
}

func testUpdateExisting(t *testing.T, factory StoreFactory) {
	s := open(t, factory)
	ctx := context.Background()
	f := session.ByIdentity(session.Identity{"id": 20.0})

	require.NoError(t, s.UpsertOne(ctx, f, session.Update{Token: ptr("t"), IssuedAt: ptr(at(10)), ExpiresAt: ptr(at(20)), Refresh: ptr("r-20")}))
	first, err := s.FindOne(ctx, f)
	require.NoError(t, err)

	require.NoError(t, s.UpdateOne(ctx, f, session.Update{ExpiresAt: ptr(at(80))}))
	require.NoError(t, s.UpdateOne(ctx, session.ByRefresh("r-20"), session.Update{Token: ptr("t2")}))

	rec, err := s.FindOne(ctx, f)
	require.NoError(t, err)
	require.Equal(t, first.ID, rec.ID)
	require.Equal(t, "t2", rec.Token)
	require.True(t, rec.IssuedAt.Equal(at(10)))
	require.True(t, rec.ExpiresAt.Equal(at(80)))
	require.Equal(t, "r-20", rec.Refresh)
}

func testUpdateMissing(t *testing.T, factory StoreFactory) {
	s := open(t, factory)
	ctx := context.Background()
	f := session.ByIdentity(session.Identity{"id": 21.0})

	require.ErrorIs(t, s.UpdateOne(ctx, f, session.Update{ExpiresAt: ptr(at(80))}), session.ErrNotFound)
	require.ErrorIs(t, s.UpdateOne(ctx, session.ByRefresh("r-21"), session.Update{Token: ptr("t")}), session.ErrNotFound)
	require.ErrorIs(t, s.UpdateOne(ctx, session.Filter{}, session.Update{}), session.ErrInvalidFilter)

	_, err := s.FindOne(ctx, f)
	require.ErrorIs(t, err, session.ErrNotFound)
	_, err = s.FindOne(ctx, session.ByRefresh("r-21"))
	require.ErrorIs(t, err, session.ErrNotFound)
}

// A slide that reads a record, loses it to a logout, then writes must not bring
// the record back.
func testUpdateAfterDelete(t *testing.T, factory StoreFactory) {
	s := open(t, factory)
	ctx := context.Background()
	f := session.ByIdentity(session.Identity{"id": 22.0, "csrs": "c"})

	require.NoError(t, s.UpsertOne(ctx, f, session.Update{Token: ptr("t"), IssuedAt: ptr(at(10)), ExpiresAt: ptr(at(20)), Refresh: ptr("r-22")}))
	_, err := s.FindOne(ctx, f)
	require.NoError(t, err)

	require.NoError(t, s.DeleteOne(ctx, f))
	require.ErrorIs(t, s.UpdateOne(ctx, f, session.Update{ExpiresAt: ptr(at(99))}), session.ErrNotFound)

	_, err = s.FindOne(ctx, f)
	require.ErrorIs(t, err, session.ErrNotFound)
	_, err = s.FindOne(ctx, session.ByRefresh("r-22"))
	require.ErrorIs(t, err, session.ErrNotFound)
}

func testIdentityStructural(t *testing.T, factory StoreFactory) {
	s := open(t, factory)
	ctx := context.Background()

	written := session.Identity{"sub2": "u", "n": 3, "tags": []string{"a"}}
	require.NoError(t, s.UpsertOne(ctx, session.ByIdentity(written), session.Update{Token: ptr("x")}))

	probe := session.Identity{"tags": []any{"a"}, "n": 3.0, "sub2": "u"}
	rec, err := s.FindOne(ctx, session.ByIdentity(probe))
	require.NoError(t, err)
	require.Equal(t, "x", rec.Token)

	_, err = s.FindOne(ctx, session.ByIdentity(session.Identity{"sub2": "u", "n": 3.0}))
	require.ErrorIs(t, err, session.ErrNotFound)
}

func testFindByRefresh(t *testing.T, factory StoreFactory) {
	s := open(t, factory)
	ctx := context.Background()
	id := session.Identity{"id": 3.0}

	require.NoError(t, s.UpsertOne(ctx, session.ByIdentity(id), session.Update{Refresh: ptr("r-3"), ExpiresAt: ptr(at(50))}))
	rec, err := s.FindOne(ctx, session.ByRefresh("r-3"))
	require.NoError(t, err)
	require.Equal(t, id, rec.Authenticated)
	require.True(t, rec.ExpiresAt.Equal(at(50)))
}

func testRefreshReindex(t *testing.T, factory StoreFactory) {
	s := open(t, factory)
	ctx := context.Background()
	f := session.ByIdentity(session.Identity{"id": 4.0})

	require.NoError(t, s.UpsertOne(ctx, f, session.Update{Refresh: ptr("old")}))
	require.NoError(t, s.UpsertOne(ctx, f, session.Update{Refresh: ptr("new")}))

	_, err := s.FindOne(ctx, session.ByRefresh("old"))
	require.ErrorIs(t, err, session.ErrNotFound)
	rec, err := s.FindOne(ctx, session.ByRefresh("new"))
	require.NoError(t, err)
	require.Equal(t, "new", rec.Refresh)
}

func testDeleteIdempotent(t *testing.T, factory StoreFactory) {
	s := open(t, factory)
	ctx := context.Background()
	f := session.ByIdentity(session.Identity{"id": 5.0})

	require.NoError(t, s.UpsertOne(ctx, f, session.Update{Token: ptr("t"), Refresh: ptr("r-5")}))
	require.NoError(t, s.DeleteOne(ctx, f))
	require.NoError(t, s.DeleteOne(ctx, f))

	_, err := s.FindOne(ctx, f)
	require.ErrorIs(t, err, session.ErrNotFound)
	_, err = s.FindOne(ctx, session.ByRefresh("r-5"))
	require.ErrorIs(t, err, session.ErrNotFound)

	// A later login with the same identity starts a new record.
	require.NoError(t, s.UpsertOne(ctx, f, session.Update{Token: ptr("t2")}))
	rec, err := s.FindOne(ctx, f)
	require.NoError(t, err)
	require.Equal(t, "t2", rec.Token)
	require.Empty(t, rec.Refresh)
}

func testDeleteByRefresh(t *testing.T, factory StoreFactory) {
	s := open(t, factory)
	ctx := context.Background()
	f := session.ByIdentity(session.Identity{"id": 6.0})

	require.NoError(t, s.UpsertOne(ctx, f, session.Update{Refresh: ptr("r-6")}))
	require.NoError(t, s.DeleteOne(ctx, session.ByRefresh("r-6")))

	_, err := s.FindOne(ctx, f)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func testInvalidFilter(t *testing.T, factory StoreFactory) {
	s := open(t, factory)
	ctx := context.Background()

	_, err := s.FindOne(ctx, session.Filter{})
	require.True(t, errors.Is(err, session.ErrInvalidFilter))
	require.ErrorIs(t, s.UpsertOne(ctx, session.Filter{}, session.Update{}), session.ErrInvalidFilter)
	require.ErrorIs(t, s.DeleteOne(ctx, session.Filter{}), session.ErrInvalidFilter)
}

func testConcurrent(t *testing.T, factory StoreFactory) {
	s := open(t, factory)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f := session.ByIdentity(session.Identity{"id": float64(i)})
			for round := 0; round < 5; round++ {
				if err := s.UpsertOne(ctx, f, session.Update{ExpiresAt: ptr(at(int64(round)))}); err != nil {
					errs <- err
					return
				}
			}
			rec, err := s.FindOne(ctx, f)
			if err != nil {
				errs <- err
				return
			}
			if rec.Authenticated["id"] != float64(i) || !rec.ExpiresAt.Equal(at(4)) {
				errs <- fmt.Errorf("worker %d: unexpected record %+v", i, rec)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
