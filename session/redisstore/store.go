// Package redisstore is a session.Store backed by Redis. Each record is a hash, with
// string keys indexing it by identity key and by refresh value. Every mutation runs
// as a single Lua script.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/hostAuth/session"
)

// DefaultPrefix namespaces the keys written by the store.
const DefaultPrefix = "hostauth"

// Store is a Redis-backed session.Store.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

// Option customizes a Store.
type Option func(*Store)

// WithRetention makes Redis drop a record on its own once it has been expired for
// d. Zero (the default) keeps records until they are deleted explicitly, so an
// expired login is still reported as expired rather than unknown.
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

// New returns a Store using client. Close closes the client.
func New(client redis.UniversalClient, prefix string, opts ...Option) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	s := &Store{redis: client, prefix: prefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) recordPrefix() string   { return s.prefix + ":rec:" }
func (s *Store) refreshPrefix() string  { return s.prefix + ":ref:" }
func (s *Store) identityPrefix() string { return s.prefix + ":idn:" }

func (s *Store) indexKey(f session.Filter) (string, session.Key, error) {
	if f.Refresh != "" {
		return s.refreshPrefix() + f.Refresh, session.Key{}, nil
	}
	key, err := session.IdentityKey(f.Authenticated)
	if err != nil {
		return "", session.Key{}, err
	}
	return s.identityPrefix() + key.String(), key, nil
}

// FindOne implements session.Store.
//
//	Performance: 1 EVALSHA (GET + HGETALL).
func (s *Store) FindOne(ctx context.Context, f session.Filter) (*session.Record, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	index, _, err := s.indexKey(f)
	if err != nil {
		return nil, err
	}

	fields, err := findLua.Run(ctx, s.redis, []string{index}, s.recordPrefix()).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	return decodeRecord(fields)
}

// UpsertOne implements session.Store.
//
//	Performance: 1 EVALSHA.
func (s *Store) UpsertOne(ctx context.Context, f session.Filter, u session.Update) error {
	return s.write(ctx, f, u, true)
}

// UpdateOne implements session.Store.
//
//	Performance: 1 EVALSHA.
func (s *Store) UpdateOne(ctx context.Context, f session.Filter, u session.Update) error {
	return s.write(ctx, f, u, false)
}

// write runs the upsert script; without create a missing record is ErrNotFound.
func (s *Store) write(ctx context.Context, f session.Filter, u session.Update, create bool) error {
	if err := f.Validate(); err != nil {
		return err
	}
	index, key, err := s.indexKey(f)
	if err != nil {
		return err
	}

	var identityKey string
	var identityBlob []byte
	if f.Authenticated != nil {
		identityKey = key.String()
		identityBlob, err = session.MarshalValue(f.Authenticated)
		if err != nil {
			return err
		}
	}

	var expireAt int64
	if u.ExpiresAt != nil && s.retention > 0 {
		expireAt = u.ExpiresAt.Add(s.retention).UnixMilli()
	}

	createFlag := "0"
	if create {
		createFlag = "1"
	}
	args := []any{
		session.NewRecordID(),
		s.recordPrefix(),
		s.refreshPrefix(),
		s.identityPrefix(),
		identityKey,
		identityBlob,
		f.Refresh,
		expireAt,
		createFlag,
	}
	pairs, err := encodeUpdate(u)
	if err != nil {
		return err
	}
	args = append(args, pairs...)

	if err := upsertLua.Run(ctx, s.redis, []string{index}, args...).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return session.ErrNotFound
		}
		return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteOne implements session.Store.
//
//	Performance: 1 EVALSHA.
func (s *Store) DeleteOne(ctx context.Context, f session.Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	index, _, err := s.indexKey(f)
	if err != nil {
		return err
	}
	err = deleteLua.Run(ctx, s.redis, []string{index}, s.recordPrefix(), s.refreshPrefix(), s.identityPrefix()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}

// Close implements session.Store.
func (s *Store) Close() error {
	return s.redis.Close()
}

func encodeUpdate(u session.Update) ([]any, error) {
	pairs := make([]any, 0, 10)
	if u.Token != nil {
		pairs = append(pairs, "token", *u.Token)
	}
	if u.IssuedAt != nil {
		pairs = append(pairs, "iat", u.IssuedAt.UnixMilli())
	}
	if u.ExpiresAt != nil {
		pairs = append(pairs, "exp", u.ExpiresAt.UnixMilli())
	}
	if u.User != nil {
		blob, err := session.MarshalValue(u.User)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, "user", blob)
	}
	if u.Refresh != nil {
		pairs = append(pairs, "refresh", *u.Refresh)
	}
	return pairs, nil
}

func decodeRecord(fields []string) (*session.Record, error) {
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("%w: odd hash reply", session.ErrStoreUnavailable)
	}
	rec := &session.Record{}
	for i := 0; i < len(fields); i += 2 {
		value := fields[i+1]
		var err error
		switch fields[i] {
		case "id":
			rec.ID = value
		case "auth":
			rec.Authenticated, err = session.UnmarshalIdentity([]byte(value))
		case "token":
			rec.Token = value
		case "iat":
			rec.IssuedAt, err = parseMillis(value)
		case "exp":
			rec.ExpiresAt, err = parseMillis(value)
		case "user":
			rec.User, err = session.UnmarshalMap([]byte(value))
		case "refresh":
			rec.Refresh = value
		}
		if err != nil {
			return nil, fmt.Errorf("%w: corrupt record %q field %s: %v", session.ErrStoreUnavailable, rec.ID, fields[i], err)
		}
	}
	return rec, nil
}

func parseMillis(v string) (time.Time, error) {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
