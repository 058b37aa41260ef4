// Package memstore is an in-process session.Store for tests, examples, and
// single-instance deployments. Records do not survive a restart.
package memstore

import (
	"context"
	"sync"

	"github.com/MrEthical07/hostAuth/session"
)

// Store keeps records in memory behind one mutex.
type Store struct {
	mu         sync.Mutex
	records    map[string]*session.Record
	byIdentity map[session.Key]string
	byRefresh  map[string]string
	closed     bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		records:    make(map[string]*session.Record),
		byIdentity: make(map[session.Key]string),
		byRefresh:  make(map[string]string),
	}
}

// FindOne implements session.Store.
func (s *Store) FindOne(ctx context.Context, f session.Filter) (*session.Record, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, session.ErrStoreUnavailable
	}

	id, err := s.lookup(f)
	if err != nil {
		return nil, err
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return rec.Clone(), nil
}

// UpsertOne implements session.Store.
func (s *Store) UpsertOne(ctx context.Context, f session.Filter, u session.Update) error {
	if err := f.Validate(); err != nil {
		return err
	}
	var key session.Key
	if f.Authenticated != nil {
		k, err := session.IdentityKey(f.Authenticated)
		if err != nil {
			return err
		}
		key = k
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return session.ErrStoreUnavailable
	}

	id, err := s.lookup(f)
	rec := s.records[id]
	if err != nil || rec == nil {
		rec = session.Seed(f, session.NewRecordID())
		s.records[rec.ID] = rec
		if f.Authenticated != nil {
			s.byIdentity[key] = rec.ID
		}
		if rec.Refresh != "" {
			s.byRefresh[rec.Refresh] = rec.ID
		}
	}

	s.apply(rec, u)
	return nil
}

// UpdateOne implements session.Store.
func (s *Store) UpdateOne(ctx context.Context, f session.Filter, u session.Update) error {
	if err := f.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return session.ErrStoreUnavailable
	}

	id, err := s.lookup(f)
	if err != nil {
		return err
	}
	rec, ok := s.records[id]
	if !ok {
		return session.ErrNotFound
	}
	s.apply(rec, u)
	return nil
}

// apply runs u on rec and keeps the refresh index in step. s.mu must be held.
func (s *Store) apply(rec *session.Record, u session.Update) {
	previous := rec.Refresh
	u.Apply(rec)
	if rec.Refresh != previous {
		delete(s.byRefresh, previous)
		if rec.Refresh != "" {
			s.byRefresh[rec.Refresh] = rec.ID
		}
	}
}

// DeleteOne implements session.Store.
func (s *Store) DeleteOne(ctx context.Context, f session.Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return session.ErrStoreUnavailable
	}

	id, err := s.lookup(f)
	if err != nil {
		return nil
	}
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	delete(s.records, id)
	if rec.Refresh != "" {
		delete(s.byRefresh, rec.Refresh)
	}
	if rec.Authenticated != nil {
		if key, err := session.IdentityKey(rec.Authenticated); err == nil {
			delete(s.byIdentity, key)
		}
	}
	return nil
}

// Close implements session.Store. Later calls fail with session.ErrStoreUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) lookup(f session.Filter) (string, error) {
	if f.Refresh != "" {
		id, ok := s.byRefresh[f.Refresh]
		if !ok {
			return "", session.ErrNotFound
		}
		return id, nil
	}
	key, err := session.IdentityKey(f.Authenticated)
	if err != nil {
		return "", err
	}
	id, ok := s.byIdentity[key]
	if !ok {
		return "", session.ErrNotFound
	}
	return id, nil
}
