package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned by FindOne when no record matches the filter.
var ErrNotFound = errors.New("session: record not found")

// ErrStoreUnavailable wraps backend failures (connection loss, I/O errors, corrupt
// rows). Callers treat it as fatal for the current request.
var ErrStoreUnavailable = errors.New("session: store unavailable")

// ErrInvalidFilter is returned when a filter names no selector or both.
var ErrInvalidFilter = errors.New("session: filter must select by identity or by refresh")

// Store persists permission records. Every mutating call is atomic with respect to
// the record it touches.
type Store interface {
	// FindOne returns the record matching f, or ErrNotFound.
	FindOne(ctx context.Context, f Filter) (*Record, error)
	// UpsertOne applies u to the record matching f, creating it when none exists.
	// A created record gets a fresh ID and takes its selector from f.
	UpsertOne(ctx context.Context, f Filter, u Update) error
	// UpdateOne applies u to the record matching f and returns ErrNotFound when
	// none exists. It never creates a record.
	UpdateOne(ctx context.Context, f Filter, u Update) error
	// DeleteOne removes the record matching f. Deleting a missing record is not an
	// error.
	DeleteOne(ctx context.Context, f Filter) error
	// Close releases the backend's handles.
	Close() error
}
