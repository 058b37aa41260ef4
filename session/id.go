package session

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewRecordID returns a lexicographically sortable ULID for a new record.
func NewRecordID() string {
	return NewRecordIDAt(time.Now().UTC())
}

// NewRecordIDAt is NewRecordID with an explicit timestamp.
func NewRecordIDAt(t time.Time) string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), idEntropy).String()
}
