package hostAuth

import (
	"sort"
	"sync/atomic"
	"time"
)

// MetricID names one engine counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that stored a record and issued a token.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts logins rejected or failed for any reason.
	MetricLoginFailure
	// MetricAuthenticateFailure counts tokens that did not verify.
	MetricAuthenticateFailure
	// MetricPermissionGranted counts permission checks that found a live record.
	MetricPermissionGranted
	// MetricPermissionDenied counts permission checks with no record.
	MetricPermissionDenied
	// MetricSessionExpired counts records deleted because they expired.
	MetricSessionExpired
	// MetricSessionSlid counts slideExpiration extensions.
	MetricSessionSlid
	// MetricRefreshSuccess counts re-signed tokens.
	MetricRefreshSuccess
	// MetricRefreshForbidden counts refresh values that named no record.
	MetricRefreshForbidden
	// MetricRefreshUnauthorized counts refresh attempts against expired records.
	MetricRefreshUnauthorized
	// MetricLogout counts logout calls.
	MetricLogout
	// MetricStoreFailure counts store calls that failed.
	MetricStoreFailure
	// MetricPermissionLatency is the permission check latency histogram.
	MetricPermissionLatency
	metricIDCount
)

// LatencyBounds are the inclusive upper bounds of the latency histogram
// buckets. One overflow bucket follows the last bound.
var LatencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const latencyBucketCount = len(LatencyBounds) + 1

// Histogram is a copy of one latency histogram.
type Histogram struct {
	// Buckets holds per-bucket counts, overflow last.
	Buckets []uint64
	Sum     time.Duration
}

// Count is the number of observations.
func (h Histogram) Count() uint64 {
	var n uint64
	for _, b := range h.Buckets {
		n += b
	}
	return n
}

// Cumulative returns running totals over Buckets, always with one entry per
// bound plus overflow.
func (h Histogram) Cumulative() []uint64 {
	out := make([]uint64, latencyBucketCount)
	var running uint64
	for i := range out {
		if i < len(h.Buckets) {
			running += h.Buckets[i]
		}
		out[i] = running
	}
	return out
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID]Histogram
}

func emptySnapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID]Histogram{},
	}
}

// Counters sit on their own cache line; every request bumps several at once.
type counterSlot struct {
	n atomic.Uint64
	_ [56]byte
}

type latencySlot struct {
	buckets [latencyBucketCount]atomic.Uint64
	sum     atomic.Int64
}

// Metrics holds lock-free engine counters. A nil or disabled Metrics ignores
// every update.
type Metrics struct {
	record   bool
	latency  bool
	counters [metricIDCount]counterSlot
	perm     latencySlot
}

// NewMetrics returns metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		record:  cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool { return m != nil && m.record }

// LatencyEnabled reports whether latency histograms are recorded.
func (m *Metrics) LatencyEnabled() bool { return m != nil && m.latency }

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount {
		return
	}
	m.counters[id].n.Add(1)
}

// Observe records d in the histogram id. MetricPermissionLatency is the only
// histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricPermissionLatency {
		return
	}
	m.perm.buckets[latencyBucket(d)].Add(1)
	m.perm.sum.Add(int64(d))
}

// Value returns the current value of the counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].n.Load()
}

// Snapshot copies every counter, and the latency histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := emptySnapshot()
	if !m.Enabled() {
		return s
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricPermissionLatency {
			continue
		}
		s.Counters[id] = m.counters[id].n.Load()
	}
	if m.latency {
		h := Histogram{Buckets: make([]uint64, latencyBucketCount)}
		for i := range m.perm.buckets {
			h.Buckets[i] = m.perm.buckets[i].Load()
		}
		h.Sum = time.Duration(m.perm.sum.Load())
		s.Histograms[MetricPermissionLatency] = h
	}
	return s
}

func latencyBucket(d time.Duration) int {
	return sort.Search(len(LatencyBounds), func(i int) bool { return d <= LatencyBounds[i] })
}
