package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Event is one session lifecycle event. It never carries tokens, refresh
// values or identity contents.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Host      string            `json:"host,omitempty"`
	Mode      string            `json:"mode,omitempty"`
	RecordID  string            `json:"record_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Attrs flattens e into log attributes. Empty fields are left out and
// metadata keys are prefixed with "meta." in sorted order.
func (e Event) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, 7+len(e.Metadata))
	attrs = append(attrs,
		slog.String("event_type", e.EventType),
		slog.Time("timestamp", e.Timestamp),
		slog.Bool("success", e.Success),
	)
	for _, f := range [...]struct{ key, value string }{
		{"host", e.Host},
		{"mode", e.Mode},
		{"record_id", e.RecordID},
		{"error", e.Error},
	} {
		if f.value != "" {
			attrs = append(attrs, slog.String(f.key, f.value))
		}
	}
	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String("meta."+k, e.Metadata[k]))
	}
	return attrs
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink hands events to a reader through a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event { return s.events }

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(event)
}

// SlogSink writes each event as one structured log record: Info for
// successes, Warn for failures.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink returns a sink writing to logger, or to slog.Default when nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Emit(ctx context.Context, event Event) {
	if s == nil {
		return
	}
	level := slog.LevelWarn
	if event.Success {
		level = slog.LevelInfo
	}
	s.logger.LogAttrs(ctx, level, "audit", event.Attrs()...)
}
