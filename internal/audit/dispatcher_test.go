package audit

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{gate: make(chan struct{})}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "e"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDeliversBeforeClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "e"})
	}
	d.Close()
	if got := sink.count.Load(); got != 10 {
		t.Fatalf("expected 10 delivered events after close, got %d", got)
	}
}

func TestDispatcherDropIfFullDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	start := time.Now()
	d.Emit(context.Background(), Event{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestDispatcherBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestDispatcherBlockedEmitHonoursContext(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	d.Emit(ctx, Event{EventType: "e3"})
	if time.Since(start) > time.Second {
		t.Fatal("emit ignored context cancellation")
	}
	if d.Dropped() != 1 {
		t.Fatalf("abandoned emit must count as dropped, got %d", d.Dropped())
	}
}

func TestDispatcherPreservesOrder(t *testing.T) {
	sink := NewChannelSink(64)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	for _, typ := range []string{"login", "refresh", "logout"} {
		d.Emit(context.Background(), Event{EventType: typ})
	}
	d.Close()
	for _, want := range []string{"login", "refresh", "logout"} {
		if got := (<-sink.Events()).EventType; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	}
}

func TestDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, DropIfFull: true}, &countingSink{})
	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Close()
	d.Close()
	d.Emit(context.Background(), Event{EventType: "e2"})
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{
		Timestamp: time.Now().UTC(),
		EventType: "login",
		Host:      "a.test",
		RecordID:  "01J0000000000000000000000",
		Success:   true,
	})
	sink.Emit(context.Background(), Event{EventType: "logout", Success: true})

	out := buf.String()
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected two lines, got %q", out)
	}
	for _, want := range []string{`"event_type":"login"`, `"host":"a.test"`, `"record_id":"01J0000000000000000000000"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %q", want, out)
		}
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewSlogSink(logger)

	sink.Emit(context.Background(), Event{EventType: "login", Host: "a.test", Success: true})
	sink.Emit(context.Background(), Event{EventType: "refresh_denied", Error: "refresh_forbidden", Metadata: map[string]string{"reason": "unknown"}})

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two records, got %q", out)
	}
	if !strings.Contains(lines[0], "level=INFO") || !strings.Contains(lines[0], "host=a.test") {
		t.Fatalf("unexpected success record %q", lines[0])
	}
	if !strings.Contains(lines[1], "level=WARN") || !strings.Contains(lines[1], "meta.reason=unknown") {
		t.Fatalf("unexpected failure record %q", lines[1])
	}
}

func TestChannelSinkDelivers(t *testing.T) {
	sink := NewChannelSink(0)
	sink.Emit(context.Background(), Event{EventType: "logout"})
	select {
	case ev := <-sink.Events():
		if ev.EventType != "logout" {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("expected buffered event")
	}
}

func TestEventAttrsSkipEmptyAndSortMetadata(t *testing.T) {
	attrs := Event{EventType: "refresh", Host: "a.test", Metadata: map[string]string{"z": "1", "a": "2"}}.Attrs()
	var keys []string
	for _, a := range attrs {
		keys = append(keys, a.Key)
	}
	want := []string{"event_type", "timestamp", "success", "host", "meta.a", "meta.z"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
}
