package hostAuth

import (
	"io"
	"log/slog"

	"github.com/MrEthical07/hostAuth/internal/audit"
)

// Audit event types emitted by the Engine.
const (
	AuditEventLogin             = "login"
	AuditEventLoginFailed       = "login_failed"
	AuditEventPermissionExpired = "permission_expired"
	AuditEventRefresh           = "refresh"
	AuditEventRefreshDenied     = "refresh_denied"
	AuditEventLogout            = "logout"
)

// AuditEvent is one session lifecycle event. It never carries tokens, refresh
// values or identity contents.
type AuditEvent = audit.Event

// AuditSink receives audit events from the Engine's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink writes audit events into a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// SlogSink writes audit events as structured log records.
type SlogSink = audit.SlogSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewSlogSink returns a sink logging through logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return audit.NewSlogSink(logger)
}
