package busauth

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// AuditEvent is a single security-relevant outcome produced by the engine:
// a login attempt, a registration, an OTP verification, a password reset
// request or a password change. Username identifies the acting account when
// it is known; failed attempts against unknown accounts carry only the
// metadata the caller supplied.
//
// Events marshal to flat JSON so they can be shipped to log pipelines
// without transformation.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Username  string            `json:"username,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives audit events from the engine's dispatcher. Emit is
// called from a single dispatcher goroutine, so implementations only need
// to be safe against their own external callers. A sink that blocks slows
// audit delivery, not the authentication flows themselves.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event. It is the fallback when auditing is
// enabled without a sink.
type NoOpSink struct{}

// Emit discards the event.
func (NoOpSink) Emit(context.Context, AuditEvent) {}

// JSONWriterSink writes one JSON object per line to an io.Writer,
// suitable for an append-only audit log file or stdout.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONWriterSink returns a sink that encodes events onto w. The sink
// serializes writes, so w does not need to be safe for concurrent use.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

// Emit encodes the event as a single newline-terminated JSON line.
// Encoding errors are swallowed; auditing never fails a flow.
func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(event)
}
