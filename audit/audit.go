package audit

import (
	"context"
	"log/slog"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// =============================================================================
// Audit Event Types
// =============================================================================

// EventType identifies the state change an audit event records.
type EventType string

// Event type constants. Every state-changing operation in the engine
// emits exactly one of these.
const (
	EventArtifactWritten   EventType = "artifact_written"
	EventArtifactRelabeled EventType = "artifact_relabeled"
	EventPromotedToWarm    EventType = "promoted_to_warm"
	EventPromotedToCold    EventType = "promoted_to_cold"
	EventArtifactPurged    EventType = "artifact_purged"
	EventKeyRotated        EventType = "key_rotated"
	EventLegalHoldApplied  EventType = "legal_hold_applied"
	EventLegalHoldReleased EventType = "legal_hold_released"
	EventTenantExported    EventType = "tenant_exported"
	EventTenantDeleted     EventType = "tenant_deleted"
	EventRetentionEnforced EventType = "retention_enforced"
)

// Event is one appended record of a state change.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	TenantID  string         `json:"tenant_id,omitempty"`
	Workflow  string         `json:"workflow_id,omitempty"`
	Artifact  string         `json:"artifact_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// =============================================================================
// Sink Interface
// =============================================================================

// Sink records audit events. Implementations append; nothing ever
// rewrites or removes a recorded event except retention enforcement.
type Sink interface {
	// Record appends one event. Implementations should be fast;
	// callers treat failure as a warning, not an operation failure.
	Record(ctx context.Context, event Event) error
}

// Emit fills in the event ID and timestamp if unset and records the
// event on sink. A sink failure is logged at warn level and swallowed:
// audit unavailability must never block the underlying operation.
func Emit(ctx context.Context, sink Sink, event Event) {
	if sink == nil {
		return
	}
	if event.ID == "" {
		if id, err := nanoid.New(); err == nil {
			event.ID = id
		}
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := sink.Record(ctx, event); err != nil {
		slog.Warn("audit sink failed",
			"error", err,
			"event_type", event.Type,
			"tenant_id", event.TenantID,
		)
	}
}

// =============================================================================
// Context Injection
// =============================================================================

type sinkContextKey string

const sinkServiceKey sinkContextKey = "tiervault.audit"

// WithSink adds a Sink to the context.
func WithSink(ctx context.Context, s Sink) context.Context {
	return context.WithValue(ctx, sinkServiceKey, s)
}

// SinkFromContext extracts the Sink from context.
// Returns nil if no sink is configured.
func SinkFromContext(ctx context.Context) Sink {
	if s, ok := ctx.Value(sinkServiceKey).(Sink); ok {
		return s
	}
	return nil
}
