package audit

import (
	"context"
	"log/slog"
)

// =============================================================================
// MultiSink
// =============================================================================

// MultiSink records events to multiple sinks.
type MultiSink struct {
	Sinks  []Sink
	Logger *slog.Logger
}

// NewMultiSink creates a sink that fans out to multiple sinks.
// Errors from individual sinks are logged but don't stop other sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{
		Sinks:  sinks,
		Logger: slog.Default(),
	}
}

// Record implements Sink.
func (m *MultiSink) Record(ctx context.Context, event Event) error {
	var lastErr error
	for _, sink := range m.Sinks {
		if err := sink.Record(ctx, event); err != nil {
			lastErr = err
			if m.Logger != nil {
				m.Logger.Warn("audit sink failed",
					"error", err,
					"event_type", event.Type,
				)
			}
		}
	}
	return lastErr // Return last error, if any
}

// =============================================================================
// NopSink
// =============================================================================

// NopSink is a no-op sink that discards all events.
// Useful for testing or when auditing is disabled.
type NopSink struct{}

// Record implements Sink.
func (NopSink) Record(ctx context.Context, event Event) error {
	return nil
}
