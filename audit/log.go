package audit

import (
	"context"
	"log/slog"
)

// =============================================================================
// LogSink
// =============================================================================

// LogSink records audit events using slog (for testing/debugging).
type LogSink struct {
	Logger *slog.Logger
}

// NewLogSink creates a sink that logs to the given logger.
// If logger is nil, uses the default slog logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{Logger: logger}
}

// Record implements Sink.
func (s *LogSink) Record(ctx context.Context, event Event) error {
	s.Logger.Log(ctx, slog.LevelInfo, string(event.Type),
		"id", event.ID,
		"tenant_id", event.TenantID,
		"workflow_id", event.Workflow,
		"artifact_id", event.Artifact,
		"fields", event.Fields,
	)
	return nil
}
