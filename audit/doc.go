// Package audit provides the append-only audit trail for storage
// operations.
//
// Core types:
//   - Sink: Interface for recording audit events
//   - Event: One state-change record with identifiers and fields
//   - EventType: Type of state change (written, promoted, purged, etc.)
//
// Implementations:
//   - FileSink: Appends JSON lines to a per-subsystem log file
//   - LogSink: Logs events via slog (for testing/debugging)
//   - MultiSink: Fans out to multiple sinks
//   - NopSink: No-op sink (for testing)
//
// Sinks are advisory: Emit logs a failed Record at warn level and
// returns, so a broken audit backend never blocks storage operations.
//
// Example usage:
//
//	sink, _ := audit.NewFileSink(filepath.Join(dir, "logs", "store.log"))
//	audit.Emit(ctx, sink, audit.Event{
//	    Type:     audit.EventArtifactWritten,
//	    TenantID: "tenant-a",
//	})
package audit
