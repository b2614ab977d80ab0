// Package compliance implements tenant-scoped compliance operations
// over the tiered store.
//
// Core operations:
//   - Export: Read-only dump of a tenant's artifacts and log entries,
//     gated per artifact by classification (deny or redact policy),
//     summarized in a manifest
//   - Delete: Irreversible removal of everything scoped to a tenant,
//     vetoed by an active legal hold, dry-run by request
//   - HoldRegistry: Append-only legal-hold log with apply/release
//   - EnforceRetention: Age-based pruning of auxiliary event logs via
//     filtered-copy-then-atomic-rename
//
// Export and Delete require the corresponding capability; a denied
// actor gets ErrCapabilityDenied before any enumeration happens.
package compliance
