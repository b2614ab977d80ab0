package compliance

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/randalmurphal/tiervault"
	"github.com/randalmurphal/tiervault/audit"
	"github.com/randalmurphal/tiervault/capability"
)

// DeleteSummary reports the scope of a tenant delete. A dry run
// produces exactly the counts a live run would remove.
type DeleteSummary struct {
	TenantID     string         `json:"tenantId"`
	DryRun       bool           `json:"dryRun"`
	StartedAt    time.Time      `json:"startedAt"`
	Artifacts    []string       `json:"artifacts"`
	BytesRemoved int64          `json:"bytesRemoved"`
	LogEvents    map[string]int `json:"logEvents,omitempty"`
	Errors       []string       `json:"errors,omitempty"`
}

// Delete irreversibly removes every artifact and auxiliary-log record
// scoped to a tenant. An active legal hold vetoes the delete with
// ErrLegalHoldActive before anything is touched. Requires the delete
// capability; a live run must be explicitly requested with
// dryRun=false.
func (o *Ops) Delete(ctx context.Context, actor, tenant string, dryRun bool) (*DeleteSummary, error) {
	if !o.caps.Has(actor, capability.Delete) {
		return nil, fmt.Errorf("%w: delete", ErrCapabilityDenied)
	}
	if err := tiervault.ValidateComponent(tenant); err != nil {
		return nil, fmt.Errorf("tenant %q: %w", tenant, err)
	}

	if o.holdVeto {
		if hold, held := o.holds.Active(tenant); held {
			return nil, fmt.Errorf("%w: tenant %s held since %s (%s)",
				ErrLegalHoldActive, tenant, hold.AppliedAt.Format(time.RFC3339), hold.Reason)
		}
	}

	summary := &DeleteSummary{
		TenantID:  tenant,
		DryRun:    dryRun,
		StartedAt: o.now().UTC(),
		Artifacts: make([]string, 0),
		LogEvents: make(map[string]int),
	}

	for _, tier := range tiervault.Tiers {
		entries, err := o.store.ListTenant(tier, tenant)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", tier, err)
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			if !dryRun {
				res, err := o.store.Purge(ctx, tier, entry.ID)
				if err != nil {
					summary.Errors = append(summary.Errors, fmt.Sprintf("purge %s: %v", entry.ID, err))
					continue
				}
				if !res.Removed {
					continue
				}
			}
			summary.Artifacts = append(summary.Artifacts, entry.ID.String())
			summary.BytesRemoved += entry.Sidecar.Size
		}
	}

	if o.logsDir != "" {
		kinds, err := logKinds(o.logsDir)
		if err != nil {
			return nil, err
		}
		for _, kind := range kinds {
			removed, err := o.scrubLog(kind, tenant, dryRun)
			if err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("log %s: %v", kind, err))
				continue
			}
			if removed > 0 {
				summary.LogEvents[kind] = removed
			}
		}
	}

	if !dryRun {
		audit.Emit(ctx, o.sink, audit.Event{
			Type:      audit.EventTenantDeleted,
			Timestamp: o.now().UTC(),
			TenantID:  tenant,
			Fields: map[string]any{
				"artifacts":     len(summary.Artifacts),
				"bytes_removed": summary.BytesRemoved,
				"actor":         actor,
			},
		})
	}

	return summary, nil
}

// scrubLog removes a tenant's entries from one auxiliary log. The
// rewrite is filtered-copy-then-rename, the same crash-safe shape as
// retention pruning.
func (o *Ops) scrubLog(kind, tenant string, dryRun bool) (int, error) {
	path := filepath.Join(o.logsDir, kind+".log")
	events, err := audit.ReadLog(path)
	if err != nil {
		return 0, err
	}

	removed := 0
	kept := events[:0:0]
	for _, ev := range events {
		if ev.TenantID == tenant {
			removed++
			continue
		}
		kept = append(kept, ev)
	}

	if dryRun || removed == 0 {
		return removed, nil
	}
	if err := rewriteLog(path, kept); err != nil {
		return 0, err
	}
	return removed, nil
}
