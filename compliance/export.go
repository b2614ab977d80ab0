package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/randalmurphal/tiervault"
	"github.com/randalmurphal/tiervault/audit"
	"github.com/randalmurphal/tiervault/capability"
	"github.com/randalmurphal/tiervault/classify"
)

// Manifest summarizes one tenant export: what was included, what the
// classification gate excluded or redacted, and per-category counts.
type Manifest struct {
	ManifestID string         `json:"manifestId"`
	TenantID   string         `json:"tenantId"`
	CreatedAt  time.Time      `json:"createdAt"`
	Policy     ExportPolicy   `json:"policy"`
	Artifacts  int            `json:"artifacts"`
	TotalBytes int64          `json:"totalBytes"`
	Categories map[string]int `json:"categories"`
	Excluded   []string       `json:"excluded,omitempty"`
	Redacted   []string       `json:"redacted,omitempty"`
	LogEvents  map[string]int `json:"logEvents,omitempty"`
	Errors     []string       `json:"errors,omitempty"`
}

// Export writes every artifact and auxiliary log entry for a tenant to
// destDir, gated per artifact by the exporting actor's clearance and
// the configured policy. The operation is read-only with respect to
// the store; it requires the export capability.
func (o *Ops) Export(ctx context.Context, actor, tenant string, clearance classify.Label, destDir string) (*Manifest, error) {
	if !o.caps.Has(actor, capability.Export) {
		return nil, fmt.Errorf("%w: export", ErrCapabilityDenied)
	}
	if err := tiervault.ValidateComponent(tenant); err != nil {
		return nil, fmt.Errorf("tenant %q: %w", tenant, err)
	}

	manifest := &Manifest{
		ManifestID: uuid.NewString(),
		TenantID:   tenant,
		CreatedAt:  o.now().UTC(),
		Policy:     o.policy,
		Categories: make(map[string]int),
		LogEvents:  make(map[string]int),
	}

	scheme := o.store.Scheme()
	title := cases.Title(language.English)

	for _, tier := range tiervault.Tiers {
		entries, err := o.store.ListTenant(tier, tenant)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", tier, err)
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return manifest, err
			}

			label := entry.Sidecar.Label
			if label == "" {
				label = scheme.Default()
			}

			if !scheme.Allows(clearance, label) {
				switch o.policy {
				case PolicyRedact:
					if err := o.exportSidecar(destDir, tier, entry); err != nil {
						manifest.Errors = append(manifest.Errors, fmt.Sprintf("redact %s: %v", entry.ID, err))
						continue
					}
					manifest.Redacted = append(manifest.Redacted, entry.ID.String())
				default:
					manifest.Excluded = append(manifest.Excluded, entry.ID.String())
				}
				continue
			}

			data, err := o.store.Read(ctx, tier, entry.ID, clearance)
			if err != nil {
				manifest.Errors = append(manifest.Errors, fmt.Sprintf("read %s: %v", entry.ID, err))
				continue
			}
			if err := o.exportPayload(destDir, tier, entry, data); err != nil {
				manifest.Errors = append(manifest.Errors, fmt.Sprintf("write %s: %v", entry.ID, err))
				continue
			}

			manifest.Artifacts++
			manifest.TotalBytes += int64(len(data))
			manifest.Categories[title.String(string(label))]++
		}
	}

	if o.logsDir != "" {
		kinds, err := logKinds(o.logsDir)
		if err != nil {
			return nil, err
		}
		for _, kind := range kinds {
			count, err := o.exportLog(destDir, kind, tenant)
			if err != nil {
				manifest.Errors = append(manifest.Errors, fmt.Sprintf("log %s: %v", kind, err))
				continue
			}
			if count > 0 {
				manifest.LogEvents[kind] = count
			}
		}
	}

	if err := writeManifest(destDir, manifest); err != nil {
		return nil, err
	}

	audit.Emit(ctx, o.sink, audit.Event{
		Type:      audit.EventTenantExported,
		Timestamp: o.now().UTC(),
		TenantID:  tenant,
		Fields: map[string]any{
			"manifest_id": manifest.ManifestID,
			"artifacts":   manifest.Artifacts,
			"total_bytes": manifest.TotalBytes,
			"excluded":    len(manifest.Excluded),
			"redacted":    len(manifest.Redacted),
			"actor":       actor,
		},
	})

	return manifest, nil
}

func (o *Ops) exportPayload(destDir string, tier tiervault.Tier, entry tiervault.Entry, data []byte) error {
	dir := filepath.Join(destDir, "artifacts", string(tier), entry.ID.Workflow)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, entry.ID.Artifact), data, 0644)
}

func (o *Ops) exportSidecar(destDir string, tier tiervault.Tier, entry tiervault.Entry) error {
	dir := filepath.Join(destDir, "artifacts", string(tier), entry.ID.Workflow)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entry.Sidecar, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, entry.ID.Artifact+".meta.json"), data, 0644)
}

func (o *Ops) exportLog(destDir, kind, tenant string) (int, error) {
	events, err := audit.ReadLog(filepath.Join(o.logsDir, kind+".log"))
	if err != nil {
		return 0, err
	}

	var matched []audit.Event
	for _, ev := range events {
		if ev.TenantID == tenant {
			matched = append(matched, ev)
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}

	dir := filepath.Join(destDir, "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}
	f, err := os.Create(filepath.Join(dir, kind+".log"))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	for _, ev := range matched {
		data, err := json.Marshal(ev)
		if err != nil {
			return 0, err
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			return 0, err
		}
	}
	return len(matched), nil
}

func writeManifest(destDir string, m *Manifest) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(destDir, "manifest.json"), append(data, '\n'), 0644)
}
