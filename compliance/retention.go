package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/randalmurphal/tiervault/audit"
)

// renameFile is a seam for crash-simulation in tests.
var renameFile = os.Rename

// RetentionReport summarizes one retention pass over the auxiliary
// logs.
type RetentionReport struct {
	StartedAt time.Time      `json:"startedAt"`
	Removed   map[string]int `json:"removed"`
	Errors    []string       `json:"errors,omitempty"`
}

// EnforceRetention prunes auxiliary logs per kind: entries older than
// the kind's window (in days) are dropped. Each log is rewritten as a
// filtered copy to a temp file followed by an atomic rename, so a
// crash mid-prune leaves the original log fully intact, never
// truncated.
func (o *Ops) EnforceRetention(ctx context.Context, windows map[string]int) (*RetentionReport, error) {
	if o.logsDir == "" {
		return nil, fmt.Errorf("no logs directory configured")
	}

	report := &RetentionReport{
		StartedAt: o.now().UTC(),
		Removed:   make(map[string]int),
	}

	for _, kind := range sortedKinds(windows) {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		days := windows[kind]
		if days <= 0 {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: window must be positive, got %d", kind, days))
			continue
		}

		cutoff := o.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
		removed, err := o.pruneLog(kind, cutoff)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", kind, err))
			continue
		}
		report.Removed[kind] = removed

		if removed > 0 {
			audit.Emit(ctx, o.sink, audit.Event{
				Type:      audit.EventRetentionEnforced,
				Timestamp: o.now().UTC(),
				Fields: map[string]any{
					"log_kind":    kind,
					"removed":     removed,
					"window_days": days,
				},
			})
		}
	}

	return report, nil
}

func (o *Ops) pruneLog(kind string, cutoff time.Time) (int, error) {
	path := filepath.Join(o.logsDir, kind+".log")
	events, err := audit.ReadLog(path)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	removed := 0
	kept := events[:0:0]
	for _, ev := range events {
		if ev.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, ev)
	}

	if removed == 0 {
		return 0, nil
	}
	if err := rewriteLog(path, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// rewriteLog replaces a JSON-lines log with the given entries via
// temp-file write + atomic rename.
func rewriteLog(path string, events []audit.Event) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".prune-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return err
		}
		if _, err := tmp.Write(append(data, '\n')); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return err
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := renameFile(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// logKinds lists the auxiliary log kinds (basename without .log) under
// a logs directory.
func logKinds(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var kinds []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".log") {
			continue
		}
		kinds = append(kinds, strings.TrimSuffix(name, ".log"))
	}
	sort.Strings(kinds)
	return kinds, nil
}

func sortedKinds(windows map[string]int) []string {
	kinds := make([]string, 0, len(windows))
	for kind := range windows {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
