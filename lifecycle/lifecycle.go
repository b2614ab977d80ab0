// Package lifecycle drives age-based tier migration: artifacts are
// promoted hot -> warm -> cold once their current tier's retention
// window elapses, and purged once the cold window elapses. Runs are
// scheduled batch jobs, idempotent under concurrency and crash, and
// default to dry-run.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/tiervault"
)

// Config defines retention windows per tier.
type Config struct {
	// HotDays, WarmDays and ColdDays are the retention windows in
	// days. An artifact older than its current tier's window is
	// promoted to the next tier, or purged from cold.
	HotDays  int
	WarmDays int
	ColdDays int

	// Now supplies timestamps for aging. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns sensible retention defaults.
func DefaultConfig() Config {
	return Config{
		HotDays:  7,
		WarmDays: 30,
		ColdDays: 90,
	}
}

func (c Config) window(tier tiervault.Tier) time.Duration {
	days := 0
	switch tier {
	case tiervault.TierHot:
		days = c.HotDays
	case tiervault.TierWarm:
		days = c.WarmDays
	case tiervault.TierCold:
		days = c.ColdDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// Engine scans the tiered store and applies retention policy.
type Engine struct {
	store  *tiervault.Store
	config Config
	now    func() time.Time
}

// New creates a lifecycle engine over a store. All three windows must
// be positive; a zero window would purge everything on the first run.
func New(store *tiervault.Store, cfg Config) (*Engine, error) {
	if cfg.HotDays <= 0 || cfg.WarmDays <= 0 || cfg.ColdDays <= 0 {
		return nil, fmt.Errorf("retention windows must be positive: hot=%d warm=%d cold=%d",
			cfg.HotDays, cfg.WarmDays, cfg.ColdDays)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{store: store, config: cfg, now: cfg.Now}, nil
}

// Action is what retention policy decided for a candidate.
type Action string

// Candidate actions.
const (
	ActionPromote Action = "promote"
	ActionPurge   Action = "purge"
)

// Candidate is one artifact whose retention window has elapsed.
type Candidate struct {
	ID      tiervault.ID   `json:"id"`
	Tier    tiervault.Tier `json:"tier"`
	Target  tiervault.Tier `json:"target,omitempty"`
	Action  Action         `json:"action"`
	AgeDays int            `json:"ageDays"`
	Size    int64          `json:"size"`
}

// Report summarizes one lifecycle run.
type Report struct {
	RunID          string      `json:"runId"`
	DryRun         bool        `json:"dryRun"`
	StartedAt      time.Time   `json:"startedAt"`
	FinishedAt     time.Time   `json:"finishedAt"`
	Candidates     []Candidate `json:"candidates"`
	Promoted       []string    `json:"promoted"`
	Purged         []string    `json:"purged"`
	Skipped        []string    `json:"skipped"`
	Errors         []string    `json:"errors,omitempty"`
	SpaceReclaimed int64       `json:"spaceReclaimed"`
}

// Run performs one retention pass over every tier. With dryRun the
// candidate set and report are computed without mutating storage;
// dry-run is the expected default for operators. An artifact moves at
// most one tier per run, so a dry-run preview always reports the same
// transitions the live run would apply.
//
// A single artifact failure never aborts the scan; failures accumulate
// in Report.Errors. Cancellation is honored between artifact
// transitions, leaving storage valid at that granularity.
func (e *Engine) Run(ctx context.Context, dryRun bool) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		DryRun:    dryRun,
		StartedAt: e.now().UTC(),
		Promoted:  make([]string, 0),
		Purged:    make([]string, 0),
		Skipped:   make([]string, 0),
		Errors:    make([]string, 0),
	}

	// Snapshot every tier before mutating anything. An artifact past
	// several windows at once moves a single tier per run instead of
	// cascading, so a live run matches the dry-run preview of the same
	// state.
	type tierScan struct {
		tier    tiervault.Tier
		entries []tiervault.Entry
	}
	scans := make([]tierScan, 0, len(tiervault.Tiers))
	for _, tier := range tiervault.Tiers {
		entries, err := e.store.List(tier)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("list %s: %v", tier, err))
			continue
		}
		scans = append(scans, tierScan{tier: tier, entries: entries})
	}

	for _, scan := range scans {
		tier := scan.tier
		window := e.config.window(tier)

		for _, entry := range scan.entries {
			if err := ctx.Err(); err != nil {
				report.FinishedAt = e.now().UTC()
				return report, err
			}

			age := e.now().UTC().Sub(entry.Sidecar.CreatedAt)
			if age <= window {
				continue
			}

			cand := Candidate{
				ID:      entry.ID,
				Tier:    tier,
				AgeDays: int(age.Hours() / 24),
				Size:    entry.Sidecar.Size,
			}
			if next, ok := tier.Next(); ok {
				cand.Action = ActionPromote
				cand.Target = next
			} else {
				cand.Action = ActionPurge
			}
			report.Candidates = append(report.Candidates, cand)

			if dryRun {
				continue
			}

			switch cand.Action {
			case ActionPromote:
				res, err := e.store.Promote(ctx, entry.ID, tier, cand.Target, false)
				if err != nil {
					report.Errors = append(report.Errors, fmt.Sprintf("promote %s: %v", entry.ID, err))
					continue
				}
				if res.AlreadyComplete {
					// Lost a race with a concurrent run or a fresh
					// write/purge; the move is done either way.
					report.Skipped = append(report.Skipped, entry.ID.String())
					continue
				}
				report.Promoted = append(report.Promoted, entry.ID.String())

			case ActionPurge:
				res, err := e.store.Purge(ctx, tier, entry.ID)
				if err != nil {
					report.Errors = append(report.Errors, fmt.Sprintf("purge %s: %v", entry.ID, err))
					continue
				}
				if !res.Removed {
					report.Skipped = append(report.Skipped, entry.ID.String())
					continue
				}
				report.Purged = append(report.Purged, entry.ID.String())
				report.SpaceReclaimed += res.SizeBytes
			}
		}
	}

	report.FinishedAt = e.now().UTC()
	return report, nil
}
