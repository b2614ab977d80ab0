package tiervault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/randalmurphal/tiervault/audit"
)

// PromoteResult reports the outcome of one promotion step.
type PromoteResult struct {
	// Moved is true when this call relocated the artifact.
	Moved bool

	// AlreadyComplete is true when the source was gone: a concurrent
	// or earlier run finished the move (or the purge) first.
	AlreadyComplete bool

	// DryRun is true when no mutation was performed.
	DryRun bool

	// SizeBytes is the plaintext size from the sidecar.
	SizeBytes int64
}

// PurgeResult reports the outcome of a purge.
type PurgeResult struct {
	// Removed is true when this call destroyed the artifact. False
	// means the artifact was already gone, which is a no-op, not an
	// error.
	Removed bool

	// SizeBytes is the plaintext size from the sidecar.
	SizeBytes int64
}

// Promote relocates an artifact one tier down the cost ladder. The
// destination is written and flushed before the source is removed, so
// a crash mid-move leaves at most a recoverable duplicate: the next
// run finds the destination present and treats the stale source as a
// completed move. A missing source is an already-complete no-op, never
// an error, to tolerate concurrent and duplicate runs.
func (s *Store) Promote(ctx context.Context, id ID, from, to Tier, dryRun bool) (PromoteResult, error) {
	if err := id.Validate(); err != nil {
		return PromoteResult{}, err
	}
	if !from.Valid() || !to.Valid() {
		return PromoteResult{}, fmt.Errorf("invalid tier pair %q -> %q", from, to)
	}
	next, ok := from.Next()
	if !ok || next != to {
		return PromoteResult{}, fmt.Errorf("promotion must follow tier order, got %q -> %q", from, to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	srcArtifact := s.artifactPath(from, id)
	srcSidecar := s.sidecarPath(from, id)
	dstArtifact := s.artifactPath(to, id)
	dstSidecar := s.sidecarPath(to, id)

	sc, err := readSidecar(srcSidecar)
	if err != nil {
		if !os.IsNotExist(err) {
			return PromoteResult{}, err
		}
		// Source gone. Either the move already completed or the
		// artifact was purged; both are benign.
		return PromoteResult{AlreadyComplete: true}, nil
	}

	if dryRun {
		return PromoteResult{DryRun: true, SizeBytes: sc.Size}, nil
	}

	if _, err := os.Stat(dstSidecar); err == nil {
		// Destination already written: a prior run crashed between
		// write and source removal. Finish the move by clearing the
		// stale source.
		if err := removeBoth(srcArtifact, srcSidecar); err != nil {
			return PromoteResult{}, err
		}
		return PromoteResult{AlreadyComplete: true, SizeBytes: sc.Size}, nil
	}

	payload, err := os.ReadFile(srcArtifact)
	if err != nil {
		if os.IsNotExist(err) {
			return PromoteResult{AlreadyComplete: true}, nil
		}
		return PromoteResult{}, err
	}

	if err := os.MkdirAll(filepath.Dir(dstArtifact), 0755); err != nil {
		return PromoteResult{}, err
	}
	if err := writeFileAtomic(dstArtifact, payload, 0644); err != nil {
		return PromoteResult{}, err
	}
	if err := writeSidecarAtomic(dstSidecar, sc); err != nil {
		return PromoteResult{}, err
	}
	if err := removeBoth(srcArtifact, srcSidecar); err != nil {
		return PromoteResult{}, err
	}

	eventType := audit.EventPromotedToWarm
	if to == TierCold {
		eventType = audit.EventPromotedToCold
	}
	audit.Emit(ctx, s.sink, audit.Event{
		Type:      eventType,
		Timestamp: s.now().UTC(),
		TenantID:  id.Tenant,
		Workflow:  id.Workflow,
		Artifact:  id.Artifact,
		Fields: map[string]any{
			"from_tier":  string(from),
			"to_tier":    string(to),
			"size_bytes": sc.Size,
			"age_days":   s.ageDays(sc),
		},
	})

	return PromoteResult{Moved: true, SizeBytes: sc.Size}, nil
}

// Purge irreversibly destroys an artifact and its sidecar. Acting on
// an already-purged artifact is a no-op.
func (s *Store) Purge(ctx context.Context, tier Tier, id ID) (PurgeResult, error) {
	if err := id.Validate(); err != nil {
		return PurgeResult{}, err
	}
	if !tier.Valid() {
		return PurgeResult{}, fmt.Errorf("invalid tier %q", tier)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sc, err := readSidecar(s.sidecarPath(tier, id))
	if err != nil {
		if os.IsNotExist(err) {
			return PurgeResult{}, nil
		}
		return PurgeResult{}, err
	}

	if err := removeBoth(s.artifactPath(tier, id), s.sidecarPath(tier, id)); err != nil {
		return PurgeResult{}, err
	}

	audit.Emit(ctx, s.sink, audit.Event{
		Type:      audit.EventArtifactPurged,
		Timestamp: s.now().UTC(),
		TenantID:  id.Tenant,
		Workflow:  id.Workflow,
		Artifact:  id.Artifact,
		Fields: map[string]any{
			"tier":       string(tier),
			"size_bytes": sc.Size,
			"age_days":   s.ageDays(sc),
		},
	})

	return PurgeResult{Removed: true, SizeBytes: sc.Size}, nil
}

func (s *Store) ageDays(sc *Sidecar) int {
	return int(s.now().UTC().Sub(sc.CreatedAt).Hours() / 24)
}

// removeBoth removes an artifact and its sidecar, tolerating either
// already being gone.
func removeBoth(artifactPath, sidecarPath string) error {
	if err := os.Remove(artifactPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(sidecarPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
