package compliance

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/randalmurphal/tiervault"
	"github.com/randalmurphal/tiervault/audit"
)

// ErrLegalHoldActive indicates a tenant delete was vetoed by an active
// legal hold. It is distinct from other failures so automation can
// branch on "needs sign-off" rather than "broken".
var ErrLegalHoldActive = errors.New("legal hold active")

// Hold is one appended legal-hold record. The effective state for a
// tenant is its most recent record; a nil ReleasedAt means the hold is
// active.
type Hold struct {
	TenantID   string     `json:"tenant_id"`
	Reason     string     `json:"reason"`
	AppliedAt  time.Time  `json:"applied_at"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
}

// Active reports whether the hold is in force.
func (h Hold) Active() bool {
	return h.ReleasedAt == nil
}

// HoldRegistry is an append-only log of legal holds with an in-memory
// last-write-wins index per tenant, rebuilt on open.
type HoldRegistry struct {
	path string
	sink audit.Sink
	now  func() time.Time

	mu    sync.RWMutex
	index map[string]Hold
}

// OpenHolds loads (or creates) a hold registry backed by the log file
// at path. The sink receives apply/release events and may be nil.
func OpenHolds(path string, sink audit.Sink) (*HoldRegistry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	r := &HoldRegistry{
		path:  path,
		sink:  sink,
		now:   time.Now,
		index: make(map[string]Hold),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *HoldRegistry) load() error {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var h Hold
		if err := json.Unmarshal(line, &h); err != nil {
			return fmt.Errorf("corrupt hold record: %w", err)
		}
		r.index[h.TenantID] = h
	}
	return scanner.Err()
}

// Active returns the tenant's hold if one is in force.
func (r *HoldRegistry) Active(tenant string) (Hold, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.index[tenant]
	if !ok || !h.Active() {
		return Hold{}, false
	}
	return h, true
}

// Apply places a legal hold on a tenant. Applying to an already-held
// tenant is a no-op; only a state change is appended and audited.
func (r *HoldRegistry) Apply(ctx context.Context, tenant, reason string) error {
	if err := tiervault.ValidateComponent(tenant); err != nil {
		return fmt.Errorf("tenant %q: %w", tenant, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.index[tenant]; ok && h.Active() {
		return nil
	}

	h := Hold{
		TenantID:  tenant,
		Reason:    reason,
		AppliedAt: r.now().UTC(),
	}
	if err := r.append(h); err != nil {
		return err
	}
	r.index[tenant] = h

	audit.Emit(ctx, r.sink, audit.Event{
		Type:      audit.EventLegalHoldApplied,
		Timestamp: h.AppliedAt,
		TenantID:  tenant,
		Fields:    map[string]any{"reason": reason},
	})
	return nil
}

// Release lifts a tenant's legal hold. Releasing a tenant without an
// active hold is a no-op.
func (r *HoldRegistry) Release(ctx context.Context, tenant string) error {
	if err := tiervault.ValidateComponent(tenant); err != nil {
		return fmt.Errorf("tenant %q: %w", tenant, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.index[tenant]
	if !ok || !h.Active() {
		return nil
	}

	released := r.now().UTC()
	h.ReleasedAt = &released
	if err := r.append(h); err != nil {
		return err
	}
	r.index[tenant] = h

	audit.Emit(ctx, r.sink, audit.Event{
		Type:      audit.EventLegalHoldReleased,
		Timestamp: released,
		TenantID:  tenant,
	})
	return nil
}

func (r *HoldRegistry) append(h Hold) error {
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}
