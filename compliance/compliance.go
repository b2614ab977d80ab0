package compliance

import (
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/tiervault"
	"github.com/randalmurphal/tiervault/audit"
	"github.com/randalmurphal/tiervault/capability"
)

// ErrCapabilityDenied indicates the actor lacks the capability a
// compliance operation requires. Distinct from clearance-based
// permission denials on individual artifacts.
var ErrCapabilityDenied = errors.New("capability denied")

// ExportPolicy decides what happens to artifacts whose label exceeds
// the exporting actor's clearance.
type ExportPolicy string

// Export policies.
const (
	// PolicyDeny skips over-classified artifacts entirely, recording
	// the exclusion in the manifest only.
	PolicyDeny ExportPolicy = "deny"

	// PolicyRedact includes sidecar metadata but omits content.
	PolicyRedact ExportPolicy = "redact"
)

// Config holds configuration for compliance operations.
type Config struct {
	// Store is the tiered store operated on (required).
	Store *tiervault.Store

	// Holds is the legal-hold registry consulted before deletes
	// (required).
	Holds *HoldRegistry

	// Capabilities gates export and delete.
	// Defaults to capability.AllowAll if nil.
	Capabilities capability.Checker

	// Audit receives tenant-level export/delete/retention events.
	Audit audit.Sink

	// LogsDir is the directory of auxiliary JSON-lines event logs
	// (one .log file per kind) included in exports, scoped deletes
	// and retention pruning. Optional.
	LogsDir string

	// ExportPolicy is applied to over-classified artifacts.
	// Defaults to PolicyDeny.
	ExportPolicy ExportPolicy

	// DisableHoldCheck turns off the legal-hold veto on delete. The
	// zero value keeps holds blocking, which is the safe default.
	DisableHoldCheck bool

	// Now supplies timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Ops implements tenant-scoped compliance operations: export, delete
// and auxiliary-log retention.
type Ops struct {
	store    *tiervault.Store
	holds    *HoldRegistry
	caps     capability.Checker
	sink     audit.Sink
	logsDir  string
	policy   ExportPolicy
	holdVeto bool
	now      func() time.Time
}

// New creates compliance operations over a store and hold registry.
func New(cfg Config) (*Ops, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Holds == nil {
		return nil, fmt.Errorf("hold registry is required")
	}

	caps := cfg.Capabilities
	if caps == nil {
		caps = capability.AllowAll{}
	}
	policy := cfg.ExportPolicy
	if policy == "" {
		policy = PolicyDeny
	}
	if policy != PolicyDeny && policy != PolicyRedact {
		return nil, fmt.Errorf("unknown export policy: %q", policy)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Ops{
		store:    cfg.Store,
		holds:    cfg.Holds,
		caps:     caps,
		sink:     cfg.Audit,
		logsDir:  cfg.LogsDir,
		policy:   policy,
		holdVeto: !cfg.DisableHoldCheck,
		now:      now,
	}, nil
}

// Holds returns the legal-hold registry.
func (o *Ops) Holds() *HoldRegistry {
	return o.holds
}
