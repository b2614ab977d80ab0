package tiervault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/randalmurphal/tiervault/audit"
	"github.com/randalmurphal/tiervault/capability"
	"github.com/randalmurphal/tiervault/classify"
	"github.com/randalmurphal/tiervault/keyring"
)

// StoreConfig holds configuration for the tiered store.
type StoreConfig struct {
	// BaseDir is the root directory for all tiers (required).
	BaseDir string

	// Keyring supplies encryption keys. Required when
	// EncryptionEnabled is true.
	Keyring *keyring.Keyring

	// EncryptionEnabled seals artifact payloads at rest. When false
	// the cipher is bypassed entirely and sidecars record
	// encrypted:false; existing plaintext artifacts stay readable
	// regardless of keyring state.
	EncryptionEnabled bool

	// Scheme is the classification label order.
	// Defaults to classify.DefaultScheme() if unset.
	Scheme classify.Scheme

	// Capabilities gates re-labeling and key rotation.
	// Defaults to capability.AllowAll if nil.
	Capabilities capability.Checker

	// Audit receives one event per state change. Optional; failures
	// degrade to warnings.
	Audit audit.Sink

	// Now supplies timestamps, for deterministic aging in tests.
	// Defaults to time.Now.
	Now func() time.Time
}

// Store places artifacts into cost tiers, enforcing identifier
// validation, envelope encryption and classification gating on every
// operation.
type Store struct {
	baseDir string
	keys    *keyring.Keyring
	encrypt bool
	scheme  classify.Scheme
	caps    capability.Checker
	sink    audit.Sink
	now     func() time.Time

	mu sync.Mutex
}

// Entry pairs an identifier with its sidecar when listing a tier.
type Entry struct {
	ID      ID
	Tier    Tier
	Sidecar Sidecar
}

// NewStore creates a tiered store rooted at cfg.BaseDir. Tier
// directories are created eagerly; with encryption enabled the keyring
// is initialized with its first key if empty.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if cfg.EncryptionEnabled && cfg.Keyring == nil {
		return nil, fmt.Errorf("encryption enabled but no keyring configured")
	}

	scheme := cfg.Scheme
	if len(scheme.Labels()) == 0 {
		scheme = classify.DefaultScheme()
	}
	caps := cfg.Capabilities
	if caps == nil {
		caps = capability.AllowAll{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	for _, tier := range Tiers {
		if err := os.MkdirAll(filepath.Join(cfg.BaseDir, string(tier)), 0755); err != nil {
			return nil, err
		}
	}

	s := &Store{
		baseDir: cfg.BaseDir,
		keys:    cfg.Keyring,
		encrypt: cfg.EncryptionEnabled,
		scheme:  scheme,
		caps:    caps,
		sink:    cfg.Audit,
		now:     now,
	}

	if s.encrypt {
		if _, err := s.keys.EnsureActive(); err != nil {
			return nil, fmt.Errorf("initialize keyring: %w", err)
		}
	}
	return s, nil
}

// Scheme returns the classification scheme the store enforces.
func (s *Store) Scheme() classify.Scheme {
	return s.scheme
}

func (s *Store) artifactPath(tier Tier, id ID) string {
	return filepath.Join(s.baseDir, string(tier), id.Tenant, id.Workflow, id.Artifact)
}

func (s *Store) sidecarPath(tier Tier, id ID) string {
	return s.artifactPath(tier, id) + sidecarSuffix
}

// Write stores an artifact at the hot tier: validate, resolve the
// active key, seal, then atomically write payload and sidecar. An
// empty label gets the scheme default. Artifacts are write-once;
// writing an identifier that already exists at any tier returns
// ErrArtifactExists.
func (s *Store) Write(ctx context.Context, id ID, data []byte, label classify.Label) (*Sidecar, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if label == "" {
		label = s.scheme.Default()
	}
	if !s.scheme.Known(label) {
		return nil, fmt.Errorf("unknown label: %q", label)
	}

	payload := data
	keyID := ""
	if s.encrypt {
		rec, err := s.keys.Active()
		if err != nil {
			return nil, err
		}
		env, err := keyring.Seal(data, rec)
		if err != nil {
			return nil, err
		}
		payload = env.Encode()
		keyID = env.KeyID
	}

	sc := &Sidecar{
		Label:     label,
		TenantID:  id.Tenant,
		KeyID:     keyID,
		CreatedAt: s.now().UTC(),
		Size:      int64(len(data)),
		Encrypted: s.encrypt,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Artifacts are write-once; an identifier that exists at any tier,
	// including one that has already aged downward, is refused.
	for _, tier := range Tiers {
		if _, err := os.Stat(s.sidecarPath(tier, id)); err == nil {
			return nil, fmt.Errorf("%w: %s at %s", ErrArtifactExists, id, tier)
		}
	}

	path := s.artifactPath(TierHot, id)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	if err := writeFileAtomic(path, payload, 0644); err != nil {
		return nil, err
	}
	if err := writeSidecarAtomic(s.sidecarPath(TierHot, id), sc); err != nil {
		return nil, err
	}

	audit.Emit(ctx, s.sink, audit.Event{
		Type:      audit.EventArtifactWritten,
		Timestamp: s.now().UTC(),
		TenantID:  id.Tenant,
		Workflow:  id.Workflow,
		Artifact:  id.Artifact,
		Fields: map[string]any{
			"tier":       string(TierHot),
			"label":      string(label),
			"size_bytes": sc.Size,
			"encrypted":  sc.Encrypted,
			"key_id":     keyID,
		},
	})

	return sc, nil
}

// Read returns the plaintext of an artifact after the clearance gate.
// Insufficient clearance is ErrPermissionDenied, never collapsed into
// not-found, and never plaintext.
func (s *Store) Read(ctx context.Context, tier Tier, id ID, clearance classify.Label) ([]byte, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	sc, err := s.Stat(tier, id)
	if err != nil {
		return nil, err
	}

	label := sc.Label
	if label == "" {
		label = s.scheme.Default()
	}
	if !s.scheme.Allows(clearance, label) {
		return nil, fmt.Errorf("%w: clearance %q below label %q", ErrPermissionDenied, clearance, label)
	}

	payload, err := os.ReadFile(s.artifactPath(tier, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s at %s", ErrArtifactNotFound, id, tier)
		}
		return nil, err
	}

	if !sc.Encrypted {
		return payload, nil
	}
	if s.keys == nil {
		return nil, fmt.Errorf("%w: artifact %s sealed under %s but store has no keyring", ErrEncryptionDisabled, id, sc.KeyID)
	}

	rec, err := s.keys.Get(sc.KeyID)
	if err != nil {
		return nil, err
	}
	env, err := keyring.DecodeEnvelope(sc.KeyID, payload)
	if err != nil {
		return nil, err
	}
	return keyring.OpenEnvelope(env, rec)
}

// Stat returns the sidecar for an artifact without touching the
// payload or the clearance gate.
func (s *Store) Stat(tier Tier, id ID) (*Sidecar, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	sc, err := readSidecar(s.sidecarPath(tier, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s at %s", ErrArtifactNotFound, id, tier)
		}
		return nil, err
	}
	return sc, nil
}

// GetLabel returns the artifact's classification label, or the scheme
// default if the sidecar predates labeling.
func (s *Store) GetLabel(tier Tier, id ID) (classify.Label, error) {
	sc, err := s.Stat(tier, id)
	if err != nil {
		return "", err
	}
	if sc.Label == "" {
		return s.scheme.Default(), nil
	}
	return sc.Label, nil
}

// SetLabel re-labels an artifact. This is the only permitted sidecar
// mutation and requires the relabel capability.
func (s *Store) SetLabel(ctx context.Context, tier Tier, id ID, label classify.Label, actor string) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if !s.scheme.Known(label) {
		return fmt.Errorf("unknown label: %q", label)
	}
	if !s.caps.Has(actor, capability.Relabel) {
		return fmt.Errorf("%w: actor lacks relabel capability", ErrPermissionDenied)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sc, err := s.Stat(tier, id)
	if err != nil {
		return err
	}
	previous := sc.Label
	sc.Label = label
	if err := writeSidecarAtomic(s.sidecarPath(tier, id), sc); err != nil {
		return err
	}

	audit.Emit(ctx, s.sink, audit.Event{
		Type:      audit.EventArtifactRelabeled,
		Timestamp: s.now().UTC(),
		TenantID:  id.Tenant,
		Workflow:  id.Workflow,
		Artifact:  id.Artifact,
		Fields: map[string]any{
			"tier":  string(tier),
			"from":  string(previous),
			"to":    string(label),
			"actor": actor,
		},
	})
	return nil
}

// RotateKey retires the active key and installs a fresh one. Requires
// the rotate_key capability. Previously written artifacts keep
// decrypting under their retired keys.
func (s *Store) RotateKey(ctx context.Context, actor string) (keyring.KeyRecord, error) {
	if !s.encrypt {
		return keyring.KeyRecord{}, ErrEncryptionDisabled
	}
	if !s.caps.Has(actor, capability.RotateKey) {
		return keyring.KeyRecord{}, fmt.Errorf("%w: actor lacks rotate_key capability", ErrPermissionDenied)
	}

	previous, _ := s.keys.Active()
	rec, err := s.keys.Rotate()
	if err != nil {
		return keyring.KeyRecord{}, err
	}

	audit.Emit(ctx, s.sink, audit.Event{
		Type:      audit.EventKeyRotated,
		Timestamp: s.now().UTC(),
		Fields: map[string]any{
			"key_id":  rec.KeyID,
			"retired": previous.KeyID,
			"actor":   actor,
		},
	})
	return rec, nil
}

// List returns every artifact in a tier, sorted by identifier.
func (s *Store) List(tier Tier) ([]Entry, error) {
	tierDir := filepath.Join(s.baseDir, string(tier))
	tenants, err := os.ReadDir(tierDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, tenant := range tenants {
		if !tenant.IsDir() {
			continue
		}
		sub, err := s.ListTenant(tier, tenant.Name())
		if err != nil {
			return nil, err
		}
		entries = append(entries, sub...)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID.String() < entries[j].ID.String()
	})
	return entries, nil
}

// ListTenant returns a tenant's artifacts in a tier, for export and
// delete enumeration. Tenant identifiers are validated before any
// path is built, so an adversarial tenant string never escapes the
// tier directory.
func (s *Store) ListTenant(tier Tier, tenant string) ([]Entry, error) {
	if err := ValidateComponent(tenant); err != nil {
		return nil, fmt.Errorf("tenant %q: %w", tenant, err)
	}

	tenantDir := filepath.Join(s.baseDir, string(tier), tenant)
	workflows, err := os.ReadDir(tenantDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, wf := range workflows {
		if !wf.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(tenantDir, wf.Name()))
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			name := file.Name()
			if file.IsDir() || strings.HasSuffix(name, sidecarSuffix) {
				continue
			}
			id := ID{Tenant: tenant, Workflow: wf.Name(), Artifact: name}
			sc, err := readSidecar(s.sidecarPath(tier, id))
			if err != nil {
				// Payload without a sidecar: a write or promotion
				// interrupted mid-pair. Skip; the next promotion run
				// resolves it.
				continue
			}
			entries = append(entries, Entry{ID: id, Tier: tier, Sidecar: *sc})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID.String() < entries[j].ID.String()
	})
	return entries, nil
}

// Keyring exposes the store's keyring (nil when encryption was never
// configured).
func (s *Store) Keyring() *keyring.Keyring {
	return s.keys
}
