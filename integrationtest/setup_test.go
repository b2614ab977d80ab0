package integrationtest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tiervault"
	"github.com/randalmurphal/tiervault/audit"
	"github.com/randalmurphal/tiervault/capability"
	"github.com/randalmurphal/tiervault/compliance"
	"github.com/randalmurphal/tiervault/config"
	"github.com/randalmurphal/tiervault/keyring"
	"github.com/randalmurphal/tiervault/lifecycle"
	"github.com/randalmurphal/tiervault/testutil"
)

// vault bundles a fully wired storage engine for end-to-end tests.
type vault struct {
	cfg    config.Config
	store  *tiervault.Store
	ops    *compliance.Ops
	engine *lifecycle.Engine
	clock  *testutil.Clock
	jwt    capability.JWTConfig
}

// setupVault wires the whole engine the way an embedding service would:
// configuration loaded from a YAML file, an encrypted tiered store, a
// legal-hold registry, compliance operations gated by JWT capability
// tokens, and a lifecycle engine, all sharing one injected clock and
// one file-backed audit log.
func setupVault(t *testing.T) *vault {
	t.Helper()

	dir := t.TempDir()

	cfg := config.Default()
	cfg.BaseDir = filepath.Join(dir, "vault")
	cfgPath := filepath.Join(dir, "tiervault.yaml")
	require.NoError(t, cfg.Save(cfgPath))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	scheme, err := cfg.Scheme()
	require.NoError(t, err)

	ring, err := keyring.Open(cfg.KeyringPath)
	require.NoError(t, err)

	sink, err := audit.NewFileSink(filepath.Join(cfg.LogsDir, "engine.log"))
	require.NoError(t, err)

	jwtCfg := capability.JWTConfig{
		Secret: []byte("integration-test-secret-32-bytes"),
		Issuer: "tiervault",
	}
	checker := capability.NewJWTChecker(jwtCfg)

	clock := testutil.NewClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))

	store, err := tiervault.NewStore(tiervault.StoreConfig{
		BaseDir:           cfg.BaseDir,
		Keyring:           ring,
		EncryptionEnabled: cfg.Encryption,
		Scheme:            scheme,
		Capabilities:      checker,
		Audit:             sink,
		Now:               clock.Now,
	})
	require.NoError(t, err)

	holds, err := compliance.OpenHolds(cfg.HoldsPath, sink)
	require.NoError(t, err)

	ops, err := compliance.New(compliance.Config{
		Store:        store,
		Holds:        holds,
		Capabilities: checker,
		Audit:        sink,
		LogsDir:      cfg.LogsDir,
		ExportPolicy: compliance.ExportPolicy(cfg.ExportPolicy),
		Now:          clock.Now,
	})
	require.NoError(t, err)

	engine, err := lifecycle.New(store, lifecycle.Config{
		HotDays:  cfg.Retention.HotDays,
		WarmDays: cfg.Retention.WarmDays,
		ColdDays: cfg.Retention.ColdDays,
		Now:      clock.Now,
	})
	require.NoError(t, err)

	return &vault{cfg: cfg, store: store, ops: ops, engine: engine, clock: clock, jwt: jwtCfg}
}

// token issues a signed capability token; it is the actor string the
// engine expects wherever a capability check applies.
func (v *vault) token(t *testing.T, actor string, caps ...capability.Capability) string {
	t.Helper()
	tok, err := capability.IssueToken(v.jwt, actor, caps)
	require.NoError(t, err)
	return tok
}

// engineLog reads back the shared audit log.
func (v *vault) engineLog(t *testing.T) []audit.Event {
	t.Helper()
	events, err := audit.ReadLog(filepath.Join(v.cfg.LogsDir, "engine.log"))
	require.NoError(t, err)
	return events
}

func countByType(events []audit.Event, typ audit.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}
