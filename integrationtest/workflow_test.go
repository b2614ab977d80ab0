package integrationtest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tiervault"
	"github.com/randalmurphal/tiervault/audit"
	"github.com/randalmurphal/tiervault/capability"
	"github.com/randalmurphal/tiervault/classify"
	"github.com/randalmurphal/tiervault/compliance"
)

// TestArtifactLifecycleJourney walks one artifact from an encrypted hot
// write through tier promotion to the final purge.
func TestArtifactLifecycleJourney(t *testing.T) {
	v := setupVault(t)
	ctx := context.Background()
	id := tiervault.ID{Tenant: "acme", Workflow: "billing", Artifact: "invoices.json"}

	_, err := v.store.Write(ctx, id, []byte(`{"q1": 120000}`), classify.Confidential)
	require.NoError(t, err)

	// Clearance below the label never sees plaintext.
	_, err = v.store.Read(ctx, tiervault.TierHot, id, classify.Internal)
	require.ErrorIs(t, err, tiervault.ErrPermissionDenied)

	// The payload at rest is sealed.
	raw, err := os.ReadFile(filepath.Join(v.cfg.BaseDir, "hot", "acme", "billing", "invoices.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "120000")

	// Aging past the hot window moves the artifact to warm; past the
	// warm window, to cold.
	v.clock.Advance(10 * 24 * time.Hour)
	report, err := v.engine.Run(ctx, false)
	require.NoError(t, err)
	assert.Len(t, report.Promoted, 1)

	v.clock.Advance(25 * 24 * time.Hour)
	_, err = v.engine.Run(ctx, false)
	require.NoError(t, err)

	data, err := v.store.Read(ctx, tiervault.TierCold, id, classify.Confidential)
	require.NoError(t, err)
	assert.Equal(t, `{"q1": 120000}`, string(data))

	// Past the cold window the artifact is purged for good.
	v.clock.Advance(60 * 24 * time.Hour)
	report, err = v.engine.Run(ctx, false)
	require.NoError(t, err)
	assert.Len(t, report.Purged, 1)
	assert.Greater(t, report.SpaceReclaimed, int64(0))

	_, err = v.store.Stat(tiervault.TierCold, id)
	assert.ErrorIs(t, err, tiervault.ErrArtifactNotFound)

	events := v.engineLog(t)
	assert.Equal(t, 1, countByType(events, audit.EventArtifactWritten))
	assert.Equal(t, 1, countByType(events, audit.EventPromotedToWarm))
	assert.Equal(t, 1, countByType(events, audit.EventPromotedToCold))
	assert.Equal(t, 1, countByType(events, audit.EventArtifactPurged))
}

// TestKeyRotationKeepsHistoryReadable rotates the active key and checks
// that artifacts sealed under the retired key still decrypt, across a
// tier move.
func TestKeyRotationKeepsHistoryReadable(t *testing.T) {
	v := setupVault(t)
	ctx := context.Background()
	admin := v.token(t, "admin", capability.RotateKey)

	old := tiervault.ID{Tenant: "acme", Workflow: "ml", Artifact: "weights-v1.bin"}
	_, err := v.store.Write(ctx, old, []byte("old-model-weights"), classify.Internal)
	require.NoError(t, err)

	rec, err := v.store.RotateKey(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, "key-002", rec.KeyID)

	// An actor without the capability cannot rotate.
	_, err = v.store.RotateKey(ctx, v.token(t, "intern"))
	require.ErrorIs(t, err, tiervault.ErrPermissionDenied)

	fresh := tiervault.ID{Tenant: "acme", Workflow: "ml", Artifact: "weights-v2.bin"}
	_, err = v.store.Write(ctx, fresh, []byte("new-model-weights"), classify.Internal)
	require.NoError(t, err)

	sc, err := v.store.Stat(tiervault.TierHot, fresh)
	require.NoError(t, err)
	assert.Equal(t, "key-002", sc.KeyID)

	// The old artifact survives promotion and still decrypts under the
	// retired key.
	_, err = v.store.Promote(ctx, old, tiervault.TierHot, tiervault.TierWarm, false)
	require.NoError(t, err)

	data, err := v.store.Read(ctx, tiervault.TierWarm, old, classify.Internal)
	require.NoError(t, err)
	assert.Equal(t, "old-model-weights", string(data))
}

// TestComplianceWorkflow runs the tenant offboarding sequence: export,
// hold-vetoed delete, release, then a live delete whose scope matches
// the dry run.
func TestComplianceWorkflow(t *testing.T) {
	v := setupVault(t)
	ctx := context.Background()
	officer := v.token(t, "officer", capability.Export, capability.Delete)

	write := func(tenant, wf, name, body string, label classify.Label) {
		t.Helper()
		_, err := v.store.Write(ctx, tiervault.ID{Tenant: tenant, Workflow: wf, Artifact: name}, []byte(body), label)
		require.NoError(t, err)
	}
	write("acme", "billing", "ledger.csv", "amount,tax", classify.Internal)
	write("acme", "hr", "reviews.json", "{}", classify.Restricted)
	write("globex", "billing", "ledger.csv", "other tenant", classify.Internal)

	dest := filepath.Join(t.TempDir(), "acme-export")
	manifest, err := v.ops.Export(ctx, officer, "acme", classify.Internal, dest)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.Artifacts)
	assert.Len(t, manifest.Excluded, 1)
	assert.FileExists(t, filepath.Join(dest, "manifest.json"))
	assert.FileExists(t, filepath.Join(dest, "artifacts", "hot", "billing", "ledger.csv"))

	// The export shipped only acme's audit trail.
	exported, err := audit.ReadLog(filepath.Join(dest, "logs", "engine.log"))
	require.NoError(t, err)
	require.NotEmpty(t, exported)
	for _, ev := range exported {
		assert.Equal(t, "acme", ev.TenantID)
	}

	// Legal hold vetoes the delete outright.
	require.NoError(t, v.ops.Holds().Apply(ctx, "acme", "litigation 2026-044"))
	_, err = v.ops.Delete(ctx, officer, "acme", false)
	require.ErrorIs(t, err, compliance.ErrLegalHoldActive)
	_, err = v.store.Stat(tiervault.TierHot, tiervault.ID{Tenant: "acme", Workflow: "hr", Artifact: "reviews.json"})
	assert.NoError(t, err, "vetoed delete must not touch storage")

	require.NoError(t, v.ops.Holds().Release(ctx, "acme"))

	dry, err := v.ops.Delete(ctx, officer, "acme", true)
	require.NoError(t, err)
	assert.Len(t, dry.Artifacts, 2)

	live, err := v.ops.Delete(ctx, officer, "acme", false)
	require.NoError(t, err)
	assert.Equal(t, dry.Artifacts, live.Artifacts)
	assert.Equal(t, dry.BytesRemoved, live.BytesRemoved)

	// Acme is gone; globex is untouched.
	entries, err := v.store.ListTenant(tiervault.TierHot, "acme")
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, err = v.store.Read(ctx, tiervault.TierHot,
		tiervault.ID{Tenant: "globex", Workflow: "billing", Artifact: "ledger.csv"}, classify.Internal)
	assert.NoError(t, err)

	// The shared audit log retains no per-artifact trace of acme, only
	// the tenant-level deletion record.
	for _, ev := range v.engineLog(t) {
		if ev.TenantID == "acme" {
			assert.Equal(t, audit.EventTenantDeleted, ev.Type,
				"unexpected surviving acme event %s", ev.Type)
		}
	}
}

// TestRetentionPrunesAuditLog ages the shared log and checks the prune
// keeps only recent events.
func TestRetentionPrunesAuditLog(t *testing.T) {
	v := setupVault(t)
	ctx := context.Background()

	_, err := v.store.Write(ctx,
		tiervault.ID{Tenant: "acme", Workflow: "wf", Artifact: "old.txt"}, []byte("x"), classify.Public)
	require.NoError(t, err)

	v.clock.Advance(400 * 24 * time.Hour)
	_, err = v.store.Write(ctx,
		tiervault.ID{Tenant: "acme", Workflow: "wf", Artifact: "new.txt"}, []byte("y"), classify.Public)
	require.NoError(t, err)

	report, err := v.ops.EnforceRetention(ctx, map[string]int{"engine": 365})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed["engine"])

	events := v.engineLog(t)
	// The old write is pruned; the new write and the retention record
	// remain.
	assert.Equal(t, 1, countByType(events, audit.EventArtifactWritten))
	assert.Equal(t, 1, countByType(events, audit.EventRetentionEnforced))
}

// TestUnauthorizedComplianceAccess checks that tokens without the
// needed capability are refused everywhere.
func TestUnauthorizedComplianceAccess(t *testing.T) {
	v := setupVault(t)
	ctx := context.Background()
	intern := v.token(t, "intern")

	_, err := v.ops.Export(ctx, intern, "acme", classify.Restricted, t.TempDir())
	assert.ErrorIs(t, err, compliance.ErrCapabilityDenied)

	_, err = v.ops.Delete(ctx, intern, "acme", true)
	assert.ErrorIs(t, err, compliance.ErrCapabilityDenied)

	// An expired token is as good as none.
	expiredCfg := v.jwt
	expiredCfg.TokenTTL = -time.Minute
	expired, err := capability.IssueToken(expiredCfg, "officer", []capability.Capability{capability.Delete})
	require.NoError(t, err)
	_, err = v.ops.Delete(ctx, expired, "acme", true)
	assert.True(t, errors.Is(err, compliance.ErrCapabilityDenied))
}
