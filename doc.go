// Package tiervault implements tenant-isolated, tiered storage for
// generated artifacts (reports, exports, transcripts).
//
// The package is organized into subpackages by domain:
//
//   - keyring: Symmetric key rotation and envelope encryption
//   - classify: Classification labels and clearance checks
//   - lifecycle: Age-driven tier promotion and purge
//   - compliance: Tenant export, delete, legal holds, log retention
//   - audit: Append-only audit event sinks
//   - capability: Actor capability checks (export/delete/relabel/rotate)
//   - config: YAML configuration surface
//   - errors: Error predicates across subpackages
//   - testutil: Test fixtures (temp stores, fixed clocks)
//
// The root package holds the tiered store itself: identifiers and
// path validation, sidecar metadata, and write/read/promote/purge.
//
// # Quick Start
//
//	import (
//	    "github.com/randalmurphal/tiervault"
//	    "github.com/randalmurphal/tiervault/classify"
//	    "github.com/randalmurphal/tiervault/keyring"
//	)
//
//	ring, _ := keyring.Open(filepath.Join(dir, "keys.log"))
//	store, _ := tiervault.NewStore(tiervault.StoreConfig{
//	    BaseDir:           dir,
//	    Keyring:           ring,
//	    EncryptionEnabled: true,
//	})
//
//	id := tiervault.ID{Tenant: "tenant-a", Workflow: "wf-1", Artifact: "report.md"}
//	store.Write(ctx, id, content, classify.Confidential)
//
// See individual package documentation for detailed usage.
package tiervault
