package tiervault

import "errors"

// Store errors
var (
	// ErrInvalidIdentifier indicates an identifier component failed
	// validation. Never auto-corrected; the operation is refused.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrArtifactNotFound indicates no artifact exists at the given
	// tier and identifier.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrPermissionDenied indicates the actor's clearance is below the
	// artifact's classification label.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrArtifactExists indicates a write would overwrite an existing
	// artifact.
	ErrArtifactExists = errors.New("artifact already exists")

	// ErrEncryptionDisabled indicates a key operation was requested
	// while the store runs in plaintext mode.
	ErrEncryptionDisabled = errors.New("encryption disabled")
)
