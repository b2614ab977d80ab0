package errors

import (
	"errors"

	"github.com/randalmurphal/tiervault"
	"github.com/randalmurphal/tiervault/compliance"
	"github.com/randalmurphal/tiervault/keyring"
)

// IsInvalidIdentifier checks if an error is an identifier validation
// failure.
func IsInvalidIdentifier(err error) bool {
	return errors.Is(err, tiervault.ErrInvalidIdentifier)
}

// IsNotFound checks if an error means the artifact does not exist at
// the requested tier.
func IsNotFound(err error) bool {
	return errors.Is(err, tiervault.ErrArtifactNotFound)
}

// IsPermissionDenied checks if an error is a clearance or capability
// refusal.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, tiervault.ErrPermissionDenied) ||
		errors.Is(err, compliance.ErrCapabilityDenied)
}

// IsAuthenticationFailure checks if an error is an AEAD tag mismatch,
// signalling tampering or keyring corruption.
func IsAuthenticationFailure(err error) bool {
	return errors.Is(err, keyring.ErrAuthenticationFailed)
}

// IsLegalHoldActive checks if an error is a legal-hold veto, the
// "needs sign-off" branch for deletion automation.
func IsLegalHoldActive(err error) bool {
	return errors.Is(err, compliance.ErrLegalHoldActive)
}

// IsKeyNotFound checks if an error means a key ID has no keyring
// record.
func IsKeyNotFound(err error) bool {
	return errors.Is(err, keyring.ErrKeyNotFound)
}
