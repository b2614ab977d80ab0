package tiervault

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ID identifies an artifact within a tenant's namespace.
// All three components must pass ValidateComponent before any
// physical path is derived from them.
type ID struct {
	Tenant   string `json:"tenantId"`
	Workflow string `json:"workflowId"`
	Artifact string `json:"artifactId"`
}

// String returns the identifier in tenant/workflow/artifact form.
func (id ID) String() string {
	return id.Tenant + "/" + id.Workflow + "/" + id.Artifact
}

// Validate checks every component of the identifier. It is the single
// choke point preventing path traversal and cross-tenant access; no
// store operation touches the filesystem before this passes.
func (id ID) Validate() error {
	if err := ValidateComponent(id.Tenant); err != nil {
		return fmt.Errorf("tenant %q: %w", id.Tenant, err)
	}
	if err := ValidateComponent(id.Workflow); err != nil {
		return fmt.Errorf("workflow %q: %w", id.Workflow, err)
	}
	if err := ValidateComponent(id.Artifact); err != nil {
		return fmt.Errorf("artifact %q: %w", id.Artifact, err)
	}
	if strings.HasSuffix(id.Artifact, sidecarSuffix) {
		return fmt.Errorf("artifact %q: %w: reserved suffix %q", id.Artifact, ErrInvalidIdentifier, sidecarSuffix)
	}
	return nil
}

// forbidden characters beyond the allowed charset. Listed explicitly so
// rejection of globs and Windows device syntax never depends on the
// host filesystem.
const forbiddenChars = `/\:*?"<>|`

// ValidateComponent validates a single identifier component. Allowed:
// non-empty strings of alphanumerics, '_', '-' and '.'. Parent
// references, separators, glob characters and absolute-path prefixes
// are rejected, never sanitized.
func ValidateComponent(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty component", ErrInvalidIdentifier)
	}
	if s == "." {
		// filepath.Join collapses a lone dot, shifting every later
		// component up one directory level.
		return fmt.Errorf("%w: current-directory reference", ErrInvalidIdentifier)
	}
	if strings.Contains(s, "..") {
		return fmt.Errorf("%w: parent reference", ErrInvalidIdentifier)
	}
	if strings.ContainsAny(s, forbiddenChars) {
		return fmt.Errorf("%w: forbidden character", ErrInvalidIdentifier)
	}
	if filepath.IsAbs(s) {
		return fmt.Errorf("%w: absolute path", ErrInvalidIdentifier)
	}
	for _, r := range s {
		if !isAllowedRune(r) {
			return fmt.Errorf("%w: character %q not allowed", ErrInvalidIdentifier, r)
		}
	}
	return nil
}

func isAllowedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-' || r == '.':
		return true
	}
	return false
}
