package capability

// Capability names a privileged operation an actor may hold.
type Capability string

// Capabilities checked by the storage engine.
const (
	Export    Capability = "export"
	Delete    Capability = "delete"
	Relabel   Capability = "relabel"
	RotateKey Capability = "rotate_key"
)

// Checker answers whether an actor holds a capability. The engine
// consults it before every compliance operation and classification
// mutation; the role hierarchy behind the answer is not its concern.
type Checker interface {
	Has(actor string, cap Capability) bool
}

// =============================================================================
// StaticChecker
// =============================================================================

// StaticChecker grants capabilities from a fixed actor -> capability
// map. Useful for embedding applications with an external role system
// and for tests.
type StaticChecker struct {
	Grants map[string][]Capability
}

// NewStaticChecker creates a checker over a fixed grant table.
func NewStaticChecker(grants map[string][]Capability) *StaticChecker {
	return &StaticChecker{Grants: grants}
}

// Has implements Checker.
func (c *StaticChecker) Has(actor string, cap Capability) bool {
	for _, g := range c.Grants[actor] {
		if g == cap {
			return true
		}
	}
	return false
}

// =============================================================================
// AllowAll / DenyAll
// =============================================================================

// AllowAll grants every capability to every actor. It is the default
// when no checker is configured; wire a real checker in production.
type AllowAll struct{}

// Has implements Checker.
func (AllowAll) Has(string, Capability) bool { return true }

// DenyAll refuses every capability.
type DenyAll struct{}

// Has implements Checker.
func (DenyAll) Has(string, Capability) bool { return false }
