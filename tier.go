package tiervault

import "fmt"

// Tier is a storage class ordered by decreasing access frequency.
// Artifacts are created at TierHot and migrate toward TierCold as they
// age; TierCold is terminal and ages out to purge.
type Tier string

// Storage tiers in promotion order.
const (
	TierHot  Tier = "hot"
	TierWarm Tier = "warm"
	TierCold Tier = "cold"
)

// Tiers lists all tiers in promotion order.
var Tiers = []Tier{TierHot, TierWarm, TierCold}

// Next returns the promotion target for a tier, or false if the tier
// is terminal.
func (t Tier) Next() (Tier, bool) {
	switch t {
	case TierHot:
		return TierWarm, true
	case TierWarm:
		return TierCold, true
	default:
		return "", false
	}
}

// Terminal reports whether artifacts in this tier are purged rather
// than promoted when their retention window elapses.
func (t Tier) Terminal() bool {
	return t == TierCold
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierHot, TierWarm, TierCold:
		return true
	}
	return false
}

// ParseTier converts a string to a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier: %q", s)
	}
	return t, nil
}
