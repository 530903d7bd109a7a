package models

import "strings"

// Tier is an externally supplied complexity classification of a task.
// Two vocabularies are in use and resolve to the same three levels:
// simple/standard/complex and quick-flow/method/enterprise.
type Tier string

const (
	// TierSimple is a small, low-risk change.
	TierSimple Tier = "simple"
	// TierStandard is an ordinary feature change.
	TierStandard Tier = "standard"
	// TierComplex is a cross-cutting or high-risk change.
	TierComplex Tier = "complex"

	// TierQuickFlow is the alternate name for TierSimple.
	TierQuickFlow Tier = "quick-flow"
	// TierMethod is the alternate name for TierStandard.
	TierMethod Tier = "method"
	// TierEnterprise is the alternate name for TierComplex.
	TierEnterprise Tier = "enterprise"
)

// Normalize lowercases and trims a tier string.
func (t Tier) Normalize() Tier {
	return Tier(strings.ToLower(strings.TrimSpace(string(t))))
}

// Canonical maps either vocabulary onto simple/standard/complex.
// Unknown tiers are returned normalized and unchanged.
func (t Tier) Canonical() Tier {
	switch n := t.Normalize(); n {
	case TierSimple, TierQuickFlow:
		return TierSimple
	case TierStandard, TierMethod:
		return TierStandard
	case TierComplex, TierEnterprise:
		return TierComplex
	default:
		return n
	}
}

// Valid returns true if the tier belongs to either vocabulary.
func (t Tier) Valid() bool {
	switch t.Canonical() {
	case TierSimple, TierStandard, TierComplex:
		return true
	default:
		return false
	}
}
