package models

import (
	"fmt"
	"strings"
)

// Depth is the validation strategy chosen for a tier.
// Depths are strictly ordered by cost: smoke < feature < full.
type Depth string

const (
	// DepthSmoke runs four fixed health checks.
	DepthSmoke Depth = "smoke"
	// DepthFeature runs feature-filtered regression tests.
	DepthFeature Depth = "feature"
	// DepthFull runs the whole suite across environments.
	DepthFull Depth = "full"
)

// Valid returns true if the depth is a known value.
func (d Depth) Valid() bool {
	switch d {
	case DepthSmoke, DepthFeature, DepthFull:
		return true
	default:
		return false
	}
}

// Cost returns the depth's position in the cost ordering (1..3), or 0 if unknown.
func (d Depth) Cost() int {
	switch d {
	case DepthSmoke:
		return 1
	case DepthFeature:
		return 2
	case DepthFull:
		return 3
	default:
		return 0
	}
}

// ParseDepth parses a depth name case-insensitively.
func ParseDepth(s string) (Depth, error) {
	d := Depth(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("invalid validation depth %q: expected smoke, feature or full", s)
	}
	return d, nil
}
