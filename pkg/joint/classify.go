package joint

import (
	"fmt"
	"math"
)

// Tier is the presentation-facing quality of a joint.
type Tier int

const (
	TierUnknown Tier = iota // zero value; Classify never returns it
	TierExact               // axes exactly parallel or perpendicular
	TierGood                // within 15 degrees of parallel or perpendicular
	TierWeak                // off-angle but with substantial overlap
	TierPoor                // off-angle and thin overlap
)

// goodWindow is the angular window, in degrees, for TierGood.
const goodWindow = 15.0

// weakStrength is the strength above which an off-angle joint is TierWeak.
const weakStrength = 0.5

func (t Tier) String() string {
	switch t {
	case TierUnknown:
		return "unknown"
	case TierExact:
		return "exact"
	case TierGood:
		return "good"
	case TierWeak:
		return "weak"
	case TierPoor:
		return "poor"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name.
func (t *Tier) UnmarshalText(b []byte) error {
	switch string(b) {
	case "exact":
		*t = TierExact
	case "good":
		*t = TierGood
	case "weak":
		*t = TierWeak
	case "poor":
		*t = TierPoor
	default:
		return fmt.Errorf("joint: unknown tier %q", b)
	}
	return nil
}

// Classify maps an angle and strength to a tier. The checks are ordered:
// an exact angle wins regardless of strength, and strength only matters for
// angles outside the good window.
func Classify(angle, strength float64) Tier {
	switch {
	case angle == 90 || angle == 0:
		return TierExact
	case math.Abs(angle-90) < goodWindow || math.Abs(angle) < goodWindow:
		return TierGood
	case strength > weakStrength:
		return TierWeak
	default:
		return TierPoor
	}
}
