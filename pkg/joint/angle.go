package joint

import "math"

// DefaultAngleTolerance is the default half-width, in degrees, of the window
// around each canonical angle.
const DefaultAngleTolerance = 8.0

// CanonicalAngles are the construction-preferred angles between tube axes.
var CanonicalAngles = []float64{0, 30, 45, 60, 90, 120, 135, 150, 180}

// AngleValidator accepts angles close to one of a set of canonical angles.
type AngleValidator struct {
	Angles    []float64
	Tolerance float64 // strict: |angle-canonical| < Tolerance
}

// DefaultAngleValidator uses CanonicalAngles and DefaultAngleTolerance.
func DefaultAngleValidator() AngleValidator {
	return AngleValidator{Angles: CanonicalAngles, Tolerance: DefaultAngleTolerance}
}

// Valid reports whether angle is within the tolerance of a canonical angle.
func (v AngleValidator) Valid(angle float64) bool {
	for _, c := range v.Angles {
		if math.Abs(angle-c) < v.Tolerance {
			return true
		}
	}
	return false
}

// IsValidAngle checks angle against the default canonical set.
func IsValidAngle(angle float64) bool {
	return DefaultAngleValidator().Valid(angle)
}
