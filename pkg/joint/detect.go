package joint

import (
	"math"

	"github.com/chazu/tubejoint/pkg/tube"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultDetectionDistance is the largest center-to-center distance at which
// two tubes are considered for a joint.
const DefaultDetectionDistance = 100.0

// strengthScale maps the raw overlap ratio onto [0,1]. Changing it changes
// every strength and therefore every weak/poor classification.
const strengthScale = 10.0

// Pair is an unordered reference to two tubes. A is always the smaller ID,
// so (a, b) and (b, a) produce the same Pair.
type Pair struct {
	A tube.ID `json:"a"`
	B tube.ID `json:"b"`
}

// NewPair returns the canonical pair for two tube IDs.
func NewPair(a, b tube.ID) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

func (p Pair) String() string {
	return string(p.A) + "|" + string(p.B)
}

// Candidate is a detected joint between two tubes.
type Candidate struct {
	Pair     Pair    `json:"pair"`
	Position v3.Vec  `json:"position"` // center of the bounding-box overlap
	Angle    float64 `json:"angle"`    // degrees between length axes, [0,180]
	Distance float64 `json:"distance"` // center to center
	Strength float64 `json:"strength"` // [0,1]
}

// Detector tests tube pairs for joints.
type Detector struct {
	// DetectionDistance bounds the center-to-center distance of a pair.
	DetectionDistance float64
}

// NewDetector returns a Detector with DefaultDetectionDistance.
func NewDetector() *Detector {
	return &Detector{DetectionDistance: DefaultDetectionDistance}
}

// Detect tests one pair of tubes. It returns false when the tubes are too far
// apart or their bounding boxes do not intersect. Detect is a pure function
// of its inputs and never fails; degenerate dimensions are clamped first.
func (d *Detector) Detect(a, b tube.Tube) (Candidate, bool) {
	a.Config = a.Config.Normalized()
	b.Config = b.Config.Normalized()

	distance := a.Position.Sub(b.Position).Length()
	if distance > d.DetectionDistance {
		return Candidate{}, false
	}

	angle := axisAngle(a.Axis(), b.Axis())

	boxA, boxB := Bounds(a), Bounds(b)
	if !intersects(boxA, boxB) {
		return Candidate{}, false
	}

	overlap := intersection(boxA, boxB)
	size := overlap.Size()

	raw := min(
		size.X/(a.Config.Width+b.Config.Width),
		size.Y/(a.Config.Height+b.Config.Height),
		size.Z/(a.Config.Length+b.Config.Length),
	)

	return Candidate{
		Pair:     NewPair(a.ID, b.ID),
		Position: overlap.Center(),
		Angle:    angle,
		Distance: distance,
		Strength: clamp(raw*strengthScale, 0, 1),
	}, true
}

// axisAngle returns the angle in degrees between two unit vectors.
func axisAngle(a, b v3.Vec) float64 {
	rad := math.Acos(clamp(a.Dot(b), -1, 1))
	return rad * 180 / math.Pi
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
