package tube

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Orientation is a unit quaternion rotation.
type Orientation struct {
	r r3.Rotation
}

// Identity is the zero rotation.
var Identity = Orientation{r: r3.Rotation(quat.Number{Real: 1})}

// FromQuat builds an orientation from a quaternion. The quaternion is
// normalized; a zero quaternion yields Identity.
func FromQuat(q quat.Number) Orientation {
	n := quat.Abs(q)
	if n == 0 {
		return Identity
	}
	return Orientation{r: r3.Rotation(quat.Scale(1/n, q))}
}

// FromEuler builds an orientation from Euler angles in degrees applied in
// X, Y, Z order, giving the world matrix Rx·Ry·Rz.
func FromEuler(deg v3.Vec) Orientation {
	qx := axisQuat(deg.X, r3.Vec{X: 1})
	qy := axisQuat(deg.Y, r3.Vec{Y: 1})
	qz := axisQuat(deg.Z, r3.Vec{Z: 1})
	return Orientation{r: r3.Rotation(quat.Mul(quat.Mul(qx, qy), qz))}
}

// Quat returns the underlying unit quaternion.
func (o Orientation) Quat() quat.Number {
	if o.r == (r3.Rotation{}) {
		return quat.Number{Real: 1}
	}
	return quat.Number(o.r)
}

// Apply rotates p.
func (o Orientation) Apply(p v3.Vec) v3.Vec {
	if o.r == (r3.Rotation{}) {
		return p
	}
	w := o.r.Rotate(r3.Vec{X: p.X, Y: p.Y, Z: p.Z})
	return v3.Vec{X: w.X, Y: w.Y, Z: w.Z}
}

// Orientation returns the tube's world rotation.
func (t Tube) Orientation() Orientation {
	return FromEuler(t.Rotation)
}

// axisQuat returns the rotation of deg degrees about a unit axis.
func axisQuat(deg float64, axis r3.Vec) quat.Number {
	sin, cos := sincosDeg(deg / 2)
	return quat.Number{
		Real: cos,
		Imag: sin * axis.X,
		Jmag: sin * axis.Y,
		Kmag: sin * axis.Z,
	}
}

// sincosDeg is math.Sincos in degrees, exact at multiples of 45.
// Right-angle placements then produce exact axis directions.
func sincosDeg(deg float64) (sin, cos float64) {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	const h = math.Sqrt2 / 2
	switch d {
	case 0:
		return 0, 1
	case 45:
		return h, h
	case 90:
		return 1, 0
	case 135:
		return h, -h
	case 180:
		return 0, -1
	case 225:
		return -h, -h
	case 270:
		return -1, 0
	case 315:
		return -h, h
	}
	return math.Sincos(d * math.Pi / 180)
}
