// Package joint infers structural joints between pairs of tubes.
//
// Detection works on world-space axis-aligned bounding boxes built from each
// tube's pose. The box of a rotated tube is the AABB of its 8 transformed
// corners, a conservative enclosure rather than an oriented box. Overlap,
// strength and joint position are all defined relative to that enclosure.
package joint

import (
	"github.com/chazu/tubejoint/pkg/tube"
	"github.com/deadsy/sdfx/sdf"
)

// Bounds returns the world-space axis-aligned box enclosing t: the local box
// centered at the origin with half-extents (w/2, h/2, l/2), rotated, then
// translated, then enclosed.
func Bounds(t tube.Tube) sdf.Box3 {
	corners := t.Corners()
	b := sdf.Box3{Min: corners[0], Max: corners[0]}
	for _, c := range corners[1:] {
		b.Min = b.Min.Min(c)
		b.Max = b.Max.Max(c)
	}
	return b
}

// intersects reports whether two boxes overlap. Touching faces count.
func intersects(a, b sdf.Box3) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

// intersection returns the overlap region of two intersecting boxes.
func intersection(a, b sdf.Box3) sdf.Box3 {
	return sdf.Box3{
		Min: a.Min.Max(b.Min),
		Max: a.Max.Min(b.Max),
	}
}
