// Package kernel defines the geometry kernel interface used to turn tubes
// into renderable meshes. Backends live in the sdfx and manifold
// subpackages.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Box returns a box of the given size centered on the origin.
	Box(x, y, z float64) Solid

	// Difference returns a minus b.
	Difference(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler degrees, X then Y then Z, same as tube rotations

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
