// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/tubejoint/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution along the
// longest axis of a solid.
const DefaultMeshCells = 200

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// DefaultMaxCellSize bounds the marching cubes cell edge in mm so that thin
// tube walls survive on long solids.
const DefaultMaxCellSize = 1.0

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells   int
	maxCell float64
}

// New returns a kernel meshing at DefaultMeshCells and DefaultMaxCellSize.
func New() *SdfxKernel {
	return NewWithCells(DefaultMeshCells, DefaultMaxCellSize)
}

// NewWithCells returns a kernel meshing with at least cells cells along the
// longest axis, refined further until no cell edge exceeds maxCell. Cell
// counts below 8 are raised to 8; maxCell <= 0 disables refinement.
func NewWithCells(cells int, maxCell float64) *SdfxKernel {
	if cells < 8 {
		cells = 8
	}
	return &SdfxKernel{cells: cells, maxCell: maxCell}
}

// meshCells returns the cell count for a solid of the given bounding box.
func (k *SdfxKernel) meshCells(bb sdf.Box3) int {
	n := k.cells
	if k.maxCell <= 0 {
		return n
	}
	size := bb.Size()
	longest := math.Max(size.X, math.Max(size.Y, size.Z))
	if need := int(math.Ceil(longest / k.maxCell)); need > n {
		n = need
	}
	return n
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Box creates a box with the given dimensions centered on the origin, the
// same frame a tube's local coordinates use.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	return wrap(s)
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by Euler angles in degrees. The composed matrix is
// Rx·Ry·Rz, so Z is applied to the solid first in local terms.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.RotateX(radians(x)).Mul(sdf.RotateY(radians(y))).Mul(sdf.RotateZ(radians(z)))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)

	cells := k.meshCells(sdf3.BoundingBox())
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(sdf3, renderer)
	if len(triangles) == 0 {
		return nil, fmt.Errorf("sdfx: marching cubes produced no triangles at %d cells", cells)
	}

	mesh := kernel.NewMesh(len(triangles))
	for _, tri := range triangles {
		mesh.AddTriangle(point(tri[0]), point(tri[1]), point(tri[2]))
	}
	return mesh, nil
}

func point(v v3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}
