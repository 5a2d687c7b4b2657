//go:build manifold

// Package manifold binds the Manifold C library (manifoldc) as a tube kernel.
// Its booleans are exact, so hollow walls come out as planar faces.
// Build with -tags=manifold.
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/chazu/tubejoint/pkg/kernel"
)

var (
	_ kernel.Kernel = (*ManifoldKernel)(nil)
	_ kernel.Solid  = (*manifoldSolid)(nil)
)

type manifoldSolid struct {
	ptr *C.ManifoldManifold
}

func (s *manifoldSolid) BoundingBox() (min, max [3]float64) {
	box := C.manifold_bounding_box(C.manifold_alloc_box(), s.ptr)
	defer C.manifold_delete_box(box)
	runtime.KeepAlive(s)
	min = [3]float64{float64(C.manifold_box_min_x(box)), float64(C.manifold_box_min_y(box)), float64(C.manifold_box_min_z(box))}
	max = [3]float64{float64(C.manifold_box_max_x(box)), float64(C.manifold_box_max_y(box)), float64(C.manifold_box_max_z(box))}
	return min, max
}

// newSolid takes ownership of ptr; the finalizer frees it.
func newSolid(ptr *C.ManifoldManifold) *manifoldSolid {
	s := &manifoldSolid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldSolid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

// ManifoldKernel implements kernel.Kernel using the Manifold C library.
type ManifoldKernel struct{}

// New returns the Manifold kernel.
func New() (kernel.Kernel, error) {
	return &ManifoldKernel{}, nil
}

// Box is centered on the origin.
func (k *ManifoldKernel) Box(x, y, z float64) kernel.Solid {
	const center = 1
	return newSolid(C.manifold_cube(C.manifold_alloc_manifold(), C.double(x), C.double(y), C.double(z), C.int(center)))
}

func (k *ManifoldKernel) Difference(a, b kernel.Solid) kernel.Solid {
	sa, sb := a.(*manifoldSolid), b.(*manifoldSolid)
	out := newSolid(C.manifold_difference(C.manifold_alloc_manifold(), sa.ptr, sb.ptr))
	runtime.KeepAlive(sa)
	runtime.KeepAlive(sb)
	return out
}

func (k *ManifoldKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	ms := s.(*manifoldSolid)
	out := newSolid(C.manifold_translate(C.manifold_alloc_manifold(), ms.ptr, C.double(x), C.double(y), C.double(z)))
	runtime.KeepAlive(ms)
	return out
}

// Rotate applies Euler angles in degrees, X then Y then Z as a world matrix
// Rx·Ry·Rz. Manifold's own Euler rotation composes the other way round, so
// the axes are applied one at a time, Z first.
func (k *ManifoldKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	cur := s.(*manifoldSolid)
	for _, r := range [3][3]float64{{0, 0, z}, {0, y, 0}, {x, 0, 0}} {
		if r == [3]float64{} {
			continue
		}
		alloc := C.manifold_alloc_manifold()
		next := newSolid(C.manifold_rotate(alloc, cur.ptr, C.double(r[0]), C.double(r[1]), C.double(r[2])))
		runtime.KeepAlive(cur)
		cur = next
	}
	return cur
}

// ToMesh reads positions and triangles out of Manifold's MeshGL and emits
// them flat-shaded, the same layout the sdfx kernel produces.
func (k *ManifoldKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	ms := s.(*manifoldSolid)
	gl := C.manifold_get_meshgl(C.manifold_alloc_meshgl(), ms.ptr)
	defer C.manifold_delete_meshgl(gl)
	runtime.KeepAlive(ms)

	numVert := int(C.manifold_meshgl_num_vert(gl))
	numTri := int(C.manifold_meshgl_num_tri(gl))
	if numVert == 0 || numTri == 0 {
		return nil, fmt.Errorf("manifold: solid produced no triangles")
	}

	// Position is always the first three properties of a vertex.
	numProp := int(C.manifold_meshgl_num_prop(gl))
	props := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties((*C.float)(unsafe.Pointer(&props[0])), gl)
	tris := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts((*C.uint32_t)(unsafe.Pointer(&tris[0])), gl)

	pos := func(v uint32) [3]float64 {
		p := props[int(v)*numProp:]
		return [3]float64{float64(p[0]), float64(p[1]), float64(p[2])}
	}
	mesh := kernel.NewMesh(numTri)
	for t := 0; t+2 < len(tris); t += 3 {
		mesh.AddTriangle(pos(tris[t]), pos(tris[t+1]), pos(tris[t+2]))
	}
	return mesh, nil
}
