// Package tessellate turns tubes into triangle meshes using a geometry
// kernel. One mesh is produced per tube.
package tessellate

import (
	"context"
	"fmt"
	"runtime"

	"github.com/chazu/tubejoint/pkg/kernel"
	"github.com/chazu/tubejoint/pkg/tube"
	"golang.org/x/sync/errgroup"
)

// TubeSolid builds the hollow solid of t in world space: the outer box minus
// a bore running past both ends, rotated and then translated.
func TubeSolid(t tube.Tube, k kernel.Kernel) kernel.Solid {
	c := t.Config.Normalized()

	solid := k.Difference(
		k.Box(c.Width, c.Height, c.Length),
		k.Box(c.InnerWidth(), c.InnerHeight(), c.Length+2),
	)

	// Rotation first, then translation.
	if r := t.Rotation; r.X != 0 || r.Y != 0 || r.Z != 0 {
		solid = k.Rotate(solid, r.X, r.Y, r.Z)
	}
	if p := t.Position; p.X != 0 || p.Y != 0 || p.Z != 0 {
		solid = k.Translate(solid, p.X, p.Y, p.Z)
	}
	return solid
}

// Tessellate produces one mesh per tube, in input order. Tubes are meshed
// concurrently; the kernel must be safe for concurrent use. The first
// failure cancels the rest.
func Tessellate(ctx context.Context, tubes []tube.Tube, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if len(tubes) == 0 {
		return nil, nil
	}

	meshes := make([]*kernel.Mesh, len(tubes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, t := range tubes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mesh, err := k.ToMesh(TubeSolid(t, k))
			if err != nil {
				return fmt.Errorf("tessellate: tube %s: %w", t.ID, err)
			}
			mesh.PartName = string(t.ID)
			meshes[i] = mesh
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return meshes, nil
}
