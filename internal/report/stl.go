package report

import (
	"fmt"

	"github.com/deadsy/sdfx/render"

	"github.com/banshee-data/capsulefit/internal/collision"
	"github.com/banshee-data/capsulefit/internal/geom"
)

// DefaultMeshCells is the marching-cubes resolution used by WriteCapsuleSTL.
const DefaultMeshCells = 64

// WriteCapsuleSTL tessellates c with sdfx marching cubes on a grid of cells
// along its longest side and saves it as a binary STL file at path.
func WriteCapsuleSTL(path string, c geom.Capsule, cells int) error {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	field, err := collision.CapsuleSDF(c)
	if err != nil {
		return fmt.Errorf("tessellate capsule: %w", err)
	}
	mesh := render.ToTriangles(field, render.NewMarchingCubesUniform(cells))
	if len(mesh) == 0 {
		return ErrNoData
	}
	if err := render.SaveSTL(path, mesh); err != nil {
		return fmt.Errorf("save stl %s: %w", path, err)
	}
	return nil
}
