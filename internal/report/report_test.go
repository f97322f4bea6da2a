package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/deadsy/sdfx/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/capsulefit/internal/capsule"
	"github.com/banshee-data/capsulefit/internal/collision"
	"github.com/banshee-data/capsulefit/internal/geom"
	"github.com/banshee-data/capsulefit/internal/nlp"
)

func testCapsule() geom.Capsule {
	return geom.Capsule{P0: geom.Point{}, P1: geom.Point{X: 2}, Radius: 0.5}
}

func testHistory() []nlp.Iterate {
	return []nlp.Iterate{
		{Outer: 1, Objective: 3.2, MaxViolation: 0.4, Penalty: 10, InnerIters: 12},
		{Outer: 2, Objective: 2.1, MaxViolation: 0.01, Penalty: 100, InnerIters: 9},
		{Outer: 3, Objective: 2.0, MaxViolation: 0, Penalty: 100, InnerIters: 4},
	}
}

func TestProject(t *testing.T) {
	got := Project([]geom.Point{{X: 1, Y: 3}, {X: -1, Z: 4}}, testCapsule())
	require.Len(t, got, 2)
	assert.InDelta(t, 1, got[0].Axial, 1e-12)
	assert.InDelta(t, 3, got[0].Radial, 1e-12)
	assert.InDelta(t, -1, got[1].Axial, 1e-12)
	assert.InDelta(t, 4, got[1].Radial, 1e-12)
}

func TestProjectPointLikeCapsuleUsesZ(t *testing.T) {
	c := geom.Capsule{P0: geom.Point{X: 1}, P1: geom.Point{X: 1}, Radius: 1}
	got := Project([]geom.Point{{X: 1, Y: 2, Z: 5}}, c)
	assert.InDelta(t, 5, got[0].Axial, 1e-12)
	assert.InDelta(t, 2, got[0].Radial, 1e-12)
}

func TestOutline(t *testing.T) {
	c := testCapsule()
	out := Outline(c, 4)
	require.Len(t, out, 10)
	assert.InDelta(t, -0.5, out[0].Axial, 1e-12)
	assert.InDelta(t, 0, out[0].Radial, 1e-12)
	assert.InDelta(t, 0, out[4].Axial, 1e-12)
	assert.InDelta(t, 0.5, out[4].Radial, 1e-12)
	assert.InDelta(t, 2, out[5].Axial, 1e-12)
	assert.InDelta(t, 0.5, out[5].Radial, 1e-12)
	assert.InDelta(t, 2.5, out[9].Axial, 1e-12)
	assert.InDelta(t, 0, out[9].Radial, 1e-12)
	for _, s := range out {
		// every outline sample lies on the capsule surface
		p := geom.Point{X: s.Axial, Y: s.Radial}
		d := geom.DistancePointToSegment(p, c.P0, c.P1)
		assert.InDelta(t, c.Radius, d, 1e-12)
	}
}

func TestConvergencePlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "convergence.png")
	require.NoError(t, ConvergencePlot(testHistory(), path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	err = ConvergencePlot(nil, path)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestProjectionPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projection.png")
	pts := []geom.Point{{X: 0.5, Y: 0.2}, {X: 1.5, Z: -0.3}, {X: 1, Y: 0.1, Z: 0.1}}
	require.NoError(t, ProjectionPlot(pts, testCapsule(), path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.ErrorIs(t, ProjectionPlot(nil, testCapsule(), path), ErrNoData)
}

func TestWriteHTML(t *testing.T) {
	res := &capsule.FitResult{
		Status:         nlp.Optimal,
		Solver:         nlp.DefaultSolver,
		SolutionParams: testCapsule().Params(),
		History:        testHistory(),
	}
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, res, []geom.Point{{X: 1, Y: 0.2}}, HTMLOptions{}))
	out := buf.String()
	assert.Contains(t, out, "echarts")
	assert.Contains(t, out, "<html")

	assert.ErrorIs(t, WriteHTML(&buf, nil, nil, HTMLOptions{}), ErrNoData)
	assert.ErrorIs(t, WriteHTML(&buf, &capsule.FitResult{}, nil, HTMLOptions{}), ErrNoData)
}

func TestWriteCapsuleSTL(t *testing.T) {
	c := testCapsule()
	path := filepath.Join(t.TempDir(), "capsule.stl")
	require.NoError(t, WriteCapsuleSTL(path, c, 16))

	mesh, err := render.LoadSTL(path)
	require.NoError(t, err)
	require.NotEmpty(t, mesh)
	// marching cubes places vertices within a cell of the surface
	cell := (c.Length() + 2*c.Radius) / 16
	for _, tri := range mesh {
		for _, v := range tri {
			p := geom.Point{X: v.X, Y: v.Y, Z: v.Z}
			d := geom.DistancePointToSegment(p, c.P0, c.P1) - c.Radius
			assert.InDelta(t, 0, d, cell)
		}
	}

	err = WriteCapsuleSTL(path, geom.Capsule{P1: geom.Point{X: 1}}, 16)
	assert.ErrorIs(t, err, collision.ErrUnsupported)
}
