package collision

import (
	"errors"
	"math"
	"testing"

	"github.com/banshee-data/capsulefit/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func unitCube(t *testing.T) *Polyhedron {
	t.Helper()
	var pts []geom.Point
	for _, x := range []float64{-0.5, 0.5} {
		for _, y := range []float64{-0.5, 0.5} {
			for _, z := range []float64{-0.5, 0.5} {
				pts = append(pts, geom.Point{X: x, Y: y, Z: z})
			}
		}
	}
	p, err := NewPolyhedron(pts)
	require.NoError(t, err)
	return p
}

func TestNewPolyhedronCube(t *testing.T) {
	p := unitCube(t)
	assert.Len(t, p.Vertices, 8)
	assert.Len(t, p.Faces, 12)
	require.Len(t, p.Planes, 12)
	for _, pl := range p.Planes {
		assert.InDelta(t, 0.5, pl.Offset, 1e-12, "cube face planes sit half a unit out")
	}
	assert.True(t, p.Contains(geom.Point{}, 0))
	assert.False(t, p.Contains(geom.Point{X: 0.6}, 1e-9))
}

func TestNewPolyhedronDegenerate(t *testing.T) {
	_, err := NewPolyhedron([]geom.Point{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}})
	assert.True(t, errors.Is(err, ErrDegenerate), "flat square: %v", err)

	_, err = NewPolyhedron(nil)
	assert.True(t, errors.Is(err, geom.ErrInvalidInput), "empty: %v", err)
}

func TestExactSegmentDistanceSeparated(t *testing.T) {
	cube := unitCube(t)
	tests := []struct {
		name string
		a, b geom.Point
		want float64
	}{
		{"face", geom.Point{X: 1.5, Z: -0.2}, geom.Point{X: 1.5, Z: 0.2}, 1.0},
		{"face offset", geom.Point{X: 0.8, Y: 0.1, Z: -0.1}, geom.Point{X: 0.8, Y: -0.1, Z: 0.1}, 0.3},
		{"edge", geom.Point{X: 1.5, Y: 1.5, Z: -0.2}, geom.Point{X: 1.5, Y: 1.5, Z: 0.2}, math.Sqrt2},
		{"corner", geom.Point{X: 1.5, Y: 1.5, Z: 1.5}, geom.Point{X: 2.5, Y: 2.5, Z: 2.5}, math.Sqrt(3)},
		{"crossing past edge", geom.Point{X: 1, Y: -2, Z: 0}, geom.Point{X: 1, Y: 2, Z: 0}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := ExactDetector{}.SegmentDistance(tt.a, tt.b, cube)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, rep.Distance, 1e-9)
			assert.InDelta(t, rep.Distance, r3.Norm(r3.Sub(rep.OnShape, rep.OnPolyhedron)), 1e-9)
		})
	}
}

func TestExactSegmentDistancePenetrating(t *testing.T) {
	cube := unitCube(t)
	rep, err := ExactDetector{}.SegmentDistance(geom.Point{X: -0.1}, geom.Point{X: 0.1}, cube)
	require.NoError(t, err)
	assert.InDelta(t, -0.5, rep.Distance, 1e-6)

	rep, err = ExactDetector{}.SegmentDistance(geom.Point{X: 0.2, Y: -2}, geom.Point{X: 0.2, Y: 2}, cube)
	require.NoError(t, err)
	assert.InDelta(t, -0.3, rep.Distance, 1e-6)
}

func TestEngineRejectsPenetrationWhenDisallowed(t *testing.T) {
	cube := unitCube(t)
	strict, err := NewEngine(Config{})
	require.NoError(t, err)
	_, err = strict.SegmentDistance(geom.Point{X: -0.1}, geom.Point{X: 0.1}, cube)
	assert.True(t, errors.Is(err, ErrNoReport), "got %v", err)

	rep, err := strict.SegmentDistance(geom.Point{X: 2}, geom.Point{X: 3}, cube)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, rep.Distance, 1e-9)

	loose, err := NewEngine(Config{AllowPenetration: true})
	require.NoError(t, err)
	rep, err = loose.SegmentDistance(geom.Point{X: -0.1}, geom.Point{X: 0.1}, cube)
	require.NoError(t, err)
	assert.Less(t, rep.Distance, 0.0)
}

func TestCapsuleEnclosure(t *testing.T) {
	cube := unitCube(t)
	half := math.Sqrt(0.5)
	tests := []struct {
		name string
		c    geom.Capsule
		want float64
	}{
		{"tight", geom.Capsule{P0: geom.Point{Z: -0.5}, P1: geom.Point{Z: 0.5}, Radius: half}, 0},
		{"loose", geom.Capsule{P0: geom.Point{Z: -0.5}, P1: geom.Point{Z: 0.5}, Radius: 1}, half - 1},
		{"thin", geom.Capsule{P0: geom.Point{Z: -0.5}, P1: geom.Point{Z: 0.5}, Radius: 0.5}, half - 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exact, err := ExactDetector{}.CapsuleEnclosure(tt.c, cube)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, exact.Distance, 1e-9)

			field, err := SDFDetector{}.CapsuleEnclosure(tt.c, cube)
			require.NoError(t, err)
			assert.InDelta(t, exact.Distance, field.Distance, 1e-6)
		})
	}
}

func TestSDFMatchesExactOnTiltedCapsule(t *testing.T) {
	cube := unitCube(t)
	c := geom.Capsule{P0: geom.Point{X: -0.4, Y: -0.3, Z: -0.2}, P1: geom.Point{X: 0.3, Y: 0.4, Z: 0.5}, Radius: 0.6}
	exact, err := ExactDetector{}.CapsuleEnclosure(c, cube)
	require.NoError(t, err)
	field, err := SDFDetector{}.CapsuleEnclosure(c, cube)
	require.NoError(t, err)
	assert.InDelta(t, exact.Distance, field.Distance, 1e-6)
}

func TestEngineFallsThroughUnsupported(t *testing.T) {
	cube := unitCube(t)
	e, err := NewEngine(Config{Detectors: []Detector{SDFDetector{}, ExactDetector{}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"sdf", "exact"}, e.Detectors())

	rep, err := e.SegmentDistance(geom.Point{X: 1.5}, geom.Point{X: 2}, cube)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rep.Distance, 1e-9)

	only, err := NewEngine(Config{Detectors: []Detector{SDFDetector{}}})
	require.NoError(t, err)
	_, err = only.SegmentDistance(geom.Point{X: 1.5}, geom.Point{X: 2}, cube)
	assert.True(t, errors.Is(err, ErrUnsupported), "got %v", err)

	// Zero radius is outside the sdf detector's domain.
	zero := geom.Capsule{P0: geom.Point{}, P1: geom.Point{Z: 1}}
	_, err = only.CapsuleEnclosure(zero, cube)
	assert.True(t, errors.Is(err, ErrUnsupported), "got %v", err)

	_, err = NewEngine(Config{Detectors: []Detector{nil}})
	assert.Error(t, err)
}

func TestDetectorByName(t *testing.T) {
	for _, name := range []string{"exact", "sdf"} {
		d, err := DetectorByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, d.Name())
	}
	_, err := DetectorByName("bvh")
	assert.Error(t, err)
}

func TestMinimizeConvex(t *testing.T) {
	tt, v := minimizeConvex(func(x float64) float64 { return math.Abs(x - 0.3) }, 80)
	assert.InDelta(t, 0.3, tt, 1e-9)
	assert.InDelta(t, 0, v, 1e-9)

	tt, _ = minimizeConvex(func(x float64) float64 { return x }, 80)
	assert.Equal(t, 0.0, tt)
}
