package capsule

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/banshee-data/capsulefit/internal/collision"
	"github.com/banshee-data/capsulefit/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestVolumeKnownValues(t *testing.T) {
	tests := []struct {
		name string
		p    geom.Params
		want float64
	}{
		{"length 2 radius 1", geom.NewParams(geom.Point{Z: -1}, geom.Point{Z: 1}, 1), 10 * math.Pi / 3},
		{"sphere", geom.NewParams(geom.Point{X: 1}, geom.Point{X: 1}, 2), 4.0 / 3.0 * math.Pi * 8},
		{"segment", geom.NewParams(geom.Point{}, geom.Point{Z: 5}, 0), 0},
	}
	for _, tt := range tests {
		got, err := Volume{}.Evaluate(tt.p.Slice())
		require.NoError(t, err, tt.name)
		assert.InDelta(t, tt.want, got, 1e-12, tt.name)
	}
}

func TestVolumeRigidTransformInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	rot := r3.NewRotation(0.7, r3.Unit(geom.Point{X: 1, Y: 2, Z: -1}))
	shift := geom.Point{X: 3, Y: -4, Z: 10}
	for i := 0; i < 20; i++ {
		a := geom.Point{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		b := geom.Point{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		r := rng.Float64()
		v1 := CapsuleVolume(geom.NewParams(a, b, r))
		v2 := CapsuleVolume(geom.NewParams(r3.Add(rot.Rotate(a), shift), r3.Add(rot.Rotate(b), shift), r))
		assert.InDelta(t, v1, v2, 1e-9)
	}
}

func TestAnalyticGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 50; i++ {
		x := make([]float64, geom.ParamCount)
		for j := 0; j < 6; j++ {
			x[j] = rng.NormFloat64()
		}
		x[6] = 0.1 + rng.Float64()
		p := geom.Point{X: 2 * rng.NormFloat64(), Y: 2 * rng.NormFloat64(), Z: 2 * rng.NormFloat64()}

		for _, fn := range []Function{Volume{}, PointDistance{Point: p}} {
			_, err := CheckGradient(fn, x, 1e-6, 1e-5)
			assert.NoError(t, err, "%s at %v", fn.Kind(), x)
		}
	}
}

func TestPointDistanceOnAxisHasFiniteGradient(t *testing.T) {
	x := geom.NewParams(geom.Point{}, geom.Point{X: 2}, 0.5).Slice()
	f := PointDistance{Point: geom.Point{X: 1}}
	v, err := f.Evaluate(x)
	require.NoError(t, err)
	assert.InDelta(t, -0.5, v, 1e-15)

	grad := make([]float64, geom.ParamCount)
	require.NoError(t, f.Gradient(grad, x))
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, -1}, grad)
}

func TestVolumeGradientZeroLength(t *testing.T) {
	x := geom.NewParams(geom.Point{X: 1}, geom.Point{X: 1}, 1).Slice()
	grad := make([]float64, geom.ParamCount)
	require.NoError(t, Volume{}.Gradient(grad, x))
	for i := 0; i < 6; i++ {
		assert.Equal(t, 0.0, grad[i])
	}
	assert.InDelta(t, 4*math.Pi, grad[6], 1e-12)
}

func TestFunctionsRejectWrongLength(t *testing.T) {
	for _, fn := range []Function{Volume{}, PointDistance{}, SegmentPolyhedronDistance{}, CapsulePolyhedronDistance{}} {
		_, err := fn.Evaluate([]float64{1, 2, 3})
		assert.True(t, errors.Is(err, geom.ErrInvalidInput), "%s evaluate: %v", fn.Kind(), err)
		err = fn.Gradient(make([]float64, 3), []float64{1, 2, 3})
		assert.True(t, errors.Is(err, geom.ErrInvalidInput), "%s gradient: %v", fn.Kind(), err)
	}
}

func cubePoints() []geom.Point {
	var pts []geom.Point
	for _, x := range []float64{-0.5, 0.5} {
		for _, y := range []float64{-0.5, 0.5} {
			for _, z := range []float64{-0.5, 0.5} {
				pts = append(pts, geom.Point{X: x, Y: y, Z: z})
			}
		}
	}
	return pts
}

func TestCubeCornersInsideEnclosingCapsule(t *testing.T) {
	tests := []struct {
		name string
		p    geom.Params
	}{
		{"short x axis", geom.NewParams(geom.Point{X: 0.1}, geom.Point{X: -0.1}, math.Sqrt(3)/2)},
		{"tight z axis", geom.NewParams(geom.Point{Z: -0.5}, geom.Point{Z: 0.5}, math.Sqrt(0.5)+1e-12)},
	}
	for _, tt := range tests {
		x := tt.p.Slice()
		for _, p := range cubePoints() {
			v, err := PointDistance{Point: p}.Evaluate(x)
			require.NoError(t, err, tt.name)
			assert.LessOrEqual(t, v, 0.0, "%s: corner %v", tt.name, p)
		}
	}
}

func TestCollisionFunctions(t *testing.T) {
	cube, err := collision.NewPolyhedron(cubePoints())
	require.NoError(t, err)
	engine := collision.DefaultEngine()

	far := geom.NewParams(geom.Point{X: 2, Z: -0.1}, geom.Point{X: 2, Z: 0.1}, 0.1).Slice()
	seg := SegmentPolyhedronDistance{Polyhedron: cube, Engine: engine}
	v, err := seg.Evaluate(far)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, v, 1e-9)

	grad := make([]float64, geom.ParamCount)
	require.NoError(t, seg.Gradient(grad, far))
	// Moving either endpoint in +x moves the axis away from the cube.
	assert.InDelta(t, 1.0, grad[0]+grad[3], 1e-4)
	assert.InDelta(t, 0.0, grad[6], 1e-9)

	enclosing := geom.NewParams(geom.Point{Z: -0.5}, geom.Point{Z: 0.5}, 1).Slice()
	enc := CapsulePolyhedronDistance{Polyhedron: cube, Engine: engine}
	v, err = enc.Evaluate(enclosing)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(0.5)-1, v, 1e-9)
	require.NoError(t, enc.Gradient(grad, enclosing))
	assert.InDelta(t, -1.0, grad[6], 1e-6)
}

func TestCollisionFunctionsSurfaceEngineErrors(t *testing.T) {
	cube, err := collision.NewPolyhedron(cubePoints())
	require.NoError(t, err)
	strict, err := collision.NewEngine(collision.Config{})
	require.NoError(t, err)

	inside := geom.NewParams(geom.Point{Z: -0.1}, geom.Point{Z: 0.1}, 1).Slice()
	_, err = SegmentPolyhedronDistance{Polyhedron: cube, Engine: strict}.Evaluate(inside)
	assert.True(t, errors.Is(err, ErrCollaborator), "got %v", err)
	assert.True(t, errors.Is(err, collision.ErrNoReport), "got %v", err)

	grad := make([]float64, geom.ParamCount)
	err = SegmentPolyhedronDistance{Polyhedron: cube, Engine: strict}.Gradient(grad, inside)
	assert.True(t, errors.Is(err, ErrCollaborator), "gradient got %v", err)

	_, err = CapsulePolyhedronDistance{Polyhedron: cube}.Evaluate(inside)
	assert.True(t, errors.Is(err, ErrCollaborator), "nil engine got %v", err)
}

func TestCheckGradientDetectsMismatch(t *testing.T) {
	x := geom.NewParams(geom.Point{}, geom.Point{X: 1}, 1).Slice()
	_, err := CheckGradient(wrongGradient{}, x, 1e-6, 1e-6)
	assert.True(t, errors.Is(err, ErrGradientMismatch), "got %v", err)
}

type wrongGradient struct{ Volume }

func (wrongGradient) Gradient(grad, x []float64) error {
	for i := range grad {
		grad[i] = 0
	}
	return nil
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "volume", KindVolume.String())
	assert.Equal(t, "capsule_polyhedron_distance", KindCapsulePolyhedronDistance.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
