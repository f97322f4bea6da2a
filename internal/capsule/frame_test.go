package capsule

import (
	"math/rand"
	"testing"

	"github.com/banshee-data/capsulefit/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	fr := frame{center: geom.Point{X: 10, Y: -2, Z: 0.5}, length: 0.01}
	p := geom.NewParams(geom.Point{X: 10.01, Y: -2, Z: 0.5}, geom.Point{X: 9.99, Y: -1.995, Z: 0.5}, 0.002)

	y := fr.toUnit(p)
	assert.InDelta(t, 1, y[0], 1e-9)
	assert.InDelta(t, 0.2, y[6], 1e-12)

	back := fr.fromUnit(y)
	for i := range p {
		assert.InDelta(t, p[i], back[i], 1e-12, "component %d", i)
	}
	assert.Len(t, fr.fromUnit([]float64{1, 2}), 2)
}

func TestUnitFunctionGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	fr := frame{center: geom.Point{X: 0.3, Y: 0.1, Z: -0.2}, length: 0.05}
	p := geom.Point{X: 0.31, Y: 0.12, Z: -0.19}
	for i := 0; i < 20; i++ {
		y := make([]float64, geom.ParamCount)
		for j := 0; j < 6; j++ {
			y[j] = rng.NormFloat64()
		}
		y[6] = 0.1 + rng.Float64()
		for _, fn := range []Function{
			unitFunction{fn: Volume{}, fr: fr},
			unitFunction{fn: PointDistance{Point: p}, fr: fr},
		} {
			_, err := CheckGradient(fn, y, 1e-6, 1e-5)
			assert.NoError(t, err, "%s at %v", fn.Kind(), y)
		}
	}
}

// stretchedBox returns the corners of a 4×1×1 box scaled by s and moved
// to s·(10, 5, -3).
func stretchedBox(s float64) geom.PolyhedronSet {
	var pts []geom.Point
	for _, x := range []float64{-2, 2} {
		for _, y := range []float64{-0.5, 0.5} {
			for _, z := range []float64{-0.5, 0.5} {
				pts = append(pts, geom.Point{X: s * (10 + x), Y: s * (5 + y), Z: s * (-3 + z)})
			}
		}
	}
	return geom.PolyhedronSet{pts}
}

func TestFitIsScaleInvariant(t *testing.T) {
	scales := []float64{1, 0.02, 1e-3}
	ratios := make([]float64, len(scales))
	for i, s := range scales {
		set := stretchedBox(s)
		res, err := Fit(set, FitOptions{})
		require.NoError(t, err)
		require.True(t, res.Accepted(), "scale %g: status %v err %v", s, res.Status, res.Err)
		assertContains(t, res.Capsule(), set.Points(), 1e-4*s)
		ratios[i] = res.SolutionVolume / res.InitVolume
	}
	assert.Less(t, ratios[0], 0.995, "the seed should be improved")
	for i := 1; i < len(scales); i++ {
		assert.InDelta(t, ratios[0], ratios[i], 1e-3, "scale %g", scales[i])
	}
}
