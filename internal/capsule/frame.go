package capsule

import (
	"github.com/banshee-data/capsulefit/internal/geom"
)

// frame maps capsule parameters to dimensionless solver coordinates:
// endpoints become (p - center)/length and the radius becomes r/length.
// The solver then sees an object of unit size around the origin whatever
// the units of the input.
type frame struct {
	center geom.Point
	length float64
}

func newFrame(points []geom.Point) frame {
	return frame{center: geom.Centroid(points), length: problemScale(points)}
}

// toUnit returns the solver coordinates of p.
func (fr frame) toUnit(p geom.Params) []float64 {
	y := p.Slice()
	fr.apply(y, func(v, c float64) float64 { return (v - c) / fr.length })
	return y
}

// fromUnit returns the capsule parameters of solver coordinates y. A y of
// the wrong length is copied unchanged so the wrapped function reports it.
func (fr frame) fromUnit(y []float64) []float64 {
	x := append([]float64(nil), y...)
	if len(x) != geom.ParamCount {
		return x
	}
	fr.apply(x, func(v, c float64) float64 { return c + fr.length*v })
	return x
}

func (fr frame) apply(x []float64, f func(v, c float64) float64) {
	if len(x) != geom.ParamCount {
		return
	}
	c := [3]float64{fr.center.X, fr.center.Y, fr.center.Z}
	for i := 0; i < 6; i++ {
		x[i] = f(x[i], c[i%3])
	}
	x[6] = f(x[6], 0)
}

// unitFunction evaluates fn at the capsule described by solver
// coordinates. Every parameter is an affine image with slope length, so the
// gradient is the physical gradient times length.
type unitFunction struct {
	fn Function
	fr frame
}

func (u unitFunction) Evaluate(y []float64) (float64, error) {
	return u.fn.Evaluate(u.fr.fromUnit(y))
}

func (u unitFunction) Gradient(grad, y []float64) error {
	if err := u.fn.Gradient(grad, u.fr.fromUnit(y)); err != nil {
		return err
	}
	for i := range grad {
		grad[i] *= u.fr.length
	}
	return nil
}

// Kind reports the wrapped function's kind.
func (u unitFunction) Kind() Kind { return u.fn.Kind() }
