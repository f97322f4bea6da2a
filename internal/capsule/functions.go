package capsule

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/capsulefit/internal/collision"
	"github.com/banshee-data/capsulefit/internal/geom"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrCollaborator wraps failures of the collision engine, so callers can
	// tell them apart from invalid input.
	ErrCollaborator = errors.New("capsule: collaborator failure")
	// ErrGradientMismatch is returned by CheckGradient.
	ErrGradientMismatch = errors.New("capsule: gradient mismatch")
)

// AxisEpsilon is the axis length below which the volume gradient has no
// endpoint components.
const AxisEpsilon = 1e-12

// DefaultFDStep is the central-difference step used for collision-backed
// constraint gradients.
const DefaultFDStep = 1e-6

// Kind identifies a function variant.
type Kind int

const (
	KindVolume Kind = iota
	KindPointDistance
	KindSegmentPolyhedronDistance
	KindCapsulePolyhedronDistance
)

func (k Kind) String() string {
	switch k {
	case KindVolume:
		return "volume"
	case KindPointDistance:
		return "point_distance"
	case KindSegmentPolyhedronDistance:
		return "segment_polyhedron_distance"
	case KindCapsulePolyhedronDistance:
		return "capsule_polyhedron_distance"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Function is a scalar function of capsule parameters with a gradient.
// Every implementation takes seven-element arguments and fails with
// geom.ErrInvalidInput otherwise.
type Function interface {
	Kind() Kind
	Evaluate(x []float64) (float64, error)
	Gradient(grad, x []float64) error
}

func unpack(x []float64) (geom.Params, error) {
	return geom.ParamsFromSlice(x)
}

func checkGrad(grad []float64) error {
	if len(grad) != geom.ParamCount {
		return fmt.Errorf("%w: gradient has %d entries, want %d", geom.ErrInvalidInput, len(grad), geom.ParamCount)
	}
	return nil
}

// Volume is the capsule volume L·π·r² + 4/3·π·r³.
type Volume struct{}

// Kind implements Function.
func (Volume) Kind() Kind { return KindVolume }

// Evaluate implements Function.
func (Volume) Evaluate(x []float64) (float64, error) {
	p, err := unpack(x)
	if err != nil {
		return 0, err
	}
	return CapsuleVolume(p), nil
}

// Gradient implements Function. At zero axis length the endpoint
// components are left at zero.
func (Volume) Gradient(grad, x []float64) error {
	p, err := unpack(x)
	if err != nil {
		return err
	}
	if err := checkGrad(grad); err != nil {
		return err
	}
	for i := range grad {
		grad[i] = 0
	}
	r := p.Radius()
	l := p.Length()
	if l >= AxisEpsilon {
		// dL/dp1 = (p1 - p0)/L, dL/dp0 = -dL/dp1
		dir := r3.Scale(math.Pi*r*r/l, r3.Sub(p.Endpoint2(), p.Endpoint1()))
		grad[0], grad[1], grad[2] = -dir.X, -dir.Y, -dir.Z
		grad[3], grad[4], grad[5] = dir.X, dir.Y, dir.Z
	}
	grad[6] = 2*math.Pi*r*l + 4*math.Pi*r*r
	return nil
}

// CapsuleVolume returns the volume of the capsule p.
func CapsuleVolume(p geom.Params) float64 {
	r := p.Radius()
	return p.Length()*math.Pi*r*r + 4.0/3.0*math.Pi*r*r*r
}

// PointDistance is distance(Point, axis) − radius: non-positive when the
// point is inside the capsule.
type PointDistance struct {
	Point geom.Point
}

// Kind implements Function.
func (PointDistance) Kind() Kind { return KindPointDistance }

// Evaluate implements Function.
func (f PointDistance) Evaluate(x []float64) (float64, error) {
	p, err := unpack(x)
	if err != nil {
		return 0, err
	}
	return geom.DistancePointToSegment(f.Point, p.Endpoint1(), p.Endpoint2()) - p.Radius(), nil
}

// Gradient implements Function. When the point is on the axis the unit
// direction is undefined and the endpoint components are zero.
func (f PointDistance) Gradient(grad, x []float64) error {
	p, err := unpack(x)
	if err != nil {
		return err
	}
	if err := checkGrad(grad); err != nil {
		return err
	}
	a, b := p.Endpoint1(), p.Endpoint2()
	lambda := geom.SegmentParameter(f.Point, a, b)
	proj := r3.Add(a, r3.Scale(lambda, r3.Sub(b, a)))
	diff := r3.Sub(proj, f.Point)
	var unit geom.Point
	if n := r3.Norm(diff); n > geom.ZeroNorm {
		unit = r3.Scale(1/n, diff)
	}
	g0 := r3.Scale(1-lambda, unit)
	g1 := r3.Scale(lambda, unit)
	grad[0], grad[1], grad[2] = g0.X, g0.Y, g0.Z
	grad[3], grad[4], grad[5] = g1.X, g1.Y, g1.Z
	grad[6] = -1
	return nil
}

// SegmentPolyhedronDistance is the signed distance between the capsule axis
// and Polyhedron, negative when the axis is inside it.
type SegmentPolyhedronDistance struct {
	Polyhedron *collision.Polyhedron
	Engine     *collision.Engine
	// Step is the finite-difference step; zero means DefaultFDStep.
	Step float64
}

// Kind implements Function.
func (SegmentPolyhedronDistance) Kind() Kind { return KindSegmentPolyhedronDistance }

// Evaluate implements Function.
func (f SegmentPolyhedronDistance) Evaluate(x []float64) (float64, error) {
	p, err := unpack(x)
	if err != nil {
		return 0, err
	}
	if f.Engine == nil || f.Polyhedron == nil {
		return 0, fmt.Errorf("%w: segment distance needs an engine and a polyhedron", ErrCollaborator)
	}
	rep, err := f.Engine.SegmentDistance(p.Endpoint1(), p.Endpoint2(), f.Polyhedron)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCollaborator, err)
	}
	return rep.Distance, nil
}

// Gradient implements Function by central differences.
func (f SegmentPolyhedronDistance) Gradient(grad, x []float64) error {
	return centralGradient(f, f.Step, grad, x)
}

// CapsulePolyhedronDistance is the largest distance by which Polyhedron
// sticks out of the capsule: non-positive when it is enclosed.
type CapsulePolyhedronDistance struct {
	Polyhedron *collision.Polyhedron
	Engine     *collision.Engine
	// Step is the finite-difference step; zero means DefaultFDStep.
	Step float64
}

// Kind implements Function.
func (CapsulePolyhedronDistance) Kind() Kind { return KindCapsulePolyhedronDistance }

// Evaluate implements Function.
func (f CapsulePolyhedronDistance) Evaluate(x []float64) (float64, error) {
	p, err := unpack(x)
	if err != nil {
		return 0, err
	}
	if f.Engine == nil || f.Polyhedron == nil {
		return 0, fmt.Errorf("%w: capsule distance needs an engine and a polyhedron", ErrCollaborator)
	}
	rep, err := f.Engine.CapsuleEnclosure(p.Capsule(), f.Polyhedron)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCollaborator, err)
	}
	return rep.Distance, nil
}

// Gradient implements Function by central differences.
func (f CapsulePolyhedronDistance) Gradient(grad, x []float64) error {
	return centralGradient(f, f.Step, grad, x)
}

// centralGradient fills grad with the central-difference gradient of fn.
// The first evaluation error aborts and is returned.
func centralGradient(fn Function, step float64, grad, x []float64) error {
	if _, err := unpack(x); err != nil {
		return err
	}
	if err := checkGrad(grad); err != nil {
		return err
	}
	if step <= 0 {
		step = DefaultFDStep
	}
	var evalErr error
	f := func(y []float64) float64 {
		if evalErr != nil {
			return math.NaN()
		}
		v, err := fn.Evaluate(y)
		if err != nil {
			evalErr = err
			return math.NaN()
		}
		return v
	}
	fd.Gradient(grad, f, x, &fd.Settings{Formula: fd.Central, Step: step})
	return evalErr
}

// CheckGradient compares the analytic gradient of fn at x with a central
// finite-difference estimate and returns the largest absolute difference.
// The error wraps ErrGradientMismatch when that difference exceeds tol.
func CheckGradient(fn Function, x []float64, step, tol float64) (float64, error) {
	analytic := make([]float64, len(x))
	if err := fn.Gradient(analytic, x); err != nil {
		return 0, err
	}
	if step <= 0 {
		step = DefaultFDStep
	}
	numeric := make([]float64, len(x))
	var evalErr error
	fd.Gradient(numeric, func(y []float64) float64 {
		v, err := fn.Evaluate(y)
		if err != nil && evalErr == nil {
			evalErr = err
		}
		return v
	}, x, &fd.Settings{Formula: fd.Central, Step: step})
	if evalErr != nil {
		return 0, evalErr
	}
	worst, at := 0.0, -1
	for i := range analytic {
		if d := math.Abs(analytic[i] - numeric[i]); d > worst {
			worst, at = d, i
		}
	}
	if worst > tol {
		return worst, fmt.Errorf("%w: %s component %d analytic %g numeric %g",
			ErrGradientMismatch, fn.Kind(), at, analytic[at], numeric[at])
	}
	return worst, nil
}
