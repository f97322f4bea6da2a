package geom

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidInput is returned for empty point sets, malformed parameter
// vectors and negative radii. Callers match it with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// Point is a position in 3D space.
type Point = r3.Vec

// Polyhedron is an ordered collection of points. Order does not matter to
// any algorithm and duplicates are harmless.
type Polyhedron []Point

// PolyhedronSet is a collection of polyhedra. The fitter always operates on
// the union of their points.
type PolyhedronSet []Polyhedron

// Len returns the total number of points across all polyhedra.
func (s PolyhedronSet) Len() int {
	n := 0
	for _, poly := range s {
		n += len(poly)
	}
	return n
}

// Points returns the union of all points, preserving order.
func (s PolyhedronSet) Points() []Point {
	points := make([]Point, 0, s.Len())
	for _, poly := range s {
		points = append(points, poly...)
	}
	return points
}

// Validate checks that the set holds at least one point and that every
// coordinate is finite.
func (s PolyhedronSet) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty polyhedron set", ErrInvalidInput)
	}
	if s.Len() == 0 {
		return fmt.Errorf("%w: polyhedron set has no points", ErrInvalidInput)
	}
	for i, poly := range s {
		for j, p := range poly {
			if !isFinite(p) {
				return fmt.Errorf("%w: polyhedron %d point %d is not finite", ErrInvalidInput, i, j)
			}
		}
	}
	return nil
}

// ParamCount is the number of values in a capsule parameter vector.
const ParamCount = 7

// Params is the capsule parameter vector exchanged with the optimizer:
// endpoint1 (x, y, z), endpoint2 (x, y, z), radius.
type Params [ParamCount]float64

// NewParams builds a parameter vector from two endpoints and a radius.
func NewParams(p0, p1 Point, radius float64) Params {
	return Params{p0.X, p0.Y, p0.Z, p1.X, p1.Y, p1.Z, radius}
}

// ParamsFromSlice copies x into a Params. x must have exactly seven values.
func ParamsFromSlice(x []float64) (Params, error) {
	var p Params
	if len(x) != ParamCount {
		return p, fmt.Errorf("%w: expected %d capsule parameters, got %d", ErrInvalidInput, ParamCount, len(x))
	}
	copy(p[:], x)
	return p, nil
}

// Slice returns a freshly allocated copy of the parameters.
func (p Params) Slice() []float64 {
	out := make([]float64, ParamCount)
	copy(out, p[:])
	return out
}

// Endpoint1 returns the first axis endpoint.
func (p Params) Endpoint1() Point { return Point{X: p[0], Y: p[1], Z: p[2]} }

// Endpoint2 returns the second axis endpoint.
func (p Params) Endpoint2() Point { return Point{X: p[3], Y: p[4], Z: p[5]} }

// Radius returns the capsule radius.
func (p Params) Radius() float64 { return p[6] }

// Length returns the axis length.
func (p Params) Length() float64 { return r3.Norm(r3.Sub(p.Endpoint2(), p.Endpoint1())) }

// Capsule interprets the parameters as a capsule.
func (p Params) Capsule() Capsule {
	return Capsule{P0: p.Endpoint1(), P1: p.Endpoint2(), Radius: p.Radius()}
}

// Validate reports ErrInvalidInput for non-finite values or a negative radius.
func (p Params) Validate() error {
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: capsule parameter %d is not finite", ErrInvalidInput, i)
		}
	}
	if p.Radius() < 0 {
		return fmt.Errorf("%w: negative radius %g", ErrInvalidInput, p.Radius())
	}
	return nil
}

// Capsule is a sphere of fixed radius swept along the segment [P0, P1].
type Capsule struct {
	P0, P1 Point
	Radius float64
}

// Params converts the capsule to the optimizer parameter vector.
func (c Capsule) Params() Params { return NewParams(c.P0, c.P1, c.Radius) }

// Length returns the axis length.
func (c Capsule) Length() float64 { return r3.Norm(r3.Sub(c.P1, c.P0)) }

// Axis returns the unit axis direction, or the zero vector for a
// point-like capsule.
func (c Capsule) Axis() Point {
	d := r3.Sub(c.P1, c.P0)
	n := r3.Norm(d)
	if n < ZeroNorm {
		return Point{}
	}
	return r3.Scale(1/n, d)
}

// Center returns the midpoint of the axis.
func (c Capsule) Center() Point { return r3.Scale(0.5, r3.Add(c.P0, c.P1)) }

// Contains reports whether p lies inside the capsule, allowing tol of slack.
func (c Capsule) Contains(p Point, tol float64) bool {
	return DistancePointToSegment(p, c.P0, c.P1) <= c.Radius+tol
}

// ContainsAll reports whether every point lies inside the capsule.
func (c Capsule) ContainsAll(points []Point, tol float64) bool {
	for _, p := range points {
		if !c.Contains(p, tol) {
			return false
		}
	}
	return true
}

func isFinite(p Point) bool {
	for _, v := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
