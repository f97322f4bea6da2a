package capsule

import (
	"fmt"
	"math"

	"github.com/banshee-data/capsulefit/internal/geom"
	"github.com/banshee-data/capsulefit/internal/geom/hull"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// BoundingCapsule computes a capsule containing every point, to be used as
// the optimiser's starting point. It makes no attempt at minimality.
//
// Algorithm:
//  1. Covariance of the points about their centroid
//  2. Axis = eigenvector of the largest |eigenvalue|
//  3. Extreme projections onto the axis give the axis length
//  4. Radius = largest distance from the centroid line
//  5. Endpoints sit radius inside the extremes, then move outward until the
//     end caps reach every point (Pythagorean cap test)
//  6. A last pass raises the radius so rounding never leaves a point out
//
// Fewer than two points skip the covariance; a single point gives a
// zero-length, zero-radius capsule.
func BoundingCapsule(points []geom.Point) (geom.Capsule, error) {
	if len(points) == 0 {
		return geom.Capsule{}, fmt.Errorf("%w: bounding capsule of no points", geom.ErrInvalidInput)
	}
	if err := (geom.PolyhedronSet{points}).Validate(); err != nil {
		return geom.Capsule{}, err
	}

	centroid := geom.Centroid(points)
	axis := geom.Point{X: 1}
	if len(points) >= 2 {
		axis = principalAxis(points)
	}

	minProj, maxProj := math.Inf(1), math.Inf(-1)
	radius := 0.0
	for _, p := range points {
		s := r3.Dot(r3.Sub(p, centroid), axis)
		minProj = math.Min(minProj, s)
		maxProj = math.Max(maxProj, s)
		radius = math.Max(radius, geom.DistancePointToLine(p, centroid, axis))
	}
	length := maxProj - minProj

	// Center on the extreme farthest from the centroid, half a length in.
	var center geom.Point
	if math.Abs(maxProj) >= math.Abs(minProj) {
		center = r3.Add(centroid, r3.Scale(maxProj-length/2, axis))
	} else {
		center = r3.Add(centroid, r3.Scale(minProj+length/2, axis))
	}

	half := math.Max(length/2-radius, 0)
	startExt, endExt := 0.0, 0.0
	p0 := r3.Sub(center, r3.Scale(half, axis))
	p1 := r3.Add(center, r3.Scale(half, axis))
	for _, p := range points {
		s := r3.Dot(r3.Sub(p, center), axis)
		var capCenter geom.Point
		var axial float64
		switch {
		case s > half:
			capCenter, axial = p1, s-half
		case s < -half:
			capCenter, axial = p0, -s-half
		default:
			continue
		}
		if r3.Norm(r3.Sub(p, capCenter)) <= radius {
			continue
		}
		perp := geom.DistancePointToLine(p, center, axis)
		radicand := radius*radius - perp*perp
		if radicand < 0 {
			continue
		}
		ext := axial - math.Sqrt(radicand)
		if ext <= 0 {
			continue
		}
		if s > 0 {
			endExt = math.Max(endExt, ext)
		} else {
			startExt = math.Max(startExt, ext)
		}
	}
	p0 = r3.Sub(center, r3.Scale(half+startExt, axis))
	p1 = r3.Add(center, r3.Scale(half+endExt, axis))

	for _, p := range points {
		radius = math.Max(radius, geom.DistancePointToSegment(p, p0, p1))
	}
	return geom.Capsule{P0: p0, P1: p1, Radius: radius}, nil
}

// principalAxis returns the unit direction of maximal spread, or x̂ when
// the decomposition fails or yields no usable vector.
func principalAxis(points []geom.Point) geom.Point {
	data := make([]float64, 0, 3*len(points))
	for _, p := range points {
		data = append(data, p.X, p.Y, p.Z)
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, mat.NewDense(len(points), 3, data), nil)

	var eig mat.EigenSym
	if !eig.Factorize(&cov, true) {
		return geom.Point{X: 1}
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	k := 0
	for i := range values {
		if math.Abs(values[i]) > math.Abs(values[k]) {
			k = i
		}
	}
	axis := geom.Point{X: vectors.At(0, k), Y: vectors.At(1, k), Z: vectors.At(2, k)}
	if n := r3.Norm(axis); n < geom.ZeroNorm || math.IsNaN(n) {
		return geom.Point{X: 1}
	}
	return r3.Unit(axis)
}

// BoundingCapsuleSet is BoundingCapsule over the union of every polyhedron.
func BoundingCapsuleSet(set geom.PolyhedronSet) (geom.Capsule, error) {
	if err := set.Validate(); err != nil {
		return geom.Capsule{}, err
	}
	return BoundingCapsule(set.Points())
}

// InitialParams returns the heuristic seed for set, optionally computed from
// the hull vertices only. Both give the same containment guarantee.
func InitialParams(set geom.PolyhedronSet, reduceHull bool) (geom.Params, error) {
	if err := set.Validate(); err != nil {
		return geom.Params{}, err
	}
	pts := set.Points()
	if reduceHull {
		pts = hull.Reduce(pts)
	}
	c, err := BoundingCapsule(pts)
	if err != nil {
		return geom.Params{}, err
	}
	return c.Params(), nil
}
