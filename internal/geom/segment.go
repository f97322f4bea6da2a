package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ZeroNorm is the length below which a direction or segment is treated as
// degenerate. Degenerate geometry is handled locally (the contribution is
// taken as zero) rather than reported as an error.
const ZeroNorm = 1e-12

// SegmentParameter returns the clamped parameter λ ∈ [0, 1] of the point on
// [a, b] closest to p. A degenerate segment (a == b) yields 0.
func SegmentParameter(p, a, b Point) float64 {
	ab := r3.Sub(b, a)
	denom := r3.Norm2(ab)
	if denom < ZeroNorm*ZeroNorm {
		return 0
	}
	lambda := r3.Dot(r3.Sub(p, a), ab) / denom
	return math.Max(0, math.Min(1, lambda))
}

// ProjectionOnSegment returns the point of [a, b] closest to p: the
// orthogonal projection of p clamped to the segment.
func ProjectionOnSegment(p, a, b Point) Point {
	lambda := SegmentParameter(p, a, b)
	return r3.Add(a, r3.Scale(lambda, r3.Sub(b, a)))
}

// DistancePointToSegment returns the Euclidean distance from p to the finite
// segment [a, b]. It equals |p - ProjectionOnSegment(p, a, b)| and degrades
// to the point-to-point distance when a == b.
func DistancePointToSegment(p, a, b Point) float64 {
	return r3.Norm(r3.Sub(p, ProjectionOnSegment(p, a, b)))
}

// DistancePointToLine returns the distance from p to the infinite line
// through linePoint along dir. dir need not be normalised; a zero dir
// degrades to the distance between p and linePoint.
func DistancePointToLine(p, linePoint, dir Point) float64 {
	n := r3.Norm(dir)
	if n < ZeroNorm {
		return r3.Norm(r3.Sub(p, linePoint))
	}
	return r3.Norm(r3.Cross(dir, r3.Sub(linePoint, p))) / n
}

// Centroid returns the mean position of points, or the origin if empty.
func Centroid(points []Point) Point {
	var c Point
	if len(points) == 0 {
		return c
	}
	for _, p := range points {
		c = r3.Add(c, p)
	}
	return r3.Scale(1/float64(len(points)), c)
}

// BoundingDiagonal returns the length of the diagonal of the axis-aligned
// box around points. It is the characteristic length used to scale the
// optimization problem and is 0 for an empty or single-point set.
func BoundingDiagonal(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		lo = Point{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = Point{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return r3.Norm(r3.Sub(hi, lo))
}
