package collision

import (
	"math"

	"github.com/banshee-data/capsulefit/internal/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// closestOnTriangle returns the point of triangle abc nearest p, walking
// the Voronoi regions of the vertices, edges and face in turn.
func closestOnTriangle(p, a, b, c geom.Point) geom.Point {
	ab, ac, ap := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(p, a)
	d1, d2 := r3.Dot(ab, ap), r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}
	bp := r3.Sub(p, b)
	d3, d4 := r3.Dot(ab, bp), r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return r3.Add(a, r3.Scale(d1/(d1-d3), ab))
	}
	cp := r3.Sub(p, c)
	d5, d6 := r3.Dot(ab, cp), r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return r3.Add(a, r3.Scale(d2/(d2-d6), ac))
	}
	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return r3.Add(b, r3.Scale(w, r3.Sub(c, b)))
	}
	denom := 1 / (va + vb + vc)
	v, w := vb*denom, vc*denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
}

// closestSegmentSegment returns the closest points between segments p1q1
// and p2q2.
func closestSegmentSegment(p1, q1, p2, q2 geom.Point) (c1, c2 geom.Point) {
	d1, d2, r := r3.Sub(q1, p1), r3.Sub(q2, p2), r3.Sub(p1, p2)
	a, e, f := r3.Dot(d1, d1), r3.Dot(d2, d2), r3.Dot(d2, r)
	eps := geom.ZeroNorm * geom.ZeroNorm
	var s, t float64
	switch {
	case a <= eps && e <= eps:
	case a <= eps:
		t = clamp01(f / e)
	default:
		c := r3.Dot(d1, r)
		if e <= eps {
			s = clamp01(-c / a)
			break
		}
		b := r3.Dot(d1, d2)
		if denom := a*e - b*b; denom > 0 {
			s = clamp01((b*f - c*e) / denom)
		}
		t = (b*s + f) / e
		if t < 0 {
			t, s = 0, clamp01(-c/a)
		} else if t > 1 {
			t, s = 1, clamp01((b-c)/a)
		}
	}
	return r3.Add(p1, r3.Scale(s, d1)), r3.Add(p2, r3.Scale(t, d2))
}

// closestSegmentTriangle returns the closest points between segment ab and
// triangle tri, assuming the segment does not pierce the triangle.
func closestSegmentTriangle(a, b geom.Point, tri [3]geom.Point) (onSeg, onTri geom.Point, dist float64) {
	dist = math.Inf(1)
	try := func(s, q geom.Point) {
		if d := r3.Norm(r3.Sub(s, q)); d < dist {
			onSeg, onTri, dist = s, q, d
		}
	}
	try(a, closestOnTriangle(a, tri[0], tri[1], tri[2]))
	try(b, closestOnTriangle(b, tri[0], tri[1], tri[2]))
	for i := 0; i < 3; i++ {
		s, q := closestSegmentSegment(a, b, tri[i], tri[(i+1)%3])
		try(s, q)
	}
	return onSeg, onTri, dist
}

// minimizeConvex finds the minimum of a convex function on [0, 1] by
// golden-section search.
func minimizeConvex(f func(float64) float64, iterations int) (t, v float64) {
	const invPhi = 0.6180339887498949
	lo, hi := 0.0, 1.0
	x1 := hi - invPhi*(hi-lo)
	x2 := lo + invPhi*(hi-lo)
	f1, f2 := f(x1), f(x2)
	for i := 0; i < iterations; i++ {
		if f1 <= f2 {
			hi, x2, f2 = x2, x1, f1
			x1 = hi - invPhi*(hi-lo)
			f1 = f(x1)
		} else {
			lo, x1, f1 = x1, x2, f2
			x2 = lo + invPhi*(hi-lo)
			f2 = f(x2)
		}
	}
	t, v = x1, f1
	if f2 < v {
		t, v = x2, f2
	}
	// Endpoints are not sampled by the search itself.
	if f0 := f(0); f0 < v {
		t, v = 0, f0
	}
	if fEnd := f(1); fEnd < v {
		t, v = 1, fEnd
	}
	return t, v
}
