// Package hull reduces point sets to the vertices of their convex hull.
//
// The minimal enclosing capsule of a point set equals that of its hull, so
// reducing first only removes constraints from the fitting problem.
package hull

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/capsulefit/internal/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// relativeEpsilon scales the bounding diagonal into the distance below which
// a point is considered to lie on a plane or line.
const relativeEpsilon = 1e-10

// Hull is a convex hull. Faces index into Vertices and are wound
// counter-clockwise when seen from outside. Degenerate (flat, collinear or
// single-point) hulls have vertices but no faces.
type Hull struct {
	Vertices []geom.Point
	Faces    [][3]int
}

// Degenerate reports whether the hull has no volume.
func (h *Hull) Degenerate() bool { return len(h.Faces) == 0 }

type face struct {
	v      [3]int // indices into the input point slice
	normal geom.Point
	offset float64
}

type edge struct{ a, b int }

func (e edge) undirected() edge {
	if e.a > e.b {
		return edge{e.b, e.a}
	}
	return e
}

// Compute returns the convex hull of points. It never fails on degenerate
// input; only an empty point set is rejected.
func Compute(points []geom.Point) (*Hull, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: convex hull of empty point set", geom.ErrInvalidInput)
	}

	scale := geom.BoundingDiagonal(points)
	if scale == 0 {
		return &Hull{Vertices: []geom.Point{points[0]}}, nil
	}
	eps := relativeEpsilon * scale

	i0, i1 := farthestPair(points)
	i2, lineDist := farthestFromLine(points, i0, i1)
	if lineDist <= eps {
		return &Hull{Vertices: []geom.Point{points[i0], points[i1]}}, nil
	}
	i3, planeDist := farthestFromPlane(points, i0, i1, i2)
	if planeDist <= eps {
		return planarHull(points, i0, i1, i2, eps), nil
	}

	interior := geom.Centroid([]geom.Point{points[i0], points[i1], points[i2], points[i3]})
	faces := []*face{
		newFaceOutward(points, i0, i1, i2, interior),
		newFaceOutward(points, i0, i2, i3, interior),
		newFaceOutward(points, i0, i3, i1, interior),
		newFaceOutward(points, i1, i3, i2, interior),
	}

	for i, p := range points {
		if i == i0 || i == i1 || i == i2 || i == i3 {
			continue
		}
		var visible, hidden []*face
		for _, f := range faces {
			if r3.Dot(f.normal, p)-f.offset > eps {
				visible = append(visible, f)
			} else {
				hidden = append(hidden, f)
			}
		}
		if len(visible) == 0 {
			continue
		}
		for _, e := range horizon(visible) {
			hidden = append(hidden, newFaceOutward(points, e.a, e.b, i, interior))
		}
		faces = hidden
	}

	return collect(points, faces), nil
}

// Reduce returns the hull vertices of points, or points unchanged if the hull
// cannot be computed.
func Reduce(points []geom.Point) []geom.Point {
	h, err := Compute(points)
	if err != nil {
		return points
	}
	return h.Vertices
}

// ReduceSet merges every polyhedron of set and returns a one-element set
// holding the hull vertices of the union.
func ReduceSet(set geom.PolyhedronSet) geom.PolyhedronSet {
	return geom.PolyhedronSet{geom.Polyhedron(Reduce(set.Points()))}
}

func newFaceOutward(points []geom.Point, a, b, c int, interior geom.Point) *face {
	pa, pb, pc := points[a], points[b], points[c]
	n := r3.Cross(r3.Sub(pb, pa), r3.Sub(pc, pa))
	if r3.Dot(n, r3.Sub(interior, pa)) > 0 {
		b, c = c, b
		n = r3.Scale(-1, n)
	}
	if l := r3.Norm(n); l > 0 {
		n = r3.Scale(1/l, n)
	}
	return &face{v: [3]int{a, b, c}, normal: n, offset: r3.Dot(n, pa)}
}

// horizon returns the boundary of the visible region: edges owned by exactly
// one visible face, in that face's winding.
func horizon(visible []*face) []edge {
	count := make(map[edge]int)
	var directed []edge
	for _, f := range visible {
		for k := 0; k < 3; k++ {
			e := edge{f.v[k], f.v[(k+1)%3]}
			count[e.undirected()]++
			directed = append(directed, e)
		}
	}
	var out []edge
	for _, e := range directed {
		if count[e.undirected()] == 1 {
			out = append(out, e)
		}
	}
	return out
}

func collect(points []geom.Point, faces []*face) *Hull {
	used := make(map[int]bool)
	for _, f := range faces {
		for _, v := range f.v {
			used[v] = true
		}
	}
	ids := make([]int, 0, len(used))
	for id := range used {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	remap := make(map[int]int, len(ids))
	h := &Hull{Vertices: make([]geom.Point, len(ids)), Faces: make([][3]int, len(faces))}
	for i, id := range ids {
		remap[id] = i
		h.Vertices[i] = points[id]
	}
	for i, f := range faces {
		h.Faces[i] = [3]int{remap[f.v[0]], remap[f.v[1]], remap[f.v[2]]}
	}
	return h
}

func farthestPair(points []geom.Point) (int, int) {
	var extremes []int
	for axis := 0; axis < 3; axis++ {
		lo, hi := 0, 0
		for i, p := range points {
			if coord(p, axis) < coord(points[lo], axis) {
				lo = i
			}
			if coord(p, axis) > coord(points[hi], axis) {
				hi = i
			}
		}
		extremes = append(extremes, lo, hi)
	}
	best := -1.0
	var a, b int
	for i := 0; i < len(extremes); i++ {
		for j := i + 1; j < len(extremes); j++ {
			d := r3.Norm2(r3.Sub(points[extremes[i]], points[extremes[j]]))
			if d > best {
				best, a, b = d, extremes[i], extremes[j]
			}
		}
	}
	return a, b
}

func farthestFromLine(points []geom.Point, i0, i1 int) (int, float64) {
	dir := r3.Sub(points[i1], points[i0])
	best, idx := -1.0, i0
	for i, p := range points {
		if d := geom.DistancePointToLine(p, points[i0], dir); d > best {
			best, idx = d, i
		}
	}
	return idx, best
}

func farthestFromPlane(points []geom.Point, i0, i1, i2 int) (int, float64) {
	n := r3.Unit(r3.Cross(r3.Sub(points[i1], points[i0]), r3.Sub(points[i2], points[i0])))
	best, idx := -1.0, i0
	for i, p := range points {
		if d := math.Abs(r3.Dot(n, r3.Sub(p, points[i0]))); d > best {
			best, idx = d, i
		}
	}
	return idx, best
}

// planarHull computes the 2D hull of coplanar points with a monotone chain
// in the plane spanned by the first three non-collinear points.
func planarHull(points []geom.Point, i0, i1, i2 int, eps float64) *Hull {
	origin := points[i0]
	u := r3.Unit(r3.Sub(points[i1], origin))
	n := r3.Unit(r3.Cross(r3.Sub(points[i1], origin), r3.Sub(points[i2], origin)))
	v := r3.Cross(n, u)

	type planar struct {
		x, y float64
		id   int
	}
	pts := make([]planar, len(points))
	for i, p := range points {
		d := r3.Sub(p, origin)
		pts[i] = planar{r3.Dot(d, u), r3.Dot(d, v), i}
	}
	sort.Slice(pts, func(a, b int) bool {
		if pts[a].x != pts[b].x {
			return pts[a].x < pts[b].x
		}
		return pts[a].y < pts[b].y
	})
	cross := func(o, a, b planar) float64 {
		return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
	}

	chain := make([]planar, 0, 2*len(pts))
	for _, p := range pts {
		for len(chain) >= 2 && cross(chain[len(chain)-2], chain[len(chain)-1], p) <= eps*eps {
			chain = chain[:len(chain)-1]
		}
		chain = append(chain, p)
	}
	lower := len(chain) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(chain) >= lower && cross(chain[len(chain)-2], chain[len(chain)-1], p) <= eps*eps {
			chain = chain[:len(chain)-1]
		}
		chain = append(chain, p)
	}
	chain = chain[:len(chain)-1]

	h := &Hull{Vertices: make([]geom.Point, len(chain))}
	for i, p := range chain {
		h.Vertices[i] = points[p.id]
	}
	return h
}

func coord(p geom.Point, axis int) float64 {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}
