package collision

import (
	"errors"
	"fmt"

	"github.com/banshee-data/capsulefit/internal/geom"
	"github.com/banshee-data/capsulefit/internal/geom/hull"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrDegenerate is returned for point sets whose hull has no volume.
	ErrDegenerate = errors.New("collision: degenerate polyhedron")
	// ErrUnsupported is returned by a detector that cannot answer a query.
	ErrUnsupported = errors.New("collision: query not supported")
	// ErrNoReport is returned when no detector produced an acceptable report.
	ErrNoReport = errors.New("collision: no report")
)

// Plane is an oriented plane n·p = Offset with unit outward Normal.
type Plane struct {
	Normal geom.Point
	Offset float64
}

// Signed returns the signed distance of p from the plane, positive outside.
func (pl Plane) Signed(p geom.Point) float64 {
	return r3.Dot(pl.Normal, p) - pl.Offset
}

// Polyhedron is a convex polyhedron with outward-wound triangular faces.
type Polyhedron struct {
	Vertices []geom.Point
	Faces    [][3]int
	Planes   []Plane
}

// NewPolyhedron builds the convex hull of points.
func NewPolyhedron(points []geom.Point) (*Polyhedron, error) {
	h, err := hull.Compute(points)
	if err != nil {
		return nil, fmt.Errorf("compute hull: %w", err)
	}
	if h.Degenerate() {
		return nil, fmt.Errorf("%w: %d points span no volume", ErrDegenerate, len(points))
	}
	p := &Polyhedron{Vertices: h.Vertices, Faces: h.Faces}
	p.Planes = make([]Plane, 0, len(h.Faces))
	for i, f := range h.Faces {
		a, b, c := h.Vertices[f[0]], h.Vertices[f[1]], h.Vertices[f[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		if r3.Norm(n) < geom.ZeroNorm {
			return nil, fmt.Errorf("%w: face %d has zero area", ErrDegenerate, i)
		}
		n = r3.Unit(n)
		p.Planes = append(p.Planes, Plane{Normal: n, Offset: r3.Dot(n, a)})
	}
	return p, nil
}

// NewPolyhedra builds one polyhedron per point group of set.
func NewPolyhedra(set geom.PolyhedronSet) ([]*Polyhedron, error) {
	out := make([]*Polyhedron, 0, len(set))
	for i, pts := range set {
		p, err := NewPolyhedron(pts)
		if err != nil {
			return nil, fmt.Errorf("polyhedron %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// SignedDistance returns max over faces of the signed plane distance. It is
// the exact distance for points inside (negated) and a lower bound outside.
func (p *Polyhedron) SignedDistance(q geom.Point) (float64, int) {
	best, idx := p.Planes[0].Signed(q), 0
	for i := 1; i < len(p.Planes); i++ {
		if d := p.Planes[i].Signed(q); d > best {
			best, idx = d, i
		}
	}
	return best, idx
}

// Contains reports whether q lies inside p within tol.
func (p *Polyhedron) Contains(q geom.Point, tol float64) bool {
	d, _ := p.SignedDistance(q)
	return d <= tol
}

// Triangle returns the corners of face i.
func (p *Polyhedron) Triangle(i int) (a, b, c geom.Point) {
	f := p.Faces[i]
	return p.Vertices[f[0]], p.Vertices[f[1]], p.Vertices[f[2]]
}
