package collision

import (
	"fmt"
	"math"

	"github.com/banshee-data/capsulefit/internal/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Report is the result of a distance query.
type Report struct {
	// Distance is positive when the shapes are separated and negative
	// (minus the penetration depth) when they overlap. For enclosure queries
	// it is the largest amount any polyhedron vertex sticks out of the
	// capsule, so a non-positive value means the polyhedron is enclosed.
	Distance float64
	// OnShape is the witness point on the segment or capsule axis.
	OnShape geom.Point
	// OnPolyhedron is the witness point on the polyhedron.
	OnPolyhedron geom.Point
}

// Detector answers distance queries. A detector that cannot answer a query
// returns an error wrapping ErrUnsupported so the engine can try the next.
type Detector interface {
	Name() string
	// SegmentDistance is the signed distance between segment ab and poly.
	SegmentDistance(a, b geom.Point, poly *Polyhedron) (Report, error)
	// CapsuleEnclosure measures how far poly sticks out of c.
	CapsuleEnclosure(c geom.Capsule, poly *Polyhedron) (Report, error)
}

// penetrationIterations bounds the golden-section search along a segment.
const penetrationIterations = 80

// ExactDetector computes distances from the polyhedron's triangles and face
// planes directly.
type ExactDetector struct{}

// Name implements Detector.
func (ExactDetector) Name() string { return "exact" }

// SegmentDistance implements Detector.
func (ExactDetector) SegmentDistance(a, b geom.Point, poly *Polyhedron) (Report, error) {
	if err := checkPolyhedron(poly); err != nil {
		return Report{}, err
	}
	ab := r3.Sub(b, a)
	at := func(t float64) geom.Point { return r3.Add(a, r3.Scale(t, ab)) }

	// max over faces of the plane distance is convex along the segment and
	// negative exactly where the segment is inside.
	t, depth := minimizeConvex(func(t float64) float64 {
		d, _ := poly.SignedDistance(at(t))
		return d
	}, penetrationIterations)
	if depth < 0 {
		p := at(t)
		// Deepest point: the nearest face is the one with the largest
		// (least negative) signed distance.
		d, face := poly.SignedDistance(p)
		pl := poly.Planes[face]
		return Report{
			Distance:     d,
			OnShape:      p,
			OnPolyhedron: r3.Sub(p, r3.Scale(d, pl.Normal)),
		}, nil
	}

	best := Report{Distance: math.Inf(1)}
	for i := range poly.Faces {
		ta, tb, tc := poly.Triangle(i)
		s, q, d := closestSegmentTriangle(a, b, [3]geom.Point{ta, tb, tc})
		if d < best.Distance {
			best = Report{Distance: d, OnShape: s, OnPolyhedron: q}
		}
	}
	return best, nil
}

// CapsuleEnclosure implements Detector.
func (ExactDetector) CapsuleEnclosure(c geom.Capsule, poly *Polyhedron) (Report, error) {
	if err := checkPolyhedron(poly); err != nil {
		return Report{}, err
	}
	best := Report{Distance: math.Inf(-1)}
	for _, v := range poly.Vertices {
		d := geom.DistancePointToSegment(v, c.P0, c.P1) - c.Radius
		if d > best.Distance {
			best = Report{
				Distance:     d,
				OnShape:      geom.ProjectionOnSegment(v, c.P0, c.P1),
				OnPolyhedron: v,
			}
		}
	}
	return best, nil
}

func checkPolyhedron(poly *Polyhedron) error {
	if poly == nil || len(poly.Vertices) == 0 || len(poly.Planes) == 0 {
		return fmt.Errorf("%w: empty polyhedron", ErrDegenerate)
	}
	return nil
}
