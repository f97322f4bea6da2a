package collision

import (
	"fmt"
	"math"

	"github.com/banshee-data/capsulefit/internal/geom"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// SDFDetector evaluates a signed distance field of the capsule at the
// polyhedron vertices. It only answers enclosure queries.
type SDFDetector struct{}

// Name implements Detector.
func (SDFDetector) Name() string { return "sdf" }

// SegmentDistance implements Detector. Segments have no volume to build a
// field from, so the query is always unsupported.
func (SDFDetector) SegmentDistance(geom.Point, geom.Point, *Polyhedron) (Report, error) {
	return Report{}, fmt.Errorf("%w: sdf detector has no segment query", ErrUnsupported)
}

// CapsuleEnclosure implements Detector.
func (SDFDetector) CapsuleEnclosure(c geom.Capsule, poly *Polyhedron) (Report, error) {
	if err := checkPolyhedron(poly); err != nil {
		return Report{}, err
	}
	field, err := CapsuleSDF(c)
	if err != nil {
		return Report{}, err
	}
	best := Report{Distance: math.Inf(-1)}
	for _, v := range poly.Vertices {
		d := field.Evaluate(toV3(v))
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

// CapsuleSDF returns the signed distance field of c: a fully rounded
// cylinder along +z, rotated onto the axis and moved to the center.
func CapsuleSDF(c geom.Capsule) (sdf.SDF3, error) {
	if !(c.Radius > 0) {
		return nil, fmt.Errorf("%w: sdf capsule needs a positive radius, got %g", ErrUnsupported, c.Radius)
	}
	length := c.Length()
	s, err := sdf.Cylinder3D(length+2*c.Radius, c.Radius, c.Radius)
	if err != nil {
		return nil, fmt.Errorf("build capsule sdf: %w", err)
	}
	theta, phi := 0.0, 0.0
	if length > geom.ZeroNorm {
		u := c.Axis()
		theta = math.Acos(math.Max(-1, math.Min(1, u.Z)))
		phi = math.Atan2(u.Y, u.X)
	}
	m := sdf.Translate3d(toV3(c.Center())).Mul(sdf.RotateZ(phi)).Mul(sdf.RotateY(theta))
	return sdf.Transform3D(s, m), nil
}

func toV3(p geom.Point) v3.Vec { return v3.Vec{X: p.X, Y: p.Y, Z: p.Z} }
