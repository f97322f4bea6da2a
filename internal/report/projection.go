package report

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/capsulefit/internal/geom"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("report: no data")

// Sample is a point expressed in a capsule's frame. Axial is measured from
// the first endpoint along the axis; Radial is the distance to the axis line.
type Sample struct {
	Axial  float64
	Radial float64
}

// Project maps points into the axial/radial frame of c. A capsule with
// coincident endpoints is treated as a sphere about P0 with the axis along z.
func Project(points []geom.Point, c geom.Capsule) []Sample {
	axis := c.Axis()
	if r3.Norm(axis) == 0 {
		axis = geom.Point{Z: 1}
	}
	out := make([]Sample, len(points))
	for i, p := range points {
		d := r3.Sub(p, c.P0)
		a := r3.Dot(d, axis)
		rad := r3.Norm(r3.Sub(d, r3.Scale(a, axis)))
		out[i] = Sample{Axial: a, Radial: rad}
	}
	return out
}

// Outline returns the upper half of the capsule's profile in the axial/radial
// frame: a quarter circle, the straight side, and the far quarter circle.
// steps is the number of segments per cap.
func Outline(c geom.Capsule, steps int) []Sample {
	if steps < 1 {
		steps = 1
	}
	r := math.Max(c.Radius, 0)
	l := c.Length()
	out := make([]Sample, 0, 2*steps+2)
	for i := 0; i <= steps; i++ {
		t := math.Pi/2 * float64(i) / float64(steps)
		out = append(out, Sample{Axial: -r * math.Cos(t), Radial: r * math.Sin(t)})
	}
	for i := 0; i <= steps; i++ {
		t := math.Pi/2 * float64(i) / float64(steps)
		out = append(out, Sample{Axial: l + r*math.Sin(t), Radial: r * math.Cos(t)})
	}
	return out
}
