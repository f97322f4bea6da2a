package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/capsulefit/internal/geom"
	"github.com/banshee-data/capsulefit/internal/nlp"
)

// violationFloor keeps zero violations drawable on the log10 axis.
const violationFloor = 1e-16

var (
	objectiveColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	violationColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	outlineColor   = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// ConvergencePlot writes a two-line PNG (or any format gonum/plot infers
// from the extension) of the scaled objective and log10 constraint violation
// per outer iteration.
func ConvergencePlot(history []nlp.Iterate, path string) error {
	if len(history) == 0 {
		return ErrNoData
	}

	objPts := make(plotter.XYs, len(history))
	violPts := make(plotter.XYs, len(history))
	for i, it := range history {
		objPts[i].X = float64(it.Outer)
		objPts[i].Y = it.Objective
		violPts[i].X = float64(it.Outer)
		violPts[i].Y = math.Log10(math.Max(it.MaxViolation, violationFloor))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Convergence (%d outer iterations)", len(history))
	p.X.Label.Text = "Outer iteration"
	p.Y.Label.Text = "Objective / log10(violation)"

	objLine, err := plotter.NewLine(objPts)
	if err != nil {
		return fmt.Errorf("objective line: %w", err)
	}
	objLine.Color = objectiveColor
	objLine.Width = vg.Points(1)
	p.Add(objLine)
	p.Legend.Add("objective", objLine)

	violLine, err := plotter.NewLine(violPts)
	if err != nil {
		return fmt.Errorf("violation line: %w", err)
	}
	violLine.Color = violationColor
	violLine.Width = vg.Points(1)
	violLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(violLine)
	p.Legend.Add("log10 violation", violLine)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save convergence plot: %w", err)
	}
	return nil
}

// ProjectionPlot scatters points in the capsule's axial/radial frame and
// overlays the capsule profile. Every enclosed point falls under the outline.
func ProjectionPlot(points []geom.Point, c geom.Capsule, path string) error {
	if len(points) == 0 {
		return ErrNoData
	}

	samples := Project(points, c)
	pts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		pts[i].X = s.Axial
		pts[i].Y = s.Radial
	}
	outline := Outline(c, 32)
	out := make(plotter.XYs, len(outline))
	for i, s := range outline {
		out[i].X = s.Axial
		out[i].Y = s.Radial
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Axial/radial projection (r=%.4g, L=%.4g)", c.Radius, c.Length())
	p.X.Label.Text = "Axial"
	p.Y.Label.Text = "Radial"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("point scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Color = objectiveColor
	p.Add(scatter)
	p.Legend.Add("points", scatter)

	line, err := plotter.NewLine(out)
	if err != nil {
		return fmt.Errorf("outline: %w", err)
	}
	line.Color = outlineColor
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("capsule", line)

	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save projection plot: %w", err)
	}
	return nil
}
