package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/capsulefit/internal/capsule"
	"github.com/banshee-data/capsulefit/internal/geom"
)

// HTMLOptions tunes WriteHTML. An empty AssetsHost keeps the go-echarts CDN.
type HTMLOptions struct {
	Title      string
	AssetsHost string
}

// WriteHTML renders a page with the convergence history and the
// axial/radial projection of points against the fitted capsule.
func WriteHTML(w io.Writer, res *capsule.FitResult, points []geom.Point, o HTMLOptions) error {
	if res == nil {
		return ErrNoData
	}
	title := o.Title
	if title == "" {
		title = "Capsule fit"
	}

	page := components.NewPage()
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	if len(res.History) == 0 && len(points) == 0 {
		return ErrNoData
	}
	if len(res.History) > 0 {
		page.AddCharts(convergenceChart(res, title, o.AssetsHost))
	}
	if len(points) > 0 {
		page.AddCharts(projectionChart(res.Capsule(), points, o.AssetsHost))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

func initOpts(title, assets string) opts.Initialization {
	return opts.Initialization{PageTitle: title, Width: "900px", Height: "500px", AssetsHost: assets}
}

func convergenceChart(res *capsule.FitResult, title, assets string) *charts.Line {
	xs := make([]int, len(res.History))
	obj := make([]opts.LineData, len(res.History))
	viol := make([]opts.LineData, len(res.History))
	for i, it := range res.History {
		xs[i] = it.Outer
		obj[i] = opts.LineData{Value: it.Objective}
		viol[i] = opts.LineData{Value: math.Log10(math.Max(it.MaxViolation, violationFloor))}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(title, assets)),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("solver=%s status=%s evaluations=%d", res.Solver, res.Status, res.Evaluations),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "outer iteration", NameLocation: "middle", NameGap: 25}),
	)
	line.SetXAxis(xs).
		AddSeries("objective", obj).
		AddSeries("log10 violation", viol)
	return line
}

func projectionChart(c geom.Capsule, points []geom.Point, assets string) *charts.Scatter {
	samples := Project(points, c)
	data := make([]opts.ScatterData, len(samples))
	for i, s := range samples {
		data[i] = opts.ScatterData{Value: []interface{}{s.Axial, s.Radial}}
	}
	outline := Outline(c, 32)
	profile := make([]opts.ScatterData, len(outline))
	for i, s := range outline {
		profile[i] = opts.ScatterData{Value: []interface{}{s.Axial, s.Radial}}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Projection", assets)),
		charts.WithTitleOpts(opts.Title{
			Title:    "Axial/radial projection",
			Subtitle: fmt.Sprintf("points=%d radius=%.4g length=%.4g", len(points), c.Radius, c.Length()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "axial", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "radial", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("points", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	scatter.AddSeries("capsule", profile, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))
	return scatter
}
