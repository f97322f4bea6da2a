// Command capsule-fit computes the minimum-volume capsule enclosing a point
// set or a set of convex polyhedra.
//
// Usage:
//
//	capsule-fit -points "0 0 0 1 0 0 0 1 0 0 0 1"
//	capsule-fit -input parts.yaml -each -workers 4 -db fits.db -plot-dir out/
//	capsule-fit runs -db fits.db
//	capsule-fit migrate status -db fits.db
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/capsulefit/internal/capsule"
	"github.com/banshee-data/capsulefit/internal/config"
	"github.com/banshee-data/capsulefit/internal/geom"
	"github.com/banshee-data/capsulefit/internal/monitoring"
	"github.com/banshee-data/capsulefit/internal/nlp"
	"github.com/banshee-data/capsulefit/internal/pointio"
	"github.com/banshee-data/capsulefit/internal/report"
	"github.com/banshee-data/capsulefit/internal/store"
	"github.com/banshee-data/capsulefit/internal/version"
)

type options struct {
	points      string
	input       string
	solver      string
	configPath  string
	init        string
	hull        bool
	polyhedra   bool
	each        bool
	workers     int
	dbPath      string
	plotDir     string
	chartPath   string
	stlPath     string
	jsonOut     bool
	listSolvers bool
	verbose     bool
	showVersion bool

	hullSet bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("capsule-fit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.points, "points", "", "Flat point list \"x0 y0 z0 x1 y1 z1 ...\" (spaces or commas)")
	fs.StringVar(&o.input, "input", "", "Point file (.json, .yaml, .csv, .xyz)")
	fs.StringVar(&o.solver, "solver", "", "Solver name (overrides config; see -list-solvers)")
	fs.StringVar(&o.configPath, "config", "", "Fit config JSON (defaults built in)")
	fs.StringVar(&o.init, "init", "", "Initial guess \"x0 y0 z0 x1 y1 z1 r\" (default: bounding capsule)")
	fs.BoolVar(&o.hull, "hull", true, "Reduce constraints to convex hull vertices")
	fs.BoolVar(&o.polyhedra, "polyhedra", false, "Fit against convex polyhedra with the collision engine")
	fs.BoolVar(&o.each, "each", false, "Fit every polyhedron of the input separately")
	fs.IntVar(&o.workers, "workers", 0, "Concurrent fits with -each (0 = config)")
	fs.StringVar(&o.dbPath, "db", "", "SQLite database to record runs in")
	fs.StringVar(&o.plotDir, "plot-dir", "", "Directory for convergence and projection PNGs")
	fs.StringVar(&o.chartPath, "chart", "", "Write an HTML chart page to this path")
	fs.StringVar(&o.stlPath, "stl", "", "Write the fitted capsule as binary STL to this path")
	fs.BoolVar(&o.jsonOut, "json", false, "Print results as JSON")
	fs.BoolVar(&o.listSolvers, "list-solvers", false, "List registered solvers and exit")
	fs.BoolVar(&o.verbose, "v", false, "Log solver progress")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "hull" {
			o.hullSet = true
		}
	})
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("capsule-fit: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "migrate":
			return runMigrate(args[1:], stdout, stderr)
		case "runs":
			return runRuns(args[1:], stdout, stderr)
		}
	}

	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.verbose {
		monitoring.SetLogger(log.Printf)
	} else {
		monitoring.SetLogger(nil)
	}

	if o.showVersion {
		fmt.Fprintln(stdout, version.String("capsule-fit"))
		return nil
	}

	registry := nlp.NewRegistry()
	if o.listSolvers {
		for _, name := range registry.Names() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	}

	cfg := config.DefaultFitConfig()
	if o.configPath != "" {
		if cfg, err = config.LoadFitConfig(o.configPath); err != nil {
			return err
		}
	}

	set, err := loadSet(o)
	if err != nil {
		return err
	}

	fopts, err := fitOptions(o, cfg, registry)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var sets []geom.PolyhedronSet
	if o.each {
		for _, poly := range set {
			sets = append(sets, geom.PolyhedronSet{poly})
		}
	} else {
		sets = []geom.PolyhedronSet{set}
	}
	workers := o.workers
	if workers < 1 {
		workers = cfg.GetWorkers()
	}
	results, err := capsule.FitEach(ctx, sets, fopts, workers)
	if err != nil {
		return err
	}

	runIDs := make([]string, len(results))
	if o.dbPath != "" {
		if runIDs, err = record(o, sets, results); err != nil {
			return err
		}
	}
	if err := writeArtifacts(o, sets, results); err != nil {
		return err
	}

	if o.jsonOut {
		return printJSON(stdout, o, results, runIDs)
	}
	for i, res := range results {
		if len(results) > 1 {
			fmt.Fprintf(stdout, "Set %d:\n", i)
		}
		fmt.Fprintln(stdout, res)
		if runIDs[i] != "" {
			fmt.Fprintf(stdout, "  Run: %s\n", runIDs[i])
		}
	}
	return nil
}

func loadSet(o *options) (geom.PolyhedronSet, error) {
	switch {
	case o.points != "" && o.input != "":
		return nil, errors.New("use either -points or -input, not both")
	case o.points != "":
		poly, err := pointio.ParseFlat(o.points)
		if err != nil {
			return nil, err
		}
		return geom.PolyhedronSet{poly}, nil
	case o.input != "":
		return pointio.ReadFile(o.input)
	default:
		return nil, errors.New("no input: pass -points or -input")
	}
}

func fitOptions(o *options, cfg *config.FitConfig, registry *nlp.Registry) (capsule.FitOptions, error) {
	settings := cfg.SolverSettings()
	engine, err := cfg.Engine()
	if err != nil {
		return capsule.FitOptions{}, err
	}
	reduce := cfg.GetReduceHull()
	if o.hullSet {
		reduce = o.hull
	}
	solver := cfg.GetSolver()
	if o.solver != "" {
		solver = o.solver
	}
	fopts := capsule.FitOptions{
		KeepInterior: !reduce,
		Solver:       solver,
		Settings:     &settings,
		Registry:     registry,
		Polyhedra:    o.polyhedra,
		Engine:       engine,
		FDStep:       cfg.GetFDStep(),
		Logf:         monitoring.Prefixed("fit"),
	}
	if o.init != "" {
		p, err := parseParams(o.init)
		if err != nil {
			return capsule.FitOptions{}, err
		}
		fopts.Init = &p
	}
	return fopts, nil
}

// parseParams reads seven numbers separated by spaces or commas.
func parseParams(s string) (geom.Params, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return geom.Params{}, fmt.Errorf("invalid -init value %q: %w", f, err)
		}
		values = append(values, v)
	}
	p, err := geom.ParamsFromSlice(values)
	if err != nil {
		return geom.Params{}, fmt.Errorf("-init: %w", err)
	}
	return p, nil
}

func record(o *options, sets []geom.PolyhedronSet, results []*capsule.FitResult) ([]string, error) {
	db, err := store.Open(o.dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	fits := store.NewFitStore(db.DB)

	ids := make([]string, len(results))
	for i, res := range results {
		run := store.RunFromResult(res, label(o, i, len(results)), sets[i].Len())
		if err := fits.Insert(run, res.History); err != nil {
			return nil, fmt.Errorf("record set %d: %w", i, err)
		}
		ids[i] = run.RunID
	}
	return ids, nil
}

func label(o *options, i, n int) string {
	name := o.input
	if name == "" {
		name = "points"
	}
	if n > 1 {
		return fmt.Sprintf("%s#%d", name, i)
	}
	return name
}

// indexedPath inserts -i before the extension when more than one result is
// written.
func indexedPath(path string, i, n int) string {
	if n <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), i, ext)
}

func writeArtifacts(o *options, sets []geom.PolyhedronSet, results []*capsule.FitResult) error {
	n := len(results)
	if o.plotDir != "" {
		if err := os.MkdirAll(o.plotDir, 0o755); err != nil {
			return fmt.Errorf("create plot dir: %w", err)
		}
	}
	for i, res := range results {
		points := sets[i].Points()
		if o.plotDir != "" {
			conv := indexedPath(filepath.Join(o.plotDir, "convergence.png"), i, n)
			if err := report.ConvergencePlot(res.History, conv); err != nil && !errors.Is(err, report.ErrNoData) {
				return err
			}
			proj := indexedPath(filepath.Join(o.plotDir, "projection.png"), i, n)
			if err := report.ProjectionPlot(points, res.Capsule(), proj); err != nil {
				return err
			}
		}
		if o.chartPath != "" {
			if err := writeFile(indexedPath(o.chartPath, i, n), func(w io.Writer) error {
				return report.WriteHTML(w, res, points, report.HTMLOptions{Title: label(o, i, n)})
			}); err != nil {
				return err
			}
		}
		if o.stlPath != "" {
			if err := report.WriteCapsuleSTL(indexedPath(o.stlPath, i, n), res.Capsule(), report.DefaultMeshCells); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

type jsonResult struct {
	Label          string      `json:"label"`
	RunID          string      `json:"run_id,omitempty"`
	Status         string      `json:"status"`
	Solver         string      `json:"solver"`
	InitParams     geom.Params `json:"init_params"`
	InitVolume     float64     `json:"init_volume"`
	SolutionParams geom.Params `json:"solution_params"`
	SolutionVolume float64     `json:"solution_volume"`
	MaxViolation   float64     `json:"max_violation"`
	Iterations     int         `json:"iterations"`
	Evaluations    int         `json:"evaluations"`
	Constraints    int         `json:"constraints"`
	DurationMS     float64     `json:"duration_ms"`
	Warnings       []string    `json:"warnings,omitempty"`
	Error          string      `json:"error,omitempty"`
}

func printJSON(w io.Writer, o *options, results []*capsule.FitResult, runIDs []string) error {
	out := make([]jsonResult, len(results))
	for i, res := range results {
		out[i] = jsonResult{
			Label:          label(o, i, len(results)),
			RunID:          runIDs[i],
			Status:         res.Status.String(),
			Solver:         res.Solver,
			InitParams:     res.InitParams,
			InitVolume:     res.InitVolume,
			SolutionParams: res.SolutionParams,
			SolutionVolume: res.SolutionVolume,
			MaxViolation:   res.MaxViolation,
			Iterations:     res.Iterations,
			Evaluations:    res.Evaluations,
			Constraints:    res.Constraints,
			DurationMS:     float64(res.Duration.Microseconds()) / 1000,
			Warnings:       res.Warnings,
		}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
