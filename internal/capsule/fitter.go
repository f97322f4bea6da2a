package capsule

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/banshee-data/capsulefit/internal/collision"
	"github.com/banshee-data/capsulefit/internal/geom"
	"github.com/banshee-data/capsulefit/internal/monitoring"
	"github.com/banshee-data/capsulefit/internal/nlp"
)

// State is the lifecycle stage of a Fitter.
type State int

const (
	Uninitialized State = iota
	ProblemBuilt
	Solving
	Solved
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case ProblemBuilt:
		return "problem_built"
	case Solving:
		return "solving"
	case Solved:
		return "solved"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FitResult is the outcome of one fit.
type FitResult struct {
	Status         nlp.Status
	Solver         string
	InitParams     geom.Params
	InitVolume     float64
	SolutionParams geom.Params
	SolutionVolume float64
	// MaxViolation is the solver's final constraint violation in scaled
	// units.
	MaxViolation float64
	Iterations   int
	Evaluations  int
	Constraints  int
	History      []nlp.Iterate
	Warnings     []string
	Duration     time.Duration
	// Err holds the solver or collaborator error behind a SolverError.
	Err error
}

// Accepted reports whether SolutionParams came from the solver rather than
// the initial-guess fallback.
func (r *FitResult) Accepted() bool { return r.Status.Accepted() }

// Capsule returns the solution as a capsule.
func (r *FitResult) Capsule() geom.Capsule { return r.SolutionParams.Capsule() }

// String prints the parameter block, one field per line.
func (r *FitResult) String() string {
	var b strings.Builder
	b.WriteString("Capsule parameters:\n")
	fmt.Fprintf(&b, "  Initial parameters: %s\n", formatParams(r.InitParams))
	fmt.Fprintf(&b, "  Initial volume: %g\n", r.InitVolume)
	fmt.Fprintf(&b, "  Solution parameters: %s\n", formatParams(r.SolutionParams))
	fmt.Fprintf(&b, "  Solution volume: %g\n", r.SolutionVolume)
	fmt.Fprintf(&b, "  Status: %s", r.Status)
	return b.String()
}

func formatParams(p geom.Params) string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[7](" + strings.Join(parts, ", ") + ")"
}

// Fitter assembles and solves capsule-fitting problems. A Fitter is not
// safe for concurrent use; FitEach gives each job its own.
type Fitter struct {
	solver nlp.Solver
	engine *collision.Engine
	logf   func(format string, v ...interface{})
	fdStep float64

	state  State
	result *FitResult
}

// Option configures a Fitter.
type Option func(*Fitter)

// WithEngine sets the collision engine for polyhedron fits.
func WithEngine(e *collision.Engine) Option {
	return func(f *Fitter) { f.engine = e }
}

// WithLogger routes fitter diagnostics to logf. Nil mutes them.
func WithLogger(logf func(format string, v ...interface{})) Option {
	return func(f *Fitter) { f.logf = monitoring.OrDiscard(logf) }
}

// WithFDStep sets the finite-difference step of collision-backed gradients,
// relative to the problem scale.
func WithFDStep(h float64) Option {
	return func(f *Fitter) { f.fdStep = h }
}

// NewFitter returns a fitter that solves with solver. A nil solver means
// the default registry solver with default settings.
func NewFitter(solver nlp.Solver, opts ...Option) *Fitter {
	f := &Fitter{solver: solver, logf: monitoring.Prefixed("fitter")}
	if f.solver == nil {
		f.solver, _ = nlp.NewRegistry().New(nlp.DefaultSolver, nlp.DefaultSettings())
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// State returns the current lifecycle stage.
func (f *Fitter) State() State { return f.state }

// Result returns the last fit result, or nil before the first fit.
func (f *Fitter) Result() *FitResult { return f.result }

// InitParams returns the initial parameters of the last fit.
func (f *Fitter) InitParams() geom.Params { return f.resultOrZero().InitParams }

// SolutionParams returns the solution parameters of the last fit.
func (f *Fitter) SolutionParams() geom.Params { return f.resultOrZero().SolutionParams }

// InitVolume returns the volume of the initial parameters of the last fit.
func (f *Fitter) InitVolume() float64 { return f.resultOrZero().InitVolume }

// SolutionVolume returns the volume of the solution of the last fit.
func (f *Fitter) SolutionVolume() float64 { return f.resultOrZero().SolutionVolume }

func (f *Fitter) resultOrZero() *FitResult {
	if f.result == nil {
		return &FitResult{}
	}
	return f.result
}

// problemScale is the characteristic length used to normalise the
// objective (1/ℓ³) and the distance constraints (1/ℓ).
func problemScale(points []geom.Point) float64 {
	l := geom.BoundingDiagonal(points)
	if !(l > geom.ZeroNorm) || math.IsInf(l, 0) {
		return 1
	}
	return l
}

func radiusBounds() []nlp.Interval {
	b := make([]nlp.Interval, geom.ParamCount)
	for i := range b {
		b[i] = nlp.Unbounded()
	}
	b[6] = nlp.LowerBound(0)
	return b
}

func (f *Fitter) scaledFDStep(scale float64) float64 {
	h := f.fdStep
	if !(h > 0) {
		h = DefaultFDStep
	}
	return h * scale
}

// ComputeBestFitCapsule minimises the volume of a capsule containing every
// point of set, starting from init. Invalid input is returned as an error
// before any work is done; solver failures are reported through the
// result status with the initial parameters as solution.
func (f *Fitter) ComputeBestFitCapsule(set geom.PolyhedronSet, init geom.Params) (*FitResult, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if err := init.Validate(); err != nil {
		return nil, err
	}
	points := set.Points()
	fr := newFrame(points)
	scale := fr.length

	constraints := make([]nlp.Constraint, 0, len(points))
	for i, p := range points {
		constraints = append(constraints, nlp.Constraint{
			Name:     fmt.Sprintf("distance to point %d", i),
			Function: unitFunction{fn: PointDistance{Point: p}, fr: fr},
			Scale:    1 / scale,
			Interval: nlp.UpperBound(0),
		})
	}
	problem := nlp.Problem{
		Objective:      unitFunction{fn: Volume{}, fr: fr},
		ObjectiveScale: 1 / (scale * scale * scale),
		Constraints:    constraints,
		Bounds:         radiusBounds(),
		Start:          fr.toUnit(init),
	}
	f.state = ProblemBuilt
	f.logf("built problem: %d point constraints, scale %.4g", len(constraints), scale)
	return f.solve(problem, init, fr), nil
}

// ComputeBestFitCapsulePolyhedra fits a capsule around convex polyhedra
// using the collision engine: per polyhedron the axis must not leave it
// (segment distance at most zero) and the polyhedron must not stick out of
// the capsule. Without WithEngine the default exact engine is used.
func (f *Fitter) ComputeBestFitCapsulePolyhedra(polys []*collision.Polyhedron, init geom.Params) (*FitResult, error) {
	if len(polys) == 0 {
		return nil, fmt.Errorf("%w: no polyhedra", geom.ErrInvalidInput)
	}
	var all []geom.Point
	for i, p := range polys {
		if p == nil || len(p.Vertices) == 0 {
			return nil, fmt.Errorf("%w: polyhedron %d is empty", geom.ErrInvalidInput, i)
		}
		all = append(all, p.Vertices...)
	}
	if err := init.Validate(); err != nil {
		return nil, err
	}
	engine := f.engine
	if engine == nil {
		engine = collision.DefaultEngine()
	}
	fr := newFrame(all)
	scale := fr.length
	step := f.scaledFDStep(scale)

	constraints := make([]nlp.Constraint, 0, 2*len(polys))
	for i, p := range polys {
		seg := SegmentPolyhedronDistance{Polyhedron: p, Engine: engine, Step: step}
		enc := CapsulePolyhedronDistance{Polyhedron: p, Engine: engine, Step: step}
		constraints = append(constraints,
			nlp.Constraint{
				Name:     fmt.Sprintf("segment to polyhedron %d", i),
				Function: unitFunction{fn: seg, fr: fr},
				Scale:    -1 / scale,
				Interval: nlp.LowerBound(0),
			},
			nlp.Constraint{
				Name:     fmt.Sprintf("capsule to polyhedron %d", i),
				Function: unitFunction{fn: enc, fr: fr},
				Scale:    1 / scale,
				Interval: nlp.UpperBound(0),
			})
	}
	problem := nlp.Problem{
		Objective:      unitFunction{fn: Volume{}, fr: fr},
		ObjectiveScale: 1 / (scale * scale * scale),
		Constraints:    constraints,
		Bounds:         radiusBounds(),
		Start:          fr.toUnit(init),
	}
	f.state = ProblemBuilt
	f.logf("built problem: %d polyhedra, detectors %v, scale %.4g", len(polys), engine.Detectors(), scale)
	return f.solve(problem, init, fr), nil
}

// solve runs the solver on the dimensionless problem and applies the result
// policy in physical units.
func (f *Fitter) solve(problem nlp.Problem, init geom.Params, fr frame) *FitResult {
	started := time.Now()
	res := &FitResult{
		Solver:         f.solver.Name(),
		InitParams:     init,
		InitVolume:     CapsuleVolume(init),
		SolutionParams: init,
		SolutionVolume: CapsuleVolume(init),
		Constraints:    len(problem.Constraints),
	}
	f.result = res

	// A collaborator that cannot evaluate the start point would otherwise
	// surface as an opaque solver failure.
	for _, c := range problem.Constraints {
		if _, err := c.Function.Evaluate(problem.Start); err != nil {
			res.Status = nlp.SolverError
			res.Err = fmt.Errorf("evaluate %s at start: %w", c.Name, err)
			res.Duration = time.Since(started)
			f.state = Failed
			f.logf("%v", res.Err)
			return res
		}
	}

	f.state = Solving
	out := f.solver.Solve(problem)
	res.Status = out.Status
	res.MaxViolation = out.MaxViolation
	res.Iterations = out.Iterations
	res.Evaluations = out.Evaluations
	res.History = out.History
	res.Warnings = out.Warnings
	res.Err = out.Err
	res.Duration = time.Since(started)

	if !out.Status.Accepted() {
		f.state = Failed
		f.logf("%s: %s after %d iterations, keeping initial parameters (%v)", res.Solver, out.Status, out.Iterations, out.Err)
		return res
	}
	sol, err := geom.ParamsFromSlice(fr.fromUnit(out.X))
	if err == nil {
		// The radius bound is only met to the feasibility tolerance.
		sol[6] = math.Max(sol[6], 0)
		err = sol.Validate()
	}
	if err != nil {
		res.Status = nlp.SolverError
		res.Err = fmt.Errorf("solver returned unusable point: %w", err)
		f.state = Failed
		return res
	}
	res.SolutionParams = sol
	res.SolutionVolume = CapsuleVolume(sol)
	f.state = Solved
	f.logf("%s: %s in %d iterations, volume %.6g -> %.6g", res.Solver, out.Status, out.Iterations, res.InitVolume, res.SolutionVolume)
	return res
}
