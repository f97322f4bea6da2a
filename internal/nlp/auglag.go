package nlp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// Solver minimises a Problem.
type Solver interface {
	Name() string
	Solve(p Problem) Result
}

// AugmentedLagrangian solves inequality-constrained problems with a
// Powell-Hestenes-Rockafellar outer loop around a gonum/optimize method.
type AugmentedLagrangian struct {
	name     string
	method   func() optimize.Method
	settings Settings
}

// NewAugmentedLagrangian builds a solver. method is called once per inner
// minimisation so stateful methods start fresh each time.
func NewAugmentedLagrangian(name string, method func() optimize.Method, settings Settings) *AugmentedLagrangian {
	return &AugmentedLagrangian{name: name, method: method, settings: settings}
}

// Name returns the registry name of the solver.
func (s *AugmentedLagrangian) Name() string { return s.name }

// Settings returns the solver settings.
func (s *AugmentedLagrangian) Settings() Settings { return s.settings }

// lagrangian evaluates the PHR merit function for fixed multipliers and
// penalty. The first evaluation error is kept in err and poisons the
// merit value with NaN so the inner method stops.
type lagrangian struct {
	p       Problem
	ineqs   []inequality
	scale   float64
	lambda  []float64
	rho     float64
	scratch []float64
	h       []float64
	evals   int
	err     error
}

func (l *lagrangian) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}

func (l *lagrangian) value(x []float64) float64 {
	l.evals++
	f, err := l.p.Objective.Evaluate(x)
	if err != nil {
		l.fail(fmt.Errorf("objective: %w", err))
		return math.NaN()
	}
	sum := l.scale * f
	for j, q := range l.ineqs {
		h, err := q.value(x)
		if err != nil {
			l.fail(err)
			return math.NaN()
		}
		t := l.lambda[j] + l.rho*h
		if t > 0 {
			sum += (t*t - l.lambda[j]*l.lambda[j]) / (2 * l.rho)
		} else {
			sum -= l.lambda[j] * l.lambda[j] / (2 * l.rho)
		}
	}
	return sum
}

func (l *lagrangian) gradient(grad, x []float64) {
	for i := range grad {
		grad[i] = 0
		l.scratch[i] = 0
	}
	if err := l.p.Objective.Gradient(l.scratch, x); err != nil {
		l.fail(fmt.Errorf("objective gradient: %w", err))
		floats.AddConst(math.NaN(), grad)
		return
	}
	floats.AddScaled(grad, l.scale, l.scratch)
	for j, q := range l.ineqs {
		h, err := q.value(x)
		if err != nil {
			l.fail(err)
			floats.AddConst(math.NaN(), grad)
			return
		}
		w := l.lambda[j] + l.rho*h
		if w <= 0 {
			continue
		}
		if err := q.addGradient(grad, l.scratch, x, w); err != nil {
			l.fail(err)
			floats.AddConst(math.NaN(), grad)
			return
		}
	}
}

// measure evaluates the constraint values at x into l.h and returns the
// unscaled objective and the maximum violation.
func (l *lagrangian) measure(x []float64) (f, viol float64, err error) {
	f, err = l.p.Objective.Evaluate(x)
	if err != nil {
		return 0, 0, fmt.Errorf("objective: %w", err)
	}
	for j, q := range l.ineqs {
		h, err := q.value(x)
		if err != nil {
			return 0, 0, err
		}
		l.h[j] = h
		if h > viol {
			viol = h
		}
	}
	if math.IsNaN(f) || math.IsNaN(viol) {
		return f, viol, errors.New("non-finite value at iterate")
	}
	return f, viol, nil
}

// Solve runs the outer loop until the iterate is feasible and the
// objective has settled, or until the iteration limit.
func (s *AugmentedLagrangian) Solve(p Problem) Result {
	start := append([]float64(nil), p.Start...)
	res := Result{Status: SolverError, X: start}
	if err := p.Validate(); err != nil {
		res.Err = err
		return res
	}
	if err := s.settings.Validate(); err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrInvalidProblem, err)
		return res
	}
	logf := s.settings.Logf
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}

	n := len(start)
	l := &lagrangian{
		p:       p,
		ineqs:   p.inequalities(),
		scale:   p.objectiveScale(),
		rho:     s.settings.InitialPenalty,
		scratch: make([]float64, n),
	}
	l.lambda = make([]float64, len(l.ineqs))
	l.h = make([]float64, len(l.ineqs))

	x := append([]float64(nil), start...)
	f, viol, err := l.measure(x)
	if err != nil {
		res.Err = err
		return res
	}
	res.Value, res.MaxViolation = f, viol

	prevViol := math.Inf(1)
	prevF := math.NaN()
	converged := false
	var innerErr error
	for k := 1; k <= s.settings.MaxOuterIterations; k++ {
		inner := s.minimize(l, x)
		res.Evaluations = l.evals
		if l.err != nil {
			res.Err = l.err
			return res
		}
		if inner.err != nil && inner.x == nil {
			res.Err = inner.err
			return res
		}
		innerErr = inner.err
		res.InnerIterations += inner.iterations
		if !allFinite(inner.x) {
			res.Err = errors.New("inner minimisation produced a non-finite point")
			return res
		}
		f, viol, err = l.measure(inner.x)
		if err != nil {
			res.Err = err
			return res
		}
		copy(x, inner.x)
		res.X = append(res.X[:0], x...)
		res.Value, res.MaxViolation, res.Iterations = f, viol, k
		res.History = append(res.History, Iterate{
			Outer:        k,
			Objective:    f,
			MaxViolation: viol,
			Penalty:      l.rho,
			InnerIters:   inner.iterations,
		})
		logf("%s outer %d: f=%.6g viol=%.3g rho=%.3g inner=%d", s.name, k, f, viol, l.rho, inner.iterations)

		for j := range l.lambda {
			l.lambda[j] = math.Max(0, l.lambda[j]+l.rho*l.h[j])
		}

		// Convergence is judged on the scaled objective.
		fs := l.scale * f
		if viol <= s.settings.FeasibilityTolerance && k > 1 &&
			math.Abs(fs-prevF) <= s.settings.OptimalityTolerance*math.Max(1, math.Abs(fs)) {
			converged = true
			break
		}
		if viol > 0.25*prevViol && l.rho < s.settings.MaxPenalty {
			l.rho = math.Min(l.rho*s.settings.PenaltyGrowth, s.settings.MaxPenalty)
		}
		prevViol, prevF = viol, fs
	}

	switch {
	case res.MaxViolation > s.settings.FeasibilityTolerance:
		res.Status = NoSolution
	case !converged:
		res.Status = OptimalWithWarnings
		res.Warnings = appendOnce(res.Warnings, "outer iteration limit reached")
		if innerErr != nil {
			res.Warnings = appendOnce(res.Warnings, "inner: "+innerErr.Error())
		}
	case innerErr != nil && !isLinesearchStall(innerErr):
		res.Status = OptimalWithWarnings
		res.Warnings = appendOnce(res.Warnings, "inner: "+innerErr.Error())
	default:
		res.Status = Optimal
	}
	return res
}

// isLinesearchStall reports whether err only says the line search could not
// improve the merit function further. At a converged feasible iterate it is
// treated like an iteration limit.
func isLinesearchStall(err error) bool {
	return errors.Is(err, optimize.ErrLinesearcherFailure) ||
		errors.Is(err, optimize.ErrNoProgress) ||
		errors.Is(err, optimize.ErrNonDescentDirection)
}

type innerResult struct {
	x          []float64
	iterations int
	err        error
}

func (s *AugmentedLagrangian) minimize(l *lagrangian, x []float64) innerResult {
	problem := optimize.Problem{Func: l.value, Grad: l.gradient}
	settings := &optimize.Settings{
		MajorIterations:   s.settings.MaxInnerIterations,
		GradientThreshold: 1e-10,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Relative:   1e-12,
			Iterations: 20,
		},
	}
	r, err := optimize.Minimize(problem, x, settings, s.method())
	if r == nil {
		if err == nil {
			err = errors.New("inner minimisation returned no result")
		}
		return innerResult{err: err}
	}
	// Iteration limits are expected; the outer loop decides convergence.
	if r.Status == optimize.IterationLimit || r.Status == optimize.FunctionEvaluationLimit {
		err = nil
	}
	return innerResult{x: r.X, iterations: r.Stats.MajorIterations, err: err}
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func appendOnce(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
