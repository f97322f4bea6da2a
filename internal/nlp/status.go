package nlp

// Status is the outcome classification of a solve.
type Status int

const (
	// Optimal means the convergence tests passed with a feasible point.
	Optimal Status = iota
	// OptimalWithWarnings means a feasible point was reached but some
	// convergence test did not pass cleanly.
	OptimalWithWarnings
	// NoSolution means no feasible point was found.
	NoSolution
	// SolverError means the solver failed, e.g. an evaluation error or a
	// non-finite value.
	SolverError
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case OptimalWithWarnings:
		return "optimal_with_warnings"
	case NoSolution:
		return "no_solution"
	case SolverError:
		return "solver_error"
	default:
		return "unknown"
	}
}

// Accepted reports whether the result may be used as a solution.
func (s Status) Accepted() bool {
	return s == Optimal || s == OptimalWithWarnings
}

// Iterate records the state at the end of one outer iteration.
type Iterate struct {
	Outer        int
	Objective    float64
	MaxViolation float64
	Penalty      float64
	InnerIters   int
}

// Result is the outcome of Solver.Solve.
type Result struct {
	Status Status
	// X is the final point. On SolverError it is the last finite point,
	// which may be the start point.
	X     []float64
	Value float64
	// MaxViolation is the largest constraint violation at X.
	MaxViolation float64
	// Iterations counts outer iterations; InnerIterations sums the major
	// iterations of every inner minimisation.
	Iterations      int
	InnerIterations int
	Evaluations     int
	History         []Iterate
	Warnings        []string
	// Err is set when Status is SolverError.
	Err error
}
