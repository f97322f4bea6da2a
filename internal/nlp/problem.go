package nlp

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidProblem is returned when a Problem is malformed.
var ErrInvalidProblem = errors.New("nlp: invalid problem")

// Function is a differentiable scalar function of the decision vector.
type Function interface {
	Evaluate(x []float64) (float64, error)
	// Gradient writes df/dx into grad, which has len(x) entries.
	Gradient(grad, x []float64) error
}

// Interval is a closed range. Use math.Inf for an open side.
type Interval struct {
	Lower float64
	Upper float64
}

// Unbounded returns (-inf, +inf).
func Unbounded() Interval { return Interval{Lower: math.Inf(-1), Upper: math.Inf(1)} }

// UpperBound returns (-inf, u].
func UpperBound(u float64) Interval { return Interval{Lower: math.Inf(-1), Upper: u} }

// LowerBound returns [l, +inf).
func LowerBound(l float64) Interval { return Interval{Lower: l, Upper: math.Inf(1)} }

// Constraint requires Lower <= Scale*Function(x) <= Upper.
// A zero Scale is treated as 1.
type Constraint struct {
	Name     string
	Function Function
	Scale    float64
	Interval
}

func (c Constraint) scale() float64 {
	if c.Scale == 0 {
		return 1
	}
	return c.Scale
}

// Problem is a minimisation of Objective subject to Constraints and Bounds.
type Problem struct {
	Objective Function
	// ObjectiveScale multiplies the objective inside the solver. Zero means 1.
	// Reported values are always unscaled.
	ObjectiveScale float64
	Constraints    []Constraint
	// Bounds holds one interval per variable, or is nil for no bounds.
	Bounds []Interval
	Start  []float64
}

func (p Problem) objectiveScale() float64 {
	if p.ObjectiveScale == 0 {
		return 1
	}
	return p.ObjectiveScale
}

// Validate checks the problem is well formed.
func (p Problem) Validate() error {
	if p.Objective == nil {
		return fmt.Errorf("%w: nil objective", ErrInvalidProblem)
	}
	if len(p.Start) == 0 {
		return fmt.Errorf("%w: empty start point", ErrInvalidProblem)
	}
	for i, v := range p.Start {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: start[%d] is not finite", ErrInvalidProblem, i)
		}
	}
	if p.Bounds != nil && len(p.Bounds) != len(p.Start) {
		return fmt.Errorf("%w: %d bounds for %d variables", ErrInvalidProblem, len(p.Bounds), len(p.Start))
	}
	for i, c := range p.Constraints {
		if c.Function == nil {
			return fmt.Errorf("%w: constraint %d has nil function", ErrInvalidProblem, i)
		}
		if c.Lower > c.Upper || math.IsNaN(c.Lower) || math.IsNaN(c.Upper) {
			return fmt.Errorf("%w: constraint %d has empty interval [%g, %g]", ErrInvalidProblem, i, c.Lower, c.Upper)
		}
	}
	for i, b := range p.Bounds {
		if b.Lower > b.Upper || math.IsNaN(b.Lower) || math.IsNaN(b.Upper) {
			return fmt.Errorf("%w: bound %d is empty [%g, %g]", ErrInvalidProblem, i, b.Lower, b.Upper)
		}
	}
	return nil
}

// inequality is one side of a constraint or bound written as h(x) <= 0,
// with h(x) = sign*raw(x) - offset.
type inequality struct {
	name   string
	fn     Function // nil for a variable bound
	index  int      // variable index when fn is nil
	sign   float64
	offset float64
}

// inequalities flattens every finite side of every constraint and bound.
func (p Problem) inequalities() []inequality {
	var out []inequality
	for i, c := range p.Constraints {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("c%d", i)
		}
		s := c.scale()
		if !math.IsInf(c.Upper, 1) {
			out = append(out, inequality{name: name + ".upper", fn: c.Function, sign: s, offset: c.Upper})
		}
		if !math.IsInf(c.Lower, -1) {
			out = append(out, inequality{name: name + ".lower", fn: c.Function, sign: -s, offset: -c.Lower})
		}
	}
	for i, b := range p.Bounds {
		if !math.IsInf(b.Upper, 1) {
			out = append(out, inequality{name: fmt.Sprintf("x%d.upper", i), index: i, sign: 1, offset: b.Upper})
		}
		if !math.IsInf(b.Lower, -1) {
			out = append(out, inequality{name: fmt.Sprintf("x%d.lower", i), index: i, sign: -1, offset: -b.Lower})
		}
	}
	return out
}

func (q inequality) value(x []float64) (float64, error) {
	if q.fn == nil {
		return q.sign*x[q.index] - q.offset, nil
	}
	v, err := q.fn.Evaluate(x)
	if err != nil {
		return 0, fmt.Errorf("constraint %s: %w", q.name, err)
	}
	return q.sign*v - q.offset, nil
}

// addGradient accumulates w * dh/dx into grad. scratch has len(x) entries.
func (q inequality) addGradient(grad, scratch, x []float64, w float64) error {
	if q.fn == nil {
		grad[q.index] += w * q.sign
		return nil
	}
	for i := range scratch {
		scratch[i] = 0
	}
	if err := q.fn.Gradient(scratch, x); err != nil {
		return fmt.Errorf("constraint %s gradient: %w", q.name, err)
	}
	for i, g := range scratch {
		grad[i] += w * q.sign * g
	}
	return nil
}

// MaxViolation returns the largest amount by which x violates any
// constraint or bound of p, or 0 when x is feasible.
func (p Problem) MaxViolation(x []float64) (float64, error) {
	worst := 0.0
	for _, q := range p.inequalities() {
		h, err := q.value(x)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(h) {
			return math.NaN(), nil
		}
		if h > worst {
			worst = h
		}
	}
	return worst, nil
}

// Func adapts a pair of closures to Function.
type Func struct {
	F func(x []float64) (float64, error)
	G func(grad, x []float64) error
}

// Evaluate calls F.
func (f Func) Evaluate(x []float64) (float64, error) { return f.F(x) }

// Gradient calls G.
func (f Func) Gradient(grad, x []float64) error { return f.G(grad, x) }
