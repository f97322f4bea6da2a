package nlp

import "fmt"

// Settings controls the augmented Lagrangian solvers.
type Settings struct {
	// FeasibilityTolerance is the largest accepted constraint violation.
	FeasibilityTolerance float64
	// OptimalityTolerance bounds the change of the scaled objective
	// (ObjectiveScale·f) between outer iterations, relative to
	// max(1, |ObjectiveScale·f|), below which the solve is converged.
	OptimalityTolerance float64
	MaxOuterIterations  int
	// MaxInnerIterations caps major iterations of each inner minimisation.
	MaxInnerIterations int
	InitialPenalty     float64
	PenaltyGrowth      float64
	MaxPenalty         float64
	// Logf receives one line per outer iteration. Nil is silent.
	Logf func(format string, v ...interface{})
}

// DefaultSettings returns the settings used when no configuration is given.
func DefaultSettings() Settings {
	return Settings{
		FeasibilityTolerance: 1e-6,
		OptimalityTolerance:  1e-8,
		MaxOuterIterations:   100,
		MaxInnerIterations:   500,
		InitialPenalty:       10,
		PenaltyGrowth:        10,
		MaxPenalty:           1e10,
	}
}

// Validate reports the first out-of-range field.
func (s Settings) Validate() error {
	switch {
	case !(s.FeasibilityTolerance > 0):
		return fmt.Errorf("feasibility tolerance must be positive, got %g", s.FeasibilityTolerance)
	case !(s.OptimalityTolerance > 0):
		return fmt.Errorf("optimality tolerance must be positive, got %g", s.OptimalityTolerance)
	case s.MaxOuterIterations < 1:
		return fmt.Errorf("max outer iterations must be at least 1, got %d", s.MaxOuterIterations)
	case s.MaxInnerIterations < 1:
		return fmt.Errorf("max inner iterations must be at least 1, got %d", s.MaxInnerIterations)
	case !(s.InitialPenalty > 0):
		return fmt.Errorf("initial penalty must be positive, got %g", s.InitialPenalty)
	case !(s.PenaltyGrowth > 1):
		return fmt.Errorf("penalty growth must exceed 1, got %g", s.PenaltyGrowth)
	case s.MaxPenalty < s.InitialPenalty:
		return fmt.Errorf("max penalty %g is below initial penalty %g", s.MaxPenalty, s.InitialPenalty)
	}
	return nil
}
