package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/capsulefit/internal/collision"
	"github.com/banshee-data/capsulefit/internal/nlp"
)

// DefaultConfigPath is the path to the canonical fit defaults file.
const DefaultConfigPath = "config/fit.defaults.json"

// FitConfig holds the solver and fitting parameters. Every field is
// optional; the Get* methods supply the default for fields left unset, so
// partial files are safe.
type FitConfig struct {
	// Solver
	Solver               *string  `json:"solver,omitempty"`
	FeasibilityTolerance *float64 `json:"feasibility_tolerance,omitempty"`
	OptimalityTolerance  *float64 `json:"optimality_tolerance,omitempty"`
	MaxOuterIterations   *int     `json:"max_outer_iterations,omitempty"`
	MaxInnerIterations   *int     `json:"max_inner_iterations,omitempty"`
	InitialPenalty       *float64 `json:"initial_penalty,omitempty"`
	PenaltyGrowth        *float64 `json:"penalty_growth,omitempty"`
	MaxPenalty           *float64 `json:"max_penalty,omitempty"`

	// Problem assembly
	ReduceHull *bool    `json:"reduce_hull,omitempty"`
	Workers    *int     `json:"workers,omitempty"`
	FDStep     *float64 `json:"fd_step,omitempty"`

	// Collision engine (polyhedron fits)
	AllowPenetration *bool    `json:"allow_penetration,omitempty"`
	Detectors        []string `json:"detectors,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultFitConfig returns a FitConfig with every field set to its default.
func DefaultFitConfig() *FitConfig {
	s := nlp.DefaultSettings()
	return &FitConfig{
		Solver:               ptrString(nlp.DefaultSolver),
		FeasibilityTolerance: ptrFloat64(s.FeasibilityTolerance),
		OptimalityTolerance:  ptrFloat64(s.OptimalityTolerance),
		MaxOuterIterations:   ptrInt(s.MaxOuterIterations),
		MaxInnerIterations:   ptrInt(s.MaxInnerIterations),
		InitialPenalty:       ptrFloat64(s.InitialPenalty),
		PenaltyGrowth:        ptrFloat64(s.PenaltyGrowth),
		MaxPenalty:           ptrFloat64(s.MaxPenalty),
		ReduceHull:           ptrBool(true),
		Workers:              ptrInt(1),
		FDStep:               ptrFloat64(1e-6),
		AllowPenetration:     ptrBool(true),
		Detectors:            []string{"exact"},
	}
}

// LoadFitConfig loads a FitConfig from a JSON file. The file must have a
// .json extension and be at most 1MB.
func LoadFitConfig(path string) (*FitConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &FitConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or a parent. Panics if the file cannot be loaded, intended for tests.
func MustLoadDefaultConfig() *FitConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/geom/hull/
	}
	for _, path := range candidates {
		if cfg, err := LoadFitConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *FitConfig) Validate() error {
	if c.Solver != nil && *c.Solver == "" {
		return fmt.Errorf("solver must not be empty")
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.FDStep != nil && !(*c.FDStep > 0) {
		return fmt.Errorf("fd_step must be positive, got %g", *c.FDStep)
	}
	for _, name := range c.Detectors {
		if _, err := collision.DetectorByName(name); err != nil {
			return fmt.Errorf("detectors: %w", err)
		}
	}
	if err := c.SolverSettings().Validate(); err != nil {
		return err
	}
	return nil
}

// GetSolver returns the solver name or the default.
func (c *FitConfig) GetSolver() string {
	if c.Solver == nil {
		return nlp.DefaultSolver
	}
	return *c.Solver
}

// GetReduceHull returns the reduce_hull value or the default.
func (c *FitConfig) GetReduceHull() bool {
	if c.ReduceHull == nil {
		return true // default
	}
	return *c.ReduceHull
}

// GetWorkers returns the workers value or the default.
func (c *FitConfig) GetWorkers() int {
	if c.Workers == nil {
		return 1 // default
	}
	return *c.Workers
}

// GetFDStep returns the fd_step value or the default.
func (c *FitConfig) GetFDStep() float64 {
	if c.FDStep == nil {
		return 1e-6 // default
	}
	return *c.FDStep
}

// GetAllowPenetration returns the allow_penetration value or the default.
func (c *FitConfig) GetAllowPenetration() bool {
	if c.AllowPenetration == nil {
		return true // default
	}
	return *c.AllowPenetration
}

// GetDetectors returns the detector names or the default.
func (c *FitConfig) GetDetectors() []string {
	if len(c.Detectors) == 0 {
		return []string{"exact"}
	}
	return c.Detectors
}

// SolverSettings converts the solver fields to nlp.Settings, starting from
// nlp.DefaultSettings for unset fields.
func (c *FitConfig) SolverSettings() nlp.Settings {
	s := nlp.DefaultSettings()
	if c.FeasibilityTolerance != nil {
		s.FeasibilityTolerance = *c.FeasibilityTolerance
	}
	if c.OptimalityTolerance != nil {
		s.OptimalityTolerance = *c.OptimalityTolerance
	}
	if c.MaxOuterIterations != nil {
		s.MaxOuterIterations = *c.MaxOuterIterations
	}
	if c.MaxInnerIterations != nil {
		s.MaxInnerIterations = *c.MaxInnerIterations
	}
	if c.InitialPenalty != nil {
		s.InitialPenalty = *c.InitialPenalty
	}
	if c.PenaltyGrowth != nil {
		s.PenaltyGrowth = *c.PenaltyGrowth
	}
	if c.MaxPenalty != nil {
		s.MaxPenalty = *c.MaxPenalty
	}
	return s
}

// Engine builds the collision engine described by the config.
func (c *FitConfig) Engine() (*collision.Engine, error) {
	names := c.GetDetectors()
	dets := make([]collision.Detector, 0, len(names))
	for _, name := range names {
		d, err := collision.DetectorByName(name)
		if err != nil {
			return nil, err
		}
		dets = append(dets, d)
	}
	return collision.NewEngine(collision.Config{Detectors: dets, AllowPenetration: c.GetAllowPenetration()})
}
