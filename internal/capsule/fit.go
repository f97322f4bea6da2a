package capsule

import (
	"context"
	"fmt"

	"github.com/banshee-data/capsulefit/internal/collision"
	"github.com/banshee-data/capsulefit/internal/geom"
	"github.com/banshee-data/capsulefit/internal/geom/hull"
	"github.com/banshee-data/capsulefit/internal/nlp"
	"golang.org/x/sync/errgroup"
)

// FitOptions configures Fit and FitEach. The zero value fits with the
// default solver, reduces to the convex hull and seeds with
// BoundingCapsule.
type FitOptions struct {
	// Init is an explicit initial guess. Nil means the heuristic seed.
	Init *geom.Params
	// KeepInterior disables convex-hull reduction of the constraint set.
	KeepInterior bool
	// Solver names a registry entry; empty means nlp.DefaultSolver.
	Solver string
	// Settings are passed to the solver factory. Zero means
	// nlp.DefaultSettings.
	Settings *nlp.Settings
	// Registry resolves Solver; nil means nlp.NewRegistry().
	Registry *nlp.Registry
	// Polyhedra fits against convex polyhedra with the collision engine
	// instead of point constraints.
	Polyhedra bool
	Engine    *collision.Engine
	FDStep    float64
	Logf      func(format string, v ...interface{})
}

func (o FitOptions) newFitter() (*Fitter, error) {
	reg := o.Registry
	if reg == nil {
		reg = nlp.NewRegistry()
	}
	name := o.Solver
	if name == "" {
		name = nlp.DefaultSolver
	}
	settings := nlp.DefaultSettings()
	if o.Settings != nil {
		settings = *o.Settings
	}
	solver, err := reg.New(name, settings)
	if err != nil {
		return nil, err
	}
	opts := []Option{WithEngine(o.Engine), WithFDStep(o.FDStep)}
	if o.Logf != nil {
		opts = append(opts, WithLogger(o.Logf))
	}
	return NewFitter(solver, opts...), nil
}

// Fit runs one complete fit of set with opts.
func Fit(set geom.PolyhedronSet, opts FitOptions) (*FitResult, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	f, err := opts.newFitter()
	if err != nil {
		return nil, err
	}

	var init geom.Params
	if opts.Init != nil {
		init = *opts.Init
	} else if init, err = InitialParams(set, !opts.KeepInterior); err != nil {
		return nil, err
	}

	if opts.Polyhedra {
		polys, err := collision.NewPolyhedra(set)
		if err != nil {
			return nil, fmt.Errorf("build polyhedra: %w", err)
		}
		return f.ComputeBestFitCapsulePolyhedra(polys, init)
	}
	if !opts.KeepInterior {
		set = hull.ReduceSet(set)
	}
	return f.ComputeBestFitCapsule(set, init)
}

// FitEach fits every set independently with up to workers concurrent fits
// (workers < 1 means one). Results are index-aligned with sets. The first
// input error stops scheduling and is returned; ctx cancellation also stops
// scheduling but never interrupts a running fit.
func FitEach(ctx context.Context, sets []geom.PolyhedronSet, opts FitOptions, workers int) ([]*FitResult, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]*FitResult, len(sets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, set := range sets {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := Fit(set, opts)
			if err != nil {
				return fmt.Errorf("set %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
