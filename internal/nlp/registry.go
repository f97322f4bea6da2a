package nlp

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/optimize"
)

// ErrUnknownSolver is returned by Registry.New for an unregistered name.
var ErrUnknownSolver = errors.New("nlp: unknown solver")

// DefaultSolver is the name of the solver used when none is configured.
const DefaultSolver = "auglag-lbfgs"

// Factory builds a solver from settings.
type Factory func(settings Settings) Solver

// Registry maps solver names to factories. The zero value is not usable;
// call NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry preloaded with the built-in solvers.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(DefaultSolver, methodFactory(DefaultSolver, func() optimize.Method { return &optimize.LBFGS{} }))
	r.Register("auglag-bfgs", methodFactory("auglag-bfgs", func() optimize.Method { return &optimize.BFGS{} }))
	r.Register("auglag-neldermead", methodFactory("auglag-neldermead", func() optimize.Method { return &optimize.NelderMead{} }))
	return r
}

func methodFactory(name string, method func() optimize.Method) Factory {
	return func(settings Settings) Solver {
		return NewAugmentedLagrangian(name, method, settings)
	}
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New builds the named solver.
func (r *Registry) New(name string, settings Settings) (Solver, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownSolver, name, r.Names())
	}
	return f(settings), nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
