// Package nlp is the nonlinear-programming layer used by the capsule fitter.
//
// Responsibilities: describe a smooth constrained minimisation problem
// (objective, interval constraints, variable bounds), solve it, and report
// a status plus per-iteration history.
//
// Key types: Problem, Constraint, Interval, Solver, Result, Registry.
//
// The built-in solvers wrap gonum/optimize unconstrained methods in a
// Powell-Hestenes-Rockafellar augmented Lagrangian outer loop.
//
// Dependency rule: nlp knows nothing about capsules or geometry.
package nlp
