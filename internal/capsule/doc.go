// Package capsule fits minimum-volume capsules around point sets.
//
// Responsibilities:
//   - seed: BoundingCapsule produces a feasible starting capsule by PCA.
//   - functions: the volume objective and the distance constraints, each
//     with a gradient.
//   - fitter: assembles the constrained problem, runs an nlp.Solver and
//     applies the result policy (fall back to the seed on failure).
//
// Key types: Fitter, FitResult, Function, Kind, FitOptions.
//
// A capsule is the seven-vector (endpoint1, endpoint2, radius), see
// geom.Params. The solver only finds a local optimum.
//
// Dependency rule: capsule imports geom, geom/hull, collision and nlp.
// Nothing below it imports capsule.
package capsule
