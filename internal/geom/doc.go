// Package geom owns the geometry kernel of the capsule fitter.
//
// Responsibilities: point and polyhedron types, the 7-value capsule
// parameter vector, point-to-segment distance and projection.
// Key types: Point, Polyhedron, PolyhedronSet, Params, Capsule.
//
// Dependency rule: geom depends on nothing above it. The hull subpackage
// may depend on geom; geom never imports hull.
package geom
