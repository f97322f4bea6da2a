// Package collision answers distance queries between capsule parts and
// convex polyhedra.
//
// Responsibilities: build convex polyhedra from point sets, compute signed
// segment-to-polyhedron distances, compute how far a polyhedron sticks out
// of a capsule, and tessellate capsules for export.
//
// Key types: Polyhedron, Report, Detector, Engine.
//
// Detectors are passed to NewEngine explicitly. There is no package-level
// registry; two engines never share configuration.
//
// Dependency rule: collision may import geom and geom/hull, never the
// fitter.
package collision
