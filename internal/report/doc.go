// Package report renders fit results for humans: PNG plots (gonum/plot),
// a single-page HTML chart (go-echarts) and STL meshes of the
// fitted capsule.
//
// Responsibilities:
//   - Project point sets into the capsule's axial/radial frame.
//   - Plot solver convergence and the projected points against the capsule
//     outline.
//   - Save the sdfx-tessellated capsule as STL for CAD viewers.
//
// Dependency rule: report reads capsule, collision, geom and nlp types and is
// never imported by them.
package report
