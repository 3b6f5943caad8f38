// Package stitchgo turns a triangulated surface with a geodesic distance
// field into a crochet stitch pattern.
//
// The field is sliced into rows along evenly spaced isolines (package
// isoline). Within every row a column potential orthogonal to the field
// gradient is fitted with L-BFGS (package crossfield), which orders the
// row's stitches. Finally the stitch graph is assembled (package pattern).
//
// # Quick Start
//
//	m, _ := mesh.New(vertices, faces, field)
//	gen, _ := stitchgo.New(stitchgo.WithYarnWidth(0.03))
//	res, _ := gen.Generate(ctx, m)
//	json.NewEncoder(os.Stdout).Encode(res.Pattern)
//
// # Rows and Columns
//
// Result.Rows holds one entry per isoline value k*w, empty rows included.
// Result.Columns is index-aligned with it: rows with at least two vertices
// carry a Potential and the global vertex Order it induces, smaller rows
// are marked Skipped.
//
// # Errors
//
// Generate distinguishes three outcomes:
//
//   - *ErrInvalidInput: the mesh, field or yarn width cannot be processed.
//     No result is returned.
//   - Row failures: a row solve hit its iteration, evaluation or runtime
//     cap. The row is listed in Result.Failures with an *ErrNonconvergence
//     and everything else is still produced.
//   - Degenerate geometry: vertices with fewer than two row neighbors get a
//     zero gradient. They are counted in Column.Degenerate and
//     Result.DegenerateVertices and logged at warn level.
//
// # Concurrency
//
// Rows are independent. WithConcurrency solves several rows in parallel;
// results are slotted by row index, so the output does not depend on the
// degree of parallelism.
//
// # Serving
//
// Package driver wraps a Generator in a queue loop with a job ledger, an
// artifact store and notifications; cmd/stitchgo is the CLI around it.
package stitchgo
