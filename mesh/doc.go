// Package mesh holds the immutable triangle-mesh input of the stitch pipeline:
// vertex positions, faces and the per-vertex geodesic field.
//
// A Mesh is validated once in New and never mutated afterwards. Neighborhood
// structures used by gradient estimation are built from it:
//
//   - FaceAdjacency: true edge adjacency derived from the face list (default)
//   - CoincidentAdjacency: near-duplicate positions, kept for reproducing the
//     legacy behavior; it yields no neighbors on meshes without welded seams
//
// Both are stored as a compact arena (CSR offsets + index lists) and can be
// restricted to a vertex subset with Induced.
package mesh
