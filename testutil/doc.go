// Package testutil provides testing utilities for stitchgo.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe RNG and ready-made meshes with a
// geodesic field attached.
//
// # Fixtures
//
//	m := testutil.UnitSquare()          // 4 vertices, field [0,1,1,2]
//	m := testutil.Grid(10, 10, 0.1)     // planar grid, field = distance to origin
//	m := testutil.Strip(8, 0.1)         // two rows, field = y
//	m := testutil.Disk(8, 24, 0.05)     // rings around a center vertex
//	m := testutil.RandomCloud(rng, 100) // no faces, random field
package testutil
