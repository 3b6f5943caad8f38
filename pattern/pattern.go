// Package pattern assembles the serializable stitch graph of a mesh.
//
// The assembly follows global vertex order: stitch i is linked to stitch
// i-1 by a row edge, and consecutive row edges are joined by a column edge.
// These sequential links are unrelated to the geometric rows of package
// isoline and the column potentials of package crossfield.
package pattern

import (
	"github.com/hupe1980/stitchgo/mesh"
)

// Edge links two stitches by vertex index.
type Edge [2]int

// Stitch is one crochet stitch, one per mesh vertex.
type Stitch struct {
	VertexIndex int        `json:"vertex_index" msgpack:"vertex_index"`
	Position    [3]float64 `json:"position" msgpack:"position"`
	Distance    float64    `json:"distance" msgpack:"distance"`
}

// Pattern is the stitch graph produced for one mesh.
type Pattern struct {
	// SeedVertex is the vertex with the smallest field value.
	SeedVertex int `json:"seed_vertex" msgpack:"seed_vertex"`
	// MaxVertex is the vertex with the largest field value. It is not part
	// of the serialized pattern.
	MaxVertex int `json:"-" msgpack:"-"`

	RowEdges []Edge   `json:"row_edges" msgpack:"row_edges"`
	ColEdges []Edge   `json:"col_edges" msgpack:"col_edges"`
	Stitches []Stitch `json:"stitches" msgpack:"stitches"`
}

// Assemble builds the pattern of m.
func Assemble(m *mesh.Mesh) *Pattern {
	n := m.Len()

	p := &Pattern{
		SeedVertex: ArgMin(m.Field),
		MaxVertex:  ArgMax(m.Field),
		RowEdges:   make([]Edge, 0, max(n-1, 0)),
		ColEdges:   make([]Edge, 0, max(n-2, 0)),
		Stitches:   make([]Stitch, 0, n),
	}

	for i, v := range m.Vertices {
		p.Stitches = append(p.Stitches, Stitch{
			VertexIndex: i,
			Position:    [3]float64{v.X, v.Y, v.Z},
			Distance:    m.Field[i],
		})
		if i > 0 {
			p.RowEdges = append(p.RowEdges, Edge{i - 1, i})
		}
	}

	for k := 0; k+1 < len(p.RowEdges); k++ {
		p.ColEdges = append(p.ColEdges, Edge{p.RowEdges[k][1], p.RowEdges[k+1][0]})
	}

	return p
}

// ArgMin returns the index of the smallest value, the lowest index on ties,
// or -1 for an empty slice.
func ArgMin(values []float64) int {
	best := -1
	for i, v := range values {
		if best < 0 || v < values[best] {
			best = i
		}
	}
	return best
}

// ArgMax returns the index of the largest value, the lowest index on ties,
// or -1 for an empty slice.
func ArgMax(values []float64) int {
	best := -1
	for i, v := range values {
		if best < 0 || v > values[best] {
			best = i
		}
	}
	return best
}
