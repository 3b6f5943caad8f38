package mesh

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// Face is a triangle given as three vertex indices.
type Face [3]int

// ErrInvalidMesh describes a malformed mesh or field.
type ErrInvalidMesh struct {
	Field  string
	Reason string
}

func (e *ErrInvalidMesh) Error() string {
	return fmt.Sprintf("invalid mesh: %s: %s", e.Field, e.Reason)
}

// Mesh is a validated triangle mesh with one field value per vertex.
// It must not be modified after construction.
type Mesh struct {
	Vertices []r3.Vec
	Faces    []Face
	Field    []float64

	adjOnce sync.Once
	adj     *Adjacency
}

// New validates the input and returns a Mesh that takes ownership of the slices.
func New(vertices []r3.Vec, faces []Face, field []float64) (*Mesh, error) {
	m := &Mesh{
		Vertices: vertices,
		Faces:    faces,
		Field:    field,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks array presence, lengths, index ranges and finiteness.
func (m *Mesh) Validate() error {
	if m.Vertices == nil {
		return &ErrInvalidMesh{Field: "vertices", Reason: "missing"}
	}
	if len(m.Vertices) == 0 {
		return &ErrInvalidMesh{Field: "vertices", Reason: "empty"}
	}
	if m.Faces == nil {
		return &ErrInvalidMesh{Field: "faces", Reason: "missing"}
	}
	if m.Field == nil {
		return &ErrInvalidMesh{Field: "field", Reason: "missing"}
	}
	if len(m.Field) != len(m.Vertices) {
		return &ErrInvalidMesh{
			Field:  "field",
			Reason: fmt.Sprintf("length %d does not match %d vertices", len(m.Field), len(m.Vertices)),
		}
	}

	for i, v := range m.Vertices {
		if !finite(v.X) || !finite(v.Y) || !finite(v.Z) {
			return &ErrInvalidMesh{Field: "vertices", Reason: fmt.Sprintf("vertex %d is not finite", i)}
		}
	}
	for i, f := range m.Field {
		if !finite(f) {
			return &ErrInvalidMesh{Field: "field", Reason: fmt.Sprintf("value %d is not finite", i)}
		}
	}

	n := len(m.Vertices)
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return &ErrInvalidMesh{
					Field:  "faces",
					Reason: fmt.Sprintf("face %d references vertex %d out of range [0,%d)", i, idx, n),
				}
			}
		}
	}

	return nil
}

// Len returns the number of vertices.
func (m *Mesh) Len() int { return len(m.Vertices) }

// Adjacency returns the face adjacency of the mesh, built on first use.
func (m *Mesh) Adjacency() *Adjacency {
	m.adjOnce.Do(func() {
		m.adj = FaceAdjacency(len(m.Vertices), m.Faces)
	})
	return m.adj
}

// MaxField returns the largest field value.
func (m *Mesh) MaxField() float64 {
	maxVal := math.Inf(-1)
	for _, f := range m.Field {
		if f > maxVal {
			maxVal = f
		}
	}
	return maxVal
}

// Subset returns the positions and field values of the given vertices, in order.
func (m *Mesh) Subset(indices []int) ([]r3.Vec, []float64) {
	pos := make([]r3.Vec, len(indices))
	vals := make([]float64, len(indices))
	for i, idx := range indices {
		pos[i] = m.Vertices[idx]
		vals[i] = m.Field[idx]
	}
	return pos, vals
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
