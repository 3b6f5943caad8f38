package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Payload is the wire record of one work item.
//
// Field uses the key "u_vfaOut", the name the upstream geodesic solver emits.
// Vertices and faces are decoded as plain lists so that tuples of the wrong
// arity are reported instead of padded or truncated.
type Payload struct {
	ID       string      `json:"id,omitempty" msgpack:"id,omitempty"`
	Vertices [][]float64 `json:"vertices" msgpack:"vertices"`
	Faces    [][]int     `json:"faces" msgpack:"faces"`
	Field    []float64   `json:"u_vfaOut" msgpack:"u_vfaOut"`
}

// Mesh converts and validates the payload.
func (p *Payload) Mesh() (*Mesh, error) {
	var vertices []r3.Vec
	if p.Vertices != nil {
		vertices = make([]r3.Vec, len(p.Vertices))
		for i, v := range p.Vertices {
			if len(v) != 3 {
				return nil, &ErrInvalidMesh{Field: "vertices", Reason: fmt.Sprintf("vertex %d has %d components", i, len(v))}
			}
			vertices[i] = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
		}
	}

	var faces []Face
	if p.Faces != nil {
		faces = make([]Face, len(p.Faces))
		for i, f := range p.Faces {
			if len(f) != 3 {
				return nil, &ErrInvalidMesh{Field: "faces", Reason: fmt.Sprintf("face %d has %d indices", i, len(f))}
			}
			faces[i] = Face{f[0], f[1], f[2]}
		}
	}

	var field []float64
	if p.Field != nil {
		field = make([]float64, len(p.Field))
		copy(field, p.Field)
	}

	return New(vertices, faces, field)
}

// PayloadFrom builds the wire record of a mesh.
func PayloadFrom(id string, m *Mesh) *Payload {
	p := &Payload{
		ID:       id,
		Vertices: make([][]float64, len(m.Vertices)),
		Faces:    make([][]int, len(m.Faces)),
		Field:    make([]float64, len(m.Field)),
	}
	for i, v := range m.Vertices {
		p.Vertices[i] = []float64{v.X, v.Y, v.Z}
	}
	for i, f := range m.Faces {
		p.Faces[i] = []int{f[0], f[1], f[2]}
	}
	copy(p.Field, m.Field)
	return p
}
