package mesh

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func unitSquare() ([]r3.Vec, []Face, []float64) {
	return []r3.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}},
		[]Face{{0, 1, 2}, {1, 3, 2}},
		[]float64{0, 1, 1, 2}
}

func TestNew(t *testing.T) {
	v, f, d := unitSquare()
	m, err := New(v, f, d)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Len())
	assert.Equal(t, 2.0, m.MaxField())
}

func TestValidate(t *testing.T) {
	v, f, d := unitSquare()

	tests := []struct {
		name  string
		mesh  *Mesh
		field string
	}{
		{"MissingVertices", &Mesh{Faces: f, Field: d}, "vertices"},
		{"EmptyVertices", &Mesh{Vertices: []r3.Vec{}, Faces: f, Field: d}, "vertices"},
		{"MissingFaces", &Mesh{Vertices: v, Field: d}, "faces"},
		{"MissingField", &Mesh{Vertices: v, Faces: f}, "field"},
		{"FieldLength", &Mesh{Vertices: v, Faces: f, Field: d[:3]}, "field"},
		{"FaceRange", &Mesh{Vertices: v, Faces: []Face{{0, 1, 4}}, Field: d}, "faces"},
		{"NegativeIndex", &Mesh{Vertices: v, Faces: []Face{{-1, 1, 2}}, Field: d}, "faces"},
		{"NaNField", &Mesh{Vertices: v, Faces: f, Field: []float64{0, math.NaN(), 1, 2}}, "field"},
		{"InfVertex", &Mesh{Vertices: []r3.Vec{{X: math.Inf(1)}, {}, {}, {}}, Faces: f, Field: d}, "vertices"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mesh.Validate()
			var im *ErrInvalidMesh
			require.ErrorAs(t, err, &im)
			assert.Equal(t, tt.field, im.Field)
		})
	}
}

func TestValidate_EmptyFacesAllowed(t *testing.T) {
	_, err := New([]r3.Vec{{}}, []Face{}, []float64{0})
	require.NoError(t, err)
}

func TestPayload_RoundTrip(t *testing.T) {
	v, f, d := unitSquare()
	m, err := New(v, f, d)
	require.NoError(t, err)

	p := PayloadFrom("item-1", m)
	assert.Equal(t, "item-1", p.ID)
	assert.Equal(t, []float64{1, 1, 0}, p.Vertices[3])

	back, err := p.Mesh()
	require.NoError(t, err)
	assert.Equal(t, m.Vertices, back.Vertices)
	assert.Equal(t, m.Faces, back.Faces)
	assert.Equal(t, m.Field, back.Field)
}

func TestPayload_Missing(t *testing.T) {
	p := &Payload{Vertices: [][]float64{{0, 0, 0}}, Faces: [][]int{}}
	_, err := p.Mesh()
	var im *ErrInvalidMesh
	require.ErrorAs(t, err, &im)
	assert.Equal(t, "field", im.Field)
}

func TestPayload_TupleArity(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		field  string
		reason string
	}{
		{
			name:   "ShortVertex",
			data:   `{"vertices":[[0,0],[1,0,0],[0,1,0]],"faces":[[0,1,2]],"u_vfaOut":[0,1,1]}`,
			field:  "vertices",
			reason: "vertex 0 has 2 components",
		},
		{
			name:   "LongVertex",
			data:   `{"vertices":[[0,0,0],[1,0,0,9],[0,1,0]],"faces":[[0,1,2]],"u_vfaOut":[0,1,1]}`,
			field:  "vertices",
			reason: "vertex 1 has 4 components",
		},
		{
			name:   "ShortFace",
			data:   `{"vertices":[[0,0,0],[1,0,0],[0,1,0]],"faces":[[0,1]],"u_vfaOut":[0,1,1]}`,
			field:  "faces",
			reason: "face 0 has 2 indices",
		},
		{
			name:   "LongFace",
			data:   `{"vertices":[[0,0,0],[1,0,0],[0,1,0]],"faces":[[0,1,2],[0,1,2,0]],"u_vfaOut":[0,1,1]}`,
			field:  "faces",
			reason: "face 1 has 4 indices",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Payload
			require.NoError(t, json.Unmarshal([]byte(tt.data), &p))

			_, err := p.Mesh()
			var im *ErrInvalidMesh
			require.ErrorAs(t, err, &im)
			assert.Equal(t, tt.field, im.Field)
			assert.Equal(t, tt.reason, im.Reason)
		})
	}
}

func TestSubset(t *testing.T) {
	v, f, d := unitSquare()
	m, err := New(v, f, d)
	require.NoError(t, err)

	pos, vals := m.Subset([]int{3, 0})
	assert.Equal(t, []r3.Vec{{X: 1, Y: 1}, {}}, pos)
	assert.Equal(t, []float64{2, 0}, vals)
}
