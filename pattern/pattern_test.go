package pattern

import (
	"encoding/json"
	"testing"

	"github.com/hupe1980/stitchgo/mesh"
	"github.com/hupe1980/stitchgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestAssemble_UnitSquare(t *testing.T) {
	p := Assemble(testutil.UnitSquare())

	assert.Equal(t, 0, p.SeedVertex)
	assert.Equal(t, 3, p.MaxVertex)
	assert.Equal(t, []Edge{{0, 1}, {1, 2}, {2, 3}}, p.RowEdges)
	assert.Equal(t, []Edge{{1, 1}, {2, 2}}, p.ColEdges)
	require.Len(t, p.Stitches, 4)
	assert.Equal(t, Stitch{VertexIndex: 3, Position: [3]float64{1, 1, 0}, Distance: 2}, p.Stitches[3])
}

func TestAssemble_EdgeCounts(t *testing.T) {
	rng := testutil.NewRNG(3)

	for _, n := range []int{1, 2, 3, 10, 257} {
		m := testutil.RandomCloud(rng, n)
		p := Assemble(m)

		assert.Len(t, p.Stitches, n)
		if n >= 2 {
			assert.Len(t, p.RowEdges, n-1)
			assert.Len(t, p.ColEdges, n-2)
		} else {
			assert.Empty(t, p.RowEdges)
			assert.Empty(t, p.ColEdges)
		}
		for i, s := range p.Stitches {
			assert.Equal(t, i, s.VertexIndex)
		}
	}
}

func TestAssemble_SeedTies(t *testing.T) {
	m, err := mesh.New(
		[]r3.Vec{{}, {X: 1}, {X: 2}, {X: 3}},
		[]mesh.Face{},
		[]float64{3, 1, 1, 3},
	)
	require.NoError(t, err)

	p := Assemble(m)
	assert.Equal(t, 1, p.SeedVertex)
	assert.Equal(t, 0, p.MaxVertex)
}

func TestAssemble_SeedIsArgMin(t *testing.T) {
	rng := testutil.NewRNG(11)
	for trial := 0; trial < 10; trial++ {
		m := testutil.RandomCloud(rng, 100)
		p := Assemble(m)
		for _, f := range m.Field {
			assert.LessOrEqual(t, m.Field[p.SeedVertex], f)
		}
	}
}

func TestPattern_JSON(t *testing.T) {
	p := Assemble(testutil.UnitSquare())

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.ElementsMatch(t, []string{"seed_vertex", "row_edges", "col_edges", "stitches"}, keys(raw))
	assert.Equal(t, []any{0.0, 1.0}, raw["row_edges"].([]any)[0])

	stitch := raw["stitches"].([]any)[1].(map[string]any)
	assert.Equal(t, 1.0, stitch["vertex_index"])
	assert.Equal(t, []any{1.0, 0.0, 0.0}, stitch["position"])
	assert.Equal(t, 1.0, stitch["distance"])
}

func TestPattern_JSONEmptyEdges(t *testing.T) {
	m, err := mesh.New([]r3.Vec{{}}, []mesh.Face{}, []float64{0})
	require.NoError(t, err)

	data, err := json.Marshal(Assemble(m))
	require.NoError(t, err)
	assert.JSONEq(t, `{"seed_vertex":0,"row_edges":[],"col_edges":[],"stitches":[{"vertex_index":0,"position":[0,0,0],"distance":0}]}`, string(data))
}

func TestArgMinMax_Empty(t *testing.T) {
	assert.Equal(t, -1, ArgMin(nil))
	assert.Equal(t, -1, ArgMax(nil))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
