package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRNG_Reset(t *testing.T) {
	rng := NewRNG(4711)
	a := rng.Float64()
	rng.Reset()
	assert.Equal(t, a, rng.Float64())
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestGrid(t *testing.T) {
	m := Grid(3, 2, 0.5)

	assert.Equal(t, 6, m.Len())
	assert.Len(t, m.Faces, 4)
	assert.Equal(t, 0.0, m.Field[0])
	assert.InDelta(t, 1.0, m.Field[2], 1e-12)
	assert.Equal(t, []int{1, 3}, m.Adjacency().Neighbors(0))
	assert.Equal(t, []int{0, 2, 3, 4}, m.Adjacency().Neighbors(1))
}

func TestDisk(t *testing.T) {
	m := Disk(3, 8, 0.1)

	assert.Equal(t, 1+3*8, m.Len())
	assert.Len(t, m.Faces, 8+2*2*8)
	assert.Equal(t, 8, m.Adjacency().Degree(0))
	assert.InDelta(t, 0.3, m.MaxField(), 1e-12)
}

func TestRandomCloud(t *testing.T) {
	m := RandomCloud(NewRNG(1), 16)
	assert.Equal(t, 16, m.Len())
	for _, f := range m.Field {
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 10.0)
	}
}

func TestStrip(t *testing.T) {
	m := Strip(4, 0.1)

	assert.Equal(t, 8, m.Len())
	assert.Len(t, m.Faces, 6)
	assert.Equal(t, []int{1, 4}, m.Adjacency().Neighbors(0))
	assert.Equal(t, 0.1, m.Field[7])
}
