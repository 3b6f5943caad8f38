package stitchgo

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/hupe1980/stitchgo/crossfield"
	"github.com/hupe1980/stitchgo/isoline"
	"github.com/hupe1980/stitchgo/mesh"
	"github.com/hupe1980/stitchgo/pattern"
	"github.com/hupe1980/stitchgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/spatial/r3"
)

// stripWithIsland is a Strip(6, 0.1) plus one isolated vertex in row 0, a
// flat triangle in row 2 and one isolated vertex that only raises
// max(field).
func stripWithIsland(t *testing.T) *mesh.Mesh {
	t.Helper()

	s := testutil.Strip(6, 0.1)
	vertices := append([]r3.Vec{}, s.Vertices...)
	faces := append([]mesh.Face{}, s.Faces...)
	field := append([]float64{}, s.Field...)

	base := len(vertices)
	vertices = append(vertices, r3.Vec{X: 10}, r3.Vec{X: 11}, r3.Vec{X: 10, Y: 1}, r3.Vec{X: 20}, r3.Vec{X: 30})
	faces = append(faces, mesh.Face{base, base + 1, base + 2})
	field = append(field, 2, 2, 2, 2.6, 0.05)

	m, err := mesh.New(vertices, faces, field)
	require.NoError(t, err)
	return m
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("UnitSquare", func(t *testing.T) {
		metrics := &BasicMetricsCollector{}
		gen, err := New(WithYarnWidth(0.5), WithMetricsCollector(metrics))
		require.NoError(t, err)

		res, err := gen.Generate(ctx, testutil.UnitSquare())
		require.NoError(t, err)

		assert.Equal(t, 0, res.Pattern.SeedVertex)
		assert.Equal(t, 3, res.Pattern.MaxVertex)
		assert.Len(t, res.Pattern.RowEdges, 3)
		assert.Len(t, res.Pattern.ColEdges, 2)
		assert.Len(t, res.Pattern.Stitches, 4)

		require.Len(t, res.Columns, 4)
		assert.True(t, res.Columns[0].Skipped, "single-vertex row")
		assert.True(t, res.Columns[1].Skipped, "empty row")
		assert.True(t, res.Columns[3].Skipped, "empty row")

		row := res.Columns[2]
		assert.False(t, row.Skipped)
		assert.Equal(t, []int{1, 2}, row.Vertices)
		assert.Equal(t, []float64{0, 0}, row.Potential)
		assert.Equal(t, []int{1, 2}, row.Order)
		assert.Equal(t, 2, row.Degenerate)

		assert.Equal(t, 2, res.DegenerateVertices)
		assert.Equal(t, 1, res.Uncovered)
		assert.Empty(t, res.Failures)
		assert.False(t, res.Partial())

		stats := metrics.GetStats()
		assert.Equal(t, int64(1), stats.GenerateCount)
		assert.Equal(t, int64(4), stats.RowCount)
		assert.Equal(t, int64(1), stats.SolveCount)
		assert.Equal(t, int64(2), stats.DegenerateVertices)
	})

	t.Run("Strip", func(t *testing.T) {
		gen, err := New(WithYarnWidth(1))
		require.NoError(t, err)

		res, err := gen.Generate(ctx, testutil.Strip(6, 0.1))
		require.NoError(t, err)

		require.Len(t, res.Columns, 1)
		col := res.Columns[0]
		require.Len(t, col.Potential, 12)
		assert.Zero(t, col.Potential[0], "boundary vertex stays pinned")
		assert.Zero(t, col.Degenerate)
		assert.ElementsMatch(t, col.Vertices, col.Order)
		assert.Empty(t, res.Failures)
		assert.Zero(t, res.Uncovered)
	})

	t.Run("RowFailureIsIsolated", func(t *testing.T) {
		s := crossfield.DefaultSettings()
		s.MaxIterations = 1

		metrics := &BasicMetricsCollector{}
		gen, err := New(WithYarnWidth(1), WithSolverSettings(s), WithMetricsCollector(metrics))
		require.NoError(t, err)

		res, err := gen.Generate(ctx, stripWithIsland(t))
		require.NoError(t, err)
		require.Len(t, res.Columns, 3)

		require.Len(t, res.Failures, 1)
		assert.Equal(t, 0, res.Failures[0].Row)
		var nc *ErrNonconvergence
		require.ErrorAs(t, res.Failures[0].Err, &nc)
		assert.Equal(t, optimize.IterationLimit, nc.Status)
		assert.Nil(t, res.Columns[0].Potential)
		assert.Len(t, res.Columns[0].Vertices, 13)
		assert.Equal(t, 1, res.Columns[0].Degenerate, "isolated vertex counted on the failed row")
		assert.True(t, res.Partial())

		assert.True(t, res.Columns[1].Skipped)
		assert.Equal(t, []float64{0, 0, 0}, res.Columns[2].Potential)
		assert.Zero(t, res.Columns[2].Degenerate)
		assert.NoError(t, res.Columns[2].Err)

		assert.Len(t, res.Pattern.Stitches, 17)
		assert.Equal(t, 1, res.Uncovered)
		assert.Equal(t, 1, res.DegenerateVertices)

		stats := metrics.GetStats()
		assert.Equal(t, int64(2), stats.SolveCount)
		assert.Equal(t, int64(1), stats.SolveErrors)
		assert.Equal(t, int64(1), stats.RowFailures)
		assert.Equal(t, int64(1), stats.DegenerateVertices)
	})

	t.Run("CoincidentAdjacencyDegenerates", func(t *testing.T) {
		gen, err := New(WithYarnWidth(1), WithAdjacency(AdjacencyCoincident))
		require.NoError(t, err)

		res, err := gen.Generate(ctx, testutil.Strip(4, 0.1))
		require.NoError(t, err)
		assert.Equal(t, 8, res.Columns[0].Degenerate)
		assert.Equal(t, make([]float64, 8), res.Columns[0].Potential)
	})

	t.Run("DisjointPolicy", func(t *testing.T) {
		gen, err := New(WithYarnWidth(0.5), WithIsolinePolicy(isoline.Disjoint))
		require.NoError(t, err)

		res, err := gen.Generate(ctx, testutil.UnitSquare())
		require.NoError(t, err)
		assert.Zero(t, res.Uncovered)
		assert.Equal(t, isoline.Disjoint, res.Rows.Policy)
	})

	t.Run("MemoryLimit", func(t *testing.T) {
		gen, err := New(WithYarnWidth(0.5), WithMemoryLimit(1))
		require.NoError(t, err)

		res, err := gen.Generate(ctx, testutil.UnitSquare())
		require.NoError(t, err)
		require.Len(t, res.Failures, 1)
		assert.Equal(t, 2, res.Failures[0].Row)
		assert.ErrorIs(t, res.Failures[0].Err, ErrMemoryLimitExceeded)
	})

	t.Run("Canceled", func(t *testing.T) {
		gen, err := New()
		require.NoError(t, err)

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err = gen.Generate(cctx, testutil.Grid(5, 5, 0.1))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGenerate_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := testutil.Grid(12, 12, 0.1)

	encode := func(res *Result) ([]byte, []byte) {
		p, err := json.Marshal(res.Pattern)
		require.NoError(t, err)
		c, err := json.Marshal(res.Columns)
		require.NoError(t, err)
		return p, c
	}

	serial, err := New(WithYarnWidth(0.1))
	require.NoError(t, err)
	parallel, err := New(WithYarnWidth(0.1), WithConcurrency(4))
	require.NoError(t, err)

	a, err := serial.Generate(ctx, m)
	require.NoError(t, err)
	b, err := serial.Generate(ctx, m)
	require.NoError(t, err)
	c, err := parallel.Generate(ctx, m)
	require.NoError(t, err)

	pa, ca := encode(a)
	pb, cb := encode(b)
	pc, cc := encode(c)

	assert.Equal(t, pa, pb)
	assert.Equal(t, ca, cb)
	assert.Equal(t, pa, pc)
	assert.Equal(t, ca, cc)
	assert.Equal(t, len(a.Failures), len(c.Failures))
}

func TestGenerate_InvalidInput(t *testing.T) {
	ctx := context.Background()
	gen, err := New()
	require.NoError(t, err)

	_, err = gen.Generate(ctx, nil)
	assert.True(t, IsInvalidInput(err))

	bad := &mesh.Mesh{
		Vertices: []r3.Vec{{}, {X: 1}},
		Faces:    []mesh.Face{},
		Field:    []float64{0, math.NaN()},
	}
	_, err = gen.Generate(ctx, bad)
	var ii *ErrInvalidInput
	require.ErrorAs(t, err, &ii)
	assert.Equal(t, "field", ii.Field)
	var im *mesh.ErrInvalidMesh
	assert.ErrorAs(t, err, &im)

	_, err = gen.GeneratePayload(ctx, &mesh.Payload{Vertices: [][]float64{{0, 0, 0}}, Faces: [][]int{}})
	require.ErrorAs(t, err, &ii)
	assert.Equal(t, "field", ii.Field)
	assert.Equal(t, "missing", ii.Reason)

	_, err = gen.GeneratePayload(ctx, nil)
	assert.True(t, IsInvalidInput(err))
}

func TestGenerate_TooManyRows(t *testing.T) {
	gen, err := New(WithYarnWidth(1e-9))
	require.NoError(t, err)

	m, err := mesh.New([]r3.Vec{{}, {X: 1}}, []mesh.Face{}, []float64{0, 1e3})
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), m)
	var ii *ErrInvalidInput
	require.ErrorAs(t, err, &ii)
	assert.Equal(t, "yarn_width", ii.Field)
	assert.ErrorIs(t, err, isoline.ErrTooManyRows)
}

func TestNew_InvalidOptions(t *testing.T) {
	for _, w := range []float64{0, -0.1, math.NaN(), math.Inf(1)} {
		_, err := New(WithYarnWidth(w))
		assert.True(t, IsInvalidInput(err), "w=%v", w)
		assert.ErrorIs(t, err, isoline.ErrInvalidSpacing)
	}

	_, err := New(WithAdjacency(AdjacencyMode(7)))
	assert.True(t, IsInvalidInput(err))

	_, err = New(WithAdjacency(AdjacencyCoincident), WithCoincidentEpsilon(0))
	assert.True(t, IsInvalidInput(err))
}

func TestNew_Defaults(t *testing.T) {
	gen, err := New(nil, WithLogger(nil), WithMetricsCollector(nil), WithConcurrency(-3))
	require.NoError(t, err)

	assert.Equal(t, DefaultYarnWidth, gen.YarnWidth())
	assert.Equal(t, 1, gen.opts.concurrency)
	assert.Equal(t, []int{0}, gen.opts.boundary)
	assert.NotNil(t, gen.opts.logger)
	assert.NotNil(t, gen.opts.metricsCollector)
}

func TestParseAdjacencyMode(t *testing.T) {
	m, err := ParseAdjacencyMode("coincident")
	require.NoError(t, err)
	assert.Equal(t, AdjacencyCoincident, m)

	m, err = ParseAdjacencyMode("")
	require.NoError(t, err)
	assert.Equal(t, AdjacencyFace, m)
	assert.Equal(t, "face", m.String())

	_, err = ParseAdjacencyMode("voxel")
	assert.True(t, IsInvalidInput(err))
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))

	other := errors.New("boom")
	assert.Equal(t, other, translateError(other))

	err := translateError(isoline.ErrInvalidSpacing)
	assert.True(t, IsInvalidInput(err))
	assert.ErrorIs(t, err, isoline.ErrInvalidSpacing)
}

func TestResult_PatternMatchesAssemble(t *testing.T) {
	m := testutil.Disk(3, 12, 0.1)
	gen, err := New(WithYarnWidth(0.1))
	require.NoError(t, err)

	res, err := gen.Generate(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, pattern.Assemble(m), res.Pattern)
}
