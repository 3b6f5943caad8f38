package stitchgo

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/stitchgo/crossfield"
	"github.com/hupe1980/stitchgo/internal/resource"
	"github.com/hupe1980/stitchgo/isoline"
	"github.com/hupe1980/stitchgo/mesh"
	"github.com/hupe1980/stitchgo/pattern"
)

// Column is the column ordering of one isoline row.
type Column struct {
	// Row is the isoline row index.
	Row int `json:"row"`
	// Vertices are the global vertex indices of the row, in row order.
	Vertices []int `json:"vertices"`
	// Potential is the column coordinate of each row vertex. It is nil when
	// the row was skipped or failed.
	Potential []float64 `json:"potential,omitempty"`
	// Order lists the global vertex indices sorted by ascending potential.
	Order []int `json:"order,omitempty"`
	// Degenerate is the number of row vertices with too few neighbors.
	Degenerate int `json:"degenerate"`
	// Skipped is set for rows with fewer than two vertices.
	Skipped bool `json:"skipped,omitempty"`

	Objective  float64 `json:"objective"`
	Iterations int     `json:"iterations"`

	Err error `json:"-"`
}

// RowFailure records a row whose solve did not produce a potential.
type RowFailure struct {
	Row int
	Err error
}

// Result is the outcome of one Generate call.
type Result struct {
	Pattern *pattern.Pattern
	Rows    *isoline.Rows
	// Columns is index-aligned with Rows.Rows.
	Columns []Column
	// Failures lists failed rows in ascending row order.
	Failures []RowFailure

	DegenerateVertices int
	// Uncovered is the number of vertices outside every row.
	Uncovered int
}

// Partial reports whether some rows failed.
func (r *Result) Partial() bool {
	return len(r.Failures) > 0
}

// Generator converts meshes into stitch patterns.
//
// A Generator holds configuration only. Generate is safe for concurrent use;
// concurrent calls share the solve slots of one Generator.
type Generator struct {
	opts options
	rc   *resource.Controller
}

// New creates a Generator.
func New(optFns ...Option) (*Generator, error) {
	o := applyOptions(optFns)

	if o.yarnWidth <= 0 || math.IsNaN(o.yarnWidth) || math.IsInf(o.yarnWidth, 0) {
		return nil, &ErrInvalidInput{Field: "yarn_width", Reason: "must be positive and finite", cause: isoline.ErrInvalidSpacing}
	}
	if o.adjacency != AdjacencyFace && o.adjacency != AdjacencyCoincident {
		return nil, &ErrInvalidInput{Field: "adjacency", Reason: "unknown mode " + o.adjacency.String()}
	}
	if o.adjacency == AdjacencyCoincident && !(o.coincidentEps > 0) {
		return nil, &ErrInvalidInput{Field: "coincident_epsilon", Reason: "must be positive"}
	}

	return &Generator{
		opts: o,
		rc: resource.NewController(resource.Config{
			MaxSolves:        int64(o.concurrency),
			MemoryLimitBytes: o.memoryLimit,
		}),
	}, nil
}

// YarnWidth returns the configured isoline spacing.
func (g *Generator) YarnWidth() float64 {
	return g.opts.yarnWidth
}

// GeneratePayload converts a decoded input record and generates its pattern.
func (g *Generator) GeneratePayload(ctx context.Context, p *mesh.Payload) (*Result, error) {
	if p == nil {
		return nil, &ErrInvalidInput{Field: "payload", Reason: "missing"}
	}
	m, err := p.Mesh()
	if err != nil {
		return nil, translateError(err)
	}
	return g.Generate(ctx, m)
}

// Generate extracts the isoline rows of m, solves the column ordering of
// every row with at least two vertices and assembles the stitch pattern.
//
// Invalid input aborts with *ErrInvalidInput. A row whose solve does not
// converge is recorded in Result.Failures; the other rows and the pattern
// are still produced. A canceled context aborts with the context error.
func (g *Generator) Generate(ctx context.Context, m *mesh.Mesh) (*Result, error) {
	start := time.Now()

	res, err := g.generate(ctx, m)

	vertices := 0
	if m != nil {
		vertices = m.Len()
	}
	rows, failed := 0, 0
	if res != nil {
		rows, failed = len(res.Columns), len(res.Failures)
	}
	elapsed := time.Since(start)
	g.opts.metricsCollector.RecordGenerate(rows, failed, elapsed, err)
	g.opts.logger.LogGenerate(ctx, vertices, rows, failed, elapsed, err)

	return res, err
}

func (g *Generator) generate(ctx context.Context, m *mesh.Mesh) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &ErrInvalidInput{Field: "mesh", Reason: "missing"}
	}
	if err := m.Validate(); err != nil {
		return nil, translateError(err)
	}

	rows, err := isoline.Extract(m.Field, g.opts.yarnWidth, isoline.WithPolicy(g.opts.policy))
	if err != nil {
		return nil, translateError(err)
	}

	columns := make([]Column, len(rows.Rows))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.concurrency)

	for i := range rows.Rows {
		row := &rows.Rows[i]
		col := &columns[i]
		col.Row = row.Index
		col.Vertices = row.Vertices()

		if len(col.Vertices) < 2 {
			col.Skipped = true
			continue
		}

		eg.Go(func() error {
			return g.solveRow(egCtx, m, col)
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Pattern:   pattern.Assemble(m),
		Rows:      rows,
		Columns:   columns,
		Uncovered: rows.Uncovered(m.Len()),
	}
	for i := range columns {
		res.DegenerateVertices += columns[i].Degenerate
		if columns[i].Err != nil {
			res.Failures = append(res.Failures, RowFailure{Row: columns[i].Row, Err: columns[i].Err})
		}
	}

	return res, nil
}

// solveRow fills col. Only a context error is returned; solver errors are
// recorded on the column.
func (g *Generator) solveRow(ctx context.Context, m *mesh.Mesh, col *Column) error {
	if err := g.rc.AcquireSolve(ctx); err != nil {
		return err
	}
	defer g.rc.ReleaseSolve()

	n := len(col.Vertices)
	logger := g.opts.logger.WithRow(col.Row)

	bytes := solveBytes(n, g.opts.solver.Memory)
	if err := g.rc.AcquireMemory(bytes); err != nil {
		col.Err = err
		logger.LogRowSolve(ctx, col.Row, n, 0, err)
		g.opts.metricsCollector.RecordRowSolve(n, 0, 0, err)
		return nil
	}
	defer g.rc.ReleaseMemory(bytes)

	pos, vals := m.Subset(col.Vertices)

	var nb *mesh.Adjacency
	switch g.opts.adjacency {
	case AdjacencyCoincident:
		nb = mesh.CoincidentAdjacency(pos, g.opts.coincidentEps)
	default:
		nb = m.Adjacency().Induced(col.Vertices)
	}

	problem := crossfield.Problem{
		Positions: pos,
		Values:    vals,
		Neighbors: nb,
		Boundary:  g.boundaryFor(n),
	}

	start := time.Now()
	sol, err := crossfield.Solve(ctx, problem, g.opts.solver)
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		col.Err = err
		var nc *crossfield.ErrNonconvergence
		iterations := 0
		if errors.As(err, &nc) {
			iterations = nc.Iterations
			col.Objective = nc.Objective
			col.Iterations = nc.Iterations
			if nc.Degenerate != nil {
				col.Degenerate = int(nc.Degenerate.GetCardinality())
			}
		}
		if col.Degenerate > 0 {
			logger.LogDegenerate(ctx, col.Row, col.Degenerate)
			g.opts.metricsCollector.RecordDegenerate(col.Degenerate)
		}
		logger.LogRowSolve(ctx, col.Row, n, iterations, err)
		g.opts.metricsCollector.RecordRowSolve(n, iterations, elapsed, err)
		return nil
	}

	col.Potential = sol.Potential
	col.Objective = sol.Objective
	col.Iterations = sol.Iterations
	col.Degenerate = int(sol.Degenerate.GetCardinality())

	order := sol.Order()
	col.Order = make([]int, len(order))
	for k, local := range order {
		col.Order[k] = col.Vertices[local]
	}

	if col.Degenerate > 0 {
		logger.LogDegenerate(ctx, col.Row, col.Degenerate)
		g.opts.metricsCollector.RecordDegenerate(col.Degenerate)
	}
	logger.LogRowSolve(ctx, col.Row, n, sol.Iterations, nil)
	g.opts.metricsCollector.RecordRowSolve(n, sol.Iterations, elapsed, nil)

	return nil
}

func (g *Generator) boundaryFor(n int) []int {
	out := make([]int, 0, len(g.opts.boundary))
	for _, b := range g.opts.boundary {
		if b >= 0 && b < n {
			out = append(out, b)
		}
	}
	return out
}

// solveBytes estimates the working set of one row solve: positions, field
// gradients, targets, the potential and the L-BFGS history.
func solveBytes(n, memory int) int64 {
	if memory <= 0 {
		memory = 10
	}
	const vec = 24
	perVertex := 3*vec + 8*(2*memory+4)
	return int64(n) * int64(perVertex)
}
