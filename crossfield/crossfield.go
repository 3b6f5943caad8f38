// Package crossfield solves for the column potential of a stitch row.
//
// Given the row's vertices and their geodesic field values, the solver
// estimates the field gradient, rotates it by 90 degrees in the XY plane and
// looks for a scalar potential g whose discrete gradient follows the rotated
// direction:
//
//	minimize  sum_v (t(v) . grad g(v) - 1)^2
//
// With the default AlignRotated, t is the rotated field gradient, so g grows
// along the row and orders its stitches. AlignGradient uses the unrotated
// field gradient as t, the literal form of the objective in which g follows
// the field across rows instead.
//
// Boundary vertices are pinned at zero and removed from the optimization
// variables. The minimization uses L-BFGS from gonum/optimize, bounded by an
// iteration budget, an evaluation budget, a wall-clock budget and the
// caller's context. Anything short of convergence is reported as
// *ErrNonconvergence and no potential is returned.
package crossfield

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/stitchgo/gradient"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrTooFewVertices is returned for rows with fewer than two vertices.
	ErrTooFewVertices = errors.New("crossfield: row needs at least 2 vertices")

	// ErrInvalidProblem is returned for inconsistent problem inputs.
	ErrInvalidProblem = errors.New("crossfield: invalid problem")

	// ErrNotConverged is the cause of an ErrNonconvergence when the solver
	// stopped without an error of its own.
	ErrNotConverged = errors.New("crossfield: not converged")
)

// ErrNonconvergence reports a solve that stopped before meeting its
// convergence criterion. The partial iterate is discarded.
type ErrNonconvergence struct {
	Status      optimize.Status
	Iterations  int
	Evaluations int
	Objective   float64
	// Degenerate holds row vertices with too few neighbors, as in Solution.
	Degenerate  *roaring.Bitmap
	cause       error
}

func (e *ErrNonconvergence) Error() string {
	return fmt.Sprintf("crossfield: solver stopped with status %s after %d iterations (objective %g): %v",
		e.Status, e.Iterations, e.Objective, e.cause)
}

func (e *ErrNonconvergence) Unwrap() error { return e.cause }

// Alignment selects the direction the potential gradient is fitted to.
type Alignment int

const (
	// AlignRotated fits grad g to the field gradient rotated by 90 degrees,
	// which makes g a column coordinate orthogonal to the rows.
	AlignRotated Alignment = iota
	// AlignGradient fits grad g to the unrotated field gradient.
	AlignGradient
)

func (a Alignment) String() string {
	switch a {
	case AlignRotated:
		return "rotated"
	case AlignGradient:
		return "gradient"
	default:
		return fmt.Sprintf("Alignment(%d)", int(a))
	}
}

// ParseAlignment parses "rotated" or "gradient". The empty string selects
// AlignRotated.
func ParseAlignment(s string) (Alignment, error) {
	switch s {
	case "", "rotated":
		return AlignRotated, nil
	case "gradient":
		return AlignGradient, nil
	default:
		return 0, fmt.Errorf("crossfield: unknown alignment %q", s)
	}
}

// Settings bounds and tunes a solve.
type Settings struct {
	Alignment Alignment

	// MaxIterations caps L-BFGS major iterations. 0 means unlimited.
	MaxIterations int
	// MaxEvaluations caps objective evaluations. 0 means unlimited.
	MaxEvaluations int
	// Runtime caps the wall-clock time of one solve. 0 means unlimited.
	Runtime time.Duration

	// GradientThreshold is the infinity-norm of the objective gradient at
	// which the solve is considered converged.
	GradientThreshold float64
	// FunctionTolerance is the relative objective change below which the
	// solve is considered converged after ConvergeIterations iterations.
	FunctionTolerance  float64
	ConvergeIterations int

	// Memory is the number of L-BFGS correction pairs.
	Memory int

	// MinNeighbors is passed to the gradient estimator.
	MinNeighbors int
}

// DefaultSettings mirrors the usual L-BFGS-B defaults with a 5s runtime cap.
func DefaultSettings() Settings {
	return Settings{
		Alignment:          AlignRotated,
		MaxIterations:      15000,
		MaxEvaluations:     15000,
		Runtime:            5 * time.Second,
		GradientThreshold:  1e-5,
		FunctionTolerance:  2.2e-9,
		ConvergeIterations: 10,
		Memory:             10,
		MinNeighbors:       gradient.DefaultMinNeighbors,
	}
}

// Problem is one row to solve. All slices are indexed by row-local vertex.
type Problem struct {
	Positions []r3.Vec
	Values    []float64
	Neighbors gradient.Neighborhood
	// Boundary lists row-local indices pinned at potential 0.
	Boundary []int
}

// Solution is a converged column potential.
type Solution struct {
	// Potential is the column coordinate of each row vertex.
	Potential []float64
	// FieldGradients are the estimated gradients of the row values.
	FieldGradients []r3.Vec
	// Targets are the directions grad g was fitted to.
	Targets []r3.Vec
	// Degenerate holds row vertices with too few neighbors.
	Degenerate  *roaring.Bitmap

	Objective   float64
	Status      optimize.Status
	Iterations  int
	Evaluations int
	Runtime     time.Duration
}

// Order returns row-local indices sorted by ascending potential; ties keep
// index order.
func (s *Solution) Order() []int {
	order := make([]int, len(s.Potential))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.Potential[order[a]] < s.Potential[order[b]]
	})
	return order
}

// Rotate applies the 90 degree rotation [[0,-1],[1,0]] to the XY part of
// each vector. The Z component of the result is zero.
func Rotate(g []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(g))
	for i, v := range g {
		out[i] = r3.Vec{X: -v.Y, Y: v.X}
	}
	return out
}

// Solve computes the column potential of one row.
func Solve(ctx context.Context, p Problem, s Settings) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := len(p.Positions)
	if n < 2 {
		return nil, ErrTooFewVertices
	}
	if len(p.Values) != n || p.Neighbors == nil || p.Neighbors.Len() != n {
		return nil, fmt.Errorf("%w: positions, values and neighbors must have equal length", ErrInvalidProblem)
	}

	pinned := make([]bool, n)
	for _, b := range p.Boundary {
		if b < 0 || b >= n {
			return nil, fmt.Errorf("%w: boundary index %d out of range [0,%d)", ErrInvalidProblem, b, n)
		}
		pinned[b] = true
	}

	minNeighbors := s.MinNeighbors
	if minNeighbors == 0 {
		minNeighbors = gradient.DefaultMinNeighbors
	}

	field, err := gradient.Estimate(p.Positions, p.Values, p.Neighbors, gradient.WithMinNeighbors(minNeighbors))
	if err != nil {
		return nil, err
	}

	targets := field.Vectors
	if s.Alignment == AlignRotated {
		targets = Rotate(field.Vectors)
	}

	obj := newObjective(p.Positions, p.Neighbors, targets, minNeighbors, pinned)

	sol := &Solution{
		Potential:      make([]float64, n),
		FieldGradients: field.Vectors,
		Targets:        targets,
		Degenerate:     field.Degenerate,
		Status:         optimize.Success,
	}

	// Everything pinned: the potential is fully determined.
	if len(obj.free) == 0 {
		sol.Objective = obj.value(sol.Potential)
		return sol, nil
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return obj.value(obj.expand(x))
		},
		Grad: func(grad, x []float64) {
			obj.gradient(grad, obj.expand(x))
		},
	}

	settings := &optimize.Settings{
		GradientThreshold: s.GradientThreshold,
		MajorIterations:   s.MaxIterations,
		FuncEvaluations:   s.MaxEvaluations,
		Runtime:           s.Runtime,
		Converger: &contextConverger{
			ctx: ctx,
			next: &optimize.FunctionConverge{
				Relative:   s.FunctionTolerance,
				Iterations: s.ConvergeIterations,
			},
		},
	}

	memory := s.Memory
	if memory <= 0 {
		memory = 10
	}

	x0 := make([]float64, len(obj.free))
	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{Store: memory})
	if result == nil {
		return nil, &ErrNonconvergence{Status: optimize.Failure, Degenerate: field.Degenerate, cause: err}
	}

	if err != nil || !converged(result.Status) {
		cause := err
		if ctxErr := ctx.Err(); ctxErr != nil {
			cause = ctxErr
		}
		if cause == nil {
			cause = result.Status.Err()
		}
		if cause == nil {
			cause = ErrNotConverged
		}
		return nil, &ErrNonconvergence{
			Status:      result.Status,
			Iterations:  result.MajorIterations,
			Evaluations: result.FuncEvaluations,
			Objective:   result.F,
			Degenerate:  field.Degenerate,
			cause:       cause,
		}
	}

	copy(sol.Potential, obj.expand(result.X))
	sol.Objective = result.F
	sol.Status = result.Status
	sol.Iterations = result.MajorIterations
	sol.Evaluations = result.FuncEvaluations
	sol.Runtime = result.Runtime

	return sol, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.FunctionThreshold,
		optimize.FunctionConvergence,
		optimize.GradientThreshold,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	default:
		return false
	}
}

// contextConverger stops the solve when ctx is done.
type contextConverger struct {
	ctx  context.Context
	next optimize.Converger
}

func (c *contextConverger) Init(dim int) { c.next.Init(dim) }

func (c *contextConverger) Converged(loc *optimize.Location) optimize.Status {
	if c.ctx.Err() != nil {
		return optimize.RuntimeLimit
	}
	return c.next.Converged(loc)
}
