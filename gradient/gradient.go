// Package gradient estimates per-vertex gradients of a scalar field over an
// unstructured point set using neighbor differences.
package gradient

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultMinNeighbors is the neighbor count below which a vertex gets a zero
// gradient.
const DefaultMinNeighbors = 2

// ErrLengthMismatch is returned when positions, values and neighborhood
// disagree on the vertex count.
var ErrLengthMismatch = errors.New("gradient: length mismatch")

// Neighborhood provides the neighbor indices of each vertex.
// *mesh.Adjacency implements it.
type Neighborhood interface {
	Len() int
	Neighbors(v int) []int
}

// Field is the result of an estimate.
type Field struct {
	// Vectors holds one gradient per vertex.
	Vectors []r3.Vec
	// Degenerate holds the vertices that had too few neighbors and
	// therefore a structurally zero gradient.
	Degenerate *roaring.Bitmap
}

// DegenerateCount returns the number of degenerate vertices.
func (f *Field) DegenerateCount() int {
	return int(f.Degenerate.GetCardinality())
}

type options struct {
	minNeighbors int
}

// Option configures Estimate.
type Option func(*options)

// WithMinNeighbors sets the minimum neighbor count for a non-zero gradient.
// Values below 1 are treated as 1.
func WithMinNeighbors(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.minNeighbors = n
	}
}

// Estimate computes, for every vertex v with enough neighbors,
//
//	grad(v) = mean over u in N(v) of (values[u]-values[v]) * (pos[u]-pos[v])
//
// Vertices with fewer than the minimum neighbor count get a zero vector and
// are recorded in Field.Degenerate.
func Estimate(positions []r3.Vec, values []float64, nb Neighborhood, optFns ...Option) (*Field, error) {
	o := options{minNeighbors: DefaultMinNeighbors}
	for _, fn := range optFns {
		fn(&o)
	}

	n := len(positions)
	if len(values) != n || nb.Len() != n {
		return nil, fmt.Errorf("%w: positions=%d values=%d neighborhood=%d", ErrLengthMismatch, n, len(values), nb.Len())
	}

	out := &Field{
		Vectors:    make([]r3.Vec, n),
		Degenerate: roaring.New(),
	}

	for v := 0; v < n; v++ {
		neighbors := nb.Neighbors(v)
		if len(neighbors) < o.minNeighbors {
			out.Degenerate.Add(uint32(v))
			continue
		}

		var sum r3.Vec
		for _, u := range neighbors {
			d := r3.Sub(positions[u], positions[v])
			sum = r3.Add(sum, r3.Scale(values[u]-values[v], d))
		}
		out.Vectors[v] = r3.Scale(1/float64(len(neighbors)), sum)
	}

	return out, nil
}
