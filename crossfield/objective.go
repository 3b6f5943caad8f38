package crossfield

import (
	"github.com/hupe1980/stitchgo/gradient"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

type coeff struct {
	u int
	c float64
}

// objective is sum_v r_v^2 with r_v = sum_u c_vu (g_u - g_v) - 1, where
// c_vu = t(v).(p_u - p_v) / |N(v)|. Vertices below the neighbor minimum have
// no coefficients and contribute a constant 1.
type objective struct {
	terms    [][]coeff
	free     []int
	full     []float64
	residual []float64
}

func newObjective(pos []r3.Vec, nb gradient.Neighborhood, targets []r3.Vec, minNeighbors int, pinned []bool) *objective {
	n := len(pos)
	o := &objective{
		terms:    make([][]coeff, n),
		full:     make([]float64, n),
		residual: make([]float64, n),
	}

	for v := 0; v < n; v++ {
		neighbors := nb.Neighbors(v)
		if len(neighbors) < minNeighbors {
			continue
		}
		inv := 1 / float64(len(neighbors))
		terms := make([]coeff, len(neighbors))
		for i, u := range neighbors {
			terms[i] = coeff{u: u, c: r3.Dot(targets[v], r3.Sub(pos[u], pos[v])) * inv}
		}
		o.terms[v] = terms
	}

	for v := 0; v < n; v++ {
		if !pinned[v] {
			o.free = append(o.free, v)
		}
	}

	return o
}

// expand scatters the free variables into the full potential; pinned
// entries stay zero. The returned slice is reused between calls.
func (o *objective) expand(x []float64) []float64 {
	for i := range o.full {
		o.full[i] = 0
	}
	for k, v := range o.free {
		o.full[v] = x[k]
	}
	return o.full
}

func (o *objective) residuals(g []float64) []float64 {
	for v, terms := range o.terms {
		r := -1.0
		for _, t := range terms {
			r += t.c * (g[t.u] - g[v])
		}
		o.residual[v] = r
	}
	return o.residual
}

func (o *objective) value(g []float64) float64 {
	r := o.residuals(g)
	return floats.Dot(r, r)
}

// gradient writes dF/dx for the free variables into grad.
func (o *objective) gradient(grad []float64, g []float64) {
	r := o.residuals(g)

	full := make([]float64, len(g))
	for v, terms := range o.terms {
		w := 2 * r[v]
		for _, t := range terms {
			full[t.u] += w * t.c
			full[v] -= w * t.c
		}
	}

	for k, v := range o.free {
		grad[k] = full[v]
	}
}
