package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/stitchgo/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(r.seed))
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillUniformRange fills dst with random values in range [minVal, maxVal).
func (r *RNG) FillUniformRange(dst []float64, minVal, maxVal float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := maxVal - minVal
	for i := range dst {
		dst[i] = minVal + r.rand.Float64()*span
	}
}

// UnitSquare returns the four-vertex square (0,0),(1,0),(0,1),(1,1) with
// field values [0,1,1,2].
func UnitSquare() *mesh.Mesh {
	return mustMesh(
		[]r3.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}},
		[]mesh.Face{{0, 1, 2}, {1, 3, 2}},
		[]float64{0, 1, 1, 2},
	)
}

// Grid returns an nx by ny planar grid with the given spacing, two
// triangles per cell, and the Euclidean distance to vertex 0 as field.
func Grid(nx, ny int, spacing float64) *mesh.Mesh {
	vertices := make([]r3.Vec, 0, nx*ny)
	field := make([]float64, 0, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v := r3.Vec{X: float64(i) * spacing, Y: float64(j) * spacing}
			vertices = append(vertices, v)
			field = append(field, r3.Norm(v))
		}
	}

	faces := make([]mesh.Face, 0, 2*(nx-1)*(ny-1))
	for j := 0; j+1 < ny; j++ {
		for i := 0; i+1 < nx; i++ {
			a := j*nx + i
			b := a + 1
			c := a + nx
			d := c + 1
			faces = append(faces, mesh.Face{a, b, c}, mesh.Face{b, d, c})
		}
	}

	return mustMesh(vertices, faces, field)
}

// Strip returns two rows of cols vertices, bottom at y=0 and top at y=h,
// joined by two triangles per cell. The field equals y.
func Strip(cols int, h float64) *mesh.Mesh {
	vertices := make([]r3.Vec, 2*cols)
	field := make([]float64, 2*cols)
	for i := 0; i < cols; i++ {
		vertices[i] = r3.Vec{X: float64(i)}
		vertices[cols+i] = r3.Vec{X: float64(i), Y: h}
		field[cols+i] = h
	}

	faces := []mesh.Face{}
	for i := 0; i+1 < cols; i++ {
		faces = append(faces, mesh.Face{i, i + 1, cols + i}, mesh.Face{i + 1, cols + i + 1, cols + i})
	}

	return mustMesh(vertices, faces, field)
}

// Disk returns a center vertex surrounded by rings of segments vertices
// each, ring k at radius k*spacing, with the distance to the center as
// field. It is the flat start of a crochet circle.
func Disk(rings, segments int, spacing float64) *mesh.Mesh {
	vertices := []r3.Vec{{}}
	field := []float64{0}
	for k := 1; k <= rings; k++ {
		radius := float64(k) * spacing
		for s := 0; s < segments; s++ {
			theta := 2 * math.Pi * float64(s) / float64(segments)
			vertices = append(vertices, r3.Vec{X: radius * math.Cos(theta), Y: radius * math.Sin(theta)})
			field = append(field, radius)
		}
	}

	ring := func(k, s int) int { return 1 + (k-1)*segments + (s % segments) }

	var faces []mesh.Face
	for s := 0; s < segments; s++ {
		faces = append(faces, mesh.Face{0, ring(1, s), ring(1, s+1)})
	}
	for k := 1; k < rings; k++ {
		for s := 0; s < segments; s++ {
			a, b := ring(k, s), ring(k, s+1)
			c, d := ring(k+1, s), ring(k+1, s+1)
			faces = append(faces, mesh.Face{a, c, d}, mesh.Face{a, d, b})
		}
	}
	if faces == nil {
		faces = []mesh.Face{}
	}

	return mustMesh(vertices, faces, field)
}

// RandomCloud returns n random vertices in the unit cube without faces and
// a random field in [0, 10).
func RandomCloud(rng *RNG, n int) *mesh.Mesh {
	coords := make([]float64, 3*n)
	rng.FillUniformRange(coords, 0, 1)
	field := make([]float64, n)
	rng.FillUniformRange(field, 0, 10)

	vertices := make([]r3.Vec, n)
	for i := range vertices {
		vertices[i] = r3.Vec{X: coords[3*i], Y: coords[3*i+1], Z: coords[3*i+2]}
	}
	return mustMesh(vertices, []mesh.Face{}, field)
}

func mustMesh(vertices []r3.Vec, faces []mesh.Face, field []float64) *mesh.Mesh {
	m, err := mesh.New(vertices, faces, field)
	if err != nil {
		panic(err)
	}
	return m
}
