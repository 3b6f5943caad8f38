package stitchgo_bench_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/stitchgo"
	"github.com/hupe1980/stitchgo/crossfield"
	"github.com/hupe1980/stitchgo/isoline"
	"github.com/hupe1980/stitchgo/pattern"
	"github.com/hupe1980/stitchgo/testutil"
)

// BenchmarkGenerate benchmarks full generation by grid size and concurrency.
func BenchmarkGenerate(b *testing.B) {
	for _, size := range []int{16, 32, 64} {
		for _, workers := range []int{1, 4} {
			b.Run(fmt.Sprintf("Grid%d/Workers%d", size, workers), func(b *testing.B) {
				m := testutil.Grid(size, size, 1/float64(size))
				gen, err := stitchgo.New(
					stitchgo.WithYarnWidth(0.1),
					stitchgo.WithConcurrency(workers),
				)
				if err != nil {
					b.Fatal(err)
				}

				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := gen.Generate(context.Background(), m); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// BenchmarkExtract benchmarks isoline bucketing alone.
func BenchmarkExtract(b *testing.B) {
	rng := testutil.NewRNG(42)
	m := testutil.RandomCloud(rng, 100_000)

	for _, policy := range []isoline.Policy{isoline.Overlapping, isoline.Disjoint} {
		b.Run(policy.String(), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := isoline.Extract(m.Field, 0.03, isoline.WithPolicy(policy)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkSolveRow benchmarks one row solve on a strip.
func BenchmarkSolveRow(b *testing.B) {
	for _, cols := range []int{32, 256} {
		b.Run(fmt.Sprintf("Cols%d", cols), func(b *testing.B) {
			m := testutil.Strip(cols, 0.1)
			problem := crossfield.Problem{
				Positions: m.Vertices,
				Values:    m.Field,
				Neighbors: m.Adjacency(),
				Boundary:  []int{0},
			}
			settings := crossfield.DefaultSettings()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				var nc *crossfield.ErrNonconvergence
				if _, err := crossfield.Solve(context.Background(), problem, settings); err != nil && !errors.As(err, &nc) {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkAssemble benchmarks pattern assembly.
func BenchmarkAssemble(b *testing.B) {
	m := testutil.Grid(256, 256, 0.01)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = pattern.Assemble(m)
	}
}
