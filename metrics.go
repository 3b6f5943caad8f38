package stitchgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus;
// package metrics/prometheus provides one.
type MetricsCollector interface {
	// RecordGenerate is called after each Generate call.
	// rows is the number of isoline rows, failed the number of rows whose
	// solve did not converge, err is nil if a pattern was produced.
	RecordGenerate(rows, failed int, duration time.Duration, err error)

	// RecordRowSolve is called after each row solve.
	RecordRowSolve(vertices, iterations int, duration time.Duration, err error)

	// RecordDegenerate is called with the number of degenerate vertices of
	// a row, when positive.
	RecordDegenerate(count int)

	// RecordItem is called by the queue driver after each work item with its
	// final status (done, partial, rejected, failed).
	RecordItem(status string, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordGenerate(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRowSolve(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordDegenerate(int)                          {}
func (NoopMetricsCollector) RecordItem(string, time.Duration)              {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	GenerateCount      atomic.Int64
	GenerateErrors     atomic.Int64
	GenerateTotalNanos atomic.Int64
	RowCount           atomic.Int64
	RowFailures        atomic.Int64
	SolveCount         atomic.Int64
	SolveErrors        atomic.Int64
	SolveIterations    atomic.Int64
	SolveTotalNanos    atomic.Int64
	DegenerateVertices atomic.Int64
	ItemsDone          atomic.Int64
	ItemsPartial       atomic.Int64
	ItemsRejected      atomic.Int64
	ItemsFailed        atomic.Int64
}

// RecordGenerate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGenerate(rows, failed int, duration time.Duration, err error) {
	b.GenerateCount.Add(1)
	b.GenerateTotalNanos.Add(duration.Nanoseconds())
	b.RowCount.Add(int64(rows))
	b.RowFailures.Add(int64(failed))
	if err != nil {
		b.GenerateErrors.Add(1)
	}
}

// RecordRowSolve implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRowSolve(vertices, iterations int, duration time.Duration, err error) {
	b.SolveCount.Add(1)
	b.SolveIterations.Add(int64(iterations))
	b.SolveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SolveErrors.Add(1)
	}
}

// RecordDegenerate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDegenerate(count int) {
	b.DegenerateVertices.Add(int64(count))
}

// RecordItem implements MetricsCollector.
func (b *BasicMetricsCollector) RecordItem(status string, _ time.Duration) {
	switch status {
	case "done":
		b.ItemsDone.Add(1)
	case "partial":
		b.ItemsPartial.Add(1)
	case "rejected":
		b.ItemsRejected.Add(1)
	default:
		b.ItemsFailed.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		GenerateCount:      b.GenerateCount.Load(),
		GenerateErrors:     b.GenerateErrors.Load(),
		GenerateAvgNanos:   avg(b.GenerateTotalNanos.Load(), b.GenerateCount.Load()),
		RowCount:           b.RowCount.Load(),
		RowFailures:        b.RowFailures.Load(),
		SolveCount:         b.SolveCount.Load(),
		SolveErrors:        b.SolveErrors.Load(),
		SolveAvgIterations: avg(b.SolveIterations.Load(), b.SolveCount.Load()),
		SolveAvgNanos:      avg(b.SolveTotalNanos.Load(), b.SolveCount.Load()),
		DegenerateVertices: b.DegenerateVertices.Load(),
		ItemsDone:          b.ItemsDone.Load(),
		ItemsPartial:       b.ItemsPartial.Load(),
		ItemsRejected:      b.ItemsRejected.Load(),
		ItemsFailed:        b.ItemsFailed.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	GenerateCount      int64
	GenerateErrors     int64
	GenerateAvgNanos   int64
	RowCount           int64
	RowFailures        int64
	SolveCount         int64
	SolveErrors        int64
	SolveAvgIterations int64
	SolveAvgNanos      int64
	DegenerateVertices int64
	ItemsDone          int64
	ItemsPartial       int64
	ItemsRejected      int64
	ItemsFailed        int64
}
