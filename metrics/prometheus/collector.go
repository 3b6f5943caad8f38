// Package prometheus exports stitchgo metrics to Prometheus.
//
//	reg := prom.NewRegistry()
//	mc := prometheus.NewCollector(reg)
//	gen, _ := stitchgo.New(stitchgo.WithMetricsCollector(mc))
//	http.Handle("/metrics", prometheus.Handler(reg))
package prometheus

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/stitchgo"
)

var _ stitchgo.MetricsCollector = (*Collector)(nil)

// Collector implements stitchgo.MetricsCollector with Prometheus metrics.
type Collector struct {
	generateLatency *prom.HistogramVec
	rows            prom.Counter
	rowFailures     prom.Counter
	solveLatency    *prom.HistogramVec
	solveIterations prom.Histogram
	degenerate      prom.Counter
	items           *prom.CounterVec
	itemLatency     prom.Histogram
}

// NewCollector creates a Collector and registers its metrics with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prom.Registerer) *Collector {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}

	c := &Collector{
		generateLatency: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "stitchgo_generate_duration_seconds",
			Help:    "Latency of pattern generation",
			Buckets: prom.DefBuckets,
		}, []string{"status"}),
		rows: prom.NewCounter(prom.CounterOpts{
			Name: "stitchgo_rows_total",
			Help: "Total isoline rows extracted",
		}),
		rowFailures: prom.NewCounter(prom.CounterOpts{
			Name: "stitchgo_row_failures_total",
			Help: "Total rows whose solve did not converge",
		}),
		solveLatency: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "stitchgo_row_solve_duration_seconds",
			Help:    "Latency of one row solve",
			Buckets: prom.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"status"}),
		solveIterations: prom.NewHistogram(prom.HistogramOpts{
			Name:    "stitchgo_row_solve_iterations",
			Help:    "L-BFGS iterations per row solve",
			Buckets: prom.ExponentialBuckets(1, 4, 8),
		}),
		degenerate: prom.NewCounter(prom.CounterOpts{
			Name: "stitchgo_degenerate_vertices_total",
			Help: "Total row vertices with too few neighbors",
		}),
		items: prom.NewCounterVec(prom.CounterOpts{
			Name: "stitchgo_items_total",
			Help: "Total processed work items",
		}, []string{"status"}),
		itemLatency: prom.NewHistogram(prom.HistogramOpts{
			Name:    "stitchgo_item_duration_seconds",
			Help:    "End-to-end latency of one work item",
			Buckets: prom.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.generateLatency,
		c.rows,
		c.rowFailures,
		c.solveLatency,
		c.solveIterations,
		c.degenerate,
		c.items,
		c.itemLatency,
	)
	return c
}

// Handler serves the metrics gathered by g.
func Handler(g prom.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) RecordGenerate(rows, failed int, d time.Duration, err error) {
	c.generateLatency.WithLabelValues(status(err)).Observe(d.Seconds())
	c.rows.Add(float64(rows))
	c.rowFailures.Add(float64(failed))
}

func (c *Collector) RecordRowSolve(_, iterations int, d time.Duration, err error) {
	c.solveLatency.WithLabelValues(status(err)).Observe(d.Seconds())
	c.solveIterations.Observe(float64(iterations))
}

func (c *Collector) RecordDegenerate(count int) {
	c.degenerate.Add(float64(count))
}

func (c *Collector) RecordItem(st string, d time.Duration) {
	c.items.WithLabelValues(st).Inc()
	c.itemLatency.Observe(d.Seconds())
}
