package stitchgo

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/stitchgo/crossfield"
	"github.com/hupe1980/stitchgo/isoline"
	"github.com/hupe1980/stitchgo/mesh"
)

// DefaultYarnWidth is the isoline spacing used when none is configured.
const DefaultYarnWidth = 0.03

// AdjacencyMode selects the vertex neighborhood used for gradient estimation.
type AdjacencyMode int

const (
	// AdjacencyFace connects vertices that share a triangle face.
	AdjacencyFace AdjacencyMode = iota
	// AdjacencyCoincident connects row vertices closer than
	// mesh.DefaultCoincidentEpsilon. On meshes without welded duplicates
	// every vertex is isolated and all gradients collapse to zero.
	AdjacencyCoincident
)

func (m AdjacencyMode) String() string {
	switch m {
	case AdjacencyFace:
		return "face"
	case AdjacencyCoincident:
		return "coincident"
	default:
		return fmt.Sprintf("AdjacencyMode(%d)", int(m))
	}
}

// ParseAdjacencyMode parses "face" or "coincident".
func ParseAdjacencyMode(s string) (AdjacencyMode, error) {
	switch s {
	case "", "face":
		return AdjacencyFace, nil
	case "coincident":
		return AdjacencyCoincident, nil
	default:
		return 0, &ErrInvalidInput{Field: "adjacency", Reason: fmt.Sprintf("unknown mode %q", s)}
	}
}

type options struct {
	yarnWidth        float64
	policy           isoline.Policy
	adjacency        AdjacencyMode
	coincidentEps    float64
	boundary         []int
	solver           crossfield.Settings
	concurrency      int
	memoryLimit      int64
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a Generator.
type Option func(*options)

// WithYarnWidth sets the isoline spacing w, the height of one stitch row in
// field units.
func WithYarnWidth(w float64) Option {
	return func(o *options) {
		o.yarnWidth = w
	}
}

// WithIsolinePolicy selects how vertices are bucketed into rows.
// The default is isoline.Overlapping.
func WithIsolinePolicy(p isoline.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithAdjacency selects the neighborhood used for row gradients.
func WithAdjacency(mode AdjacencyMode) Option {
	return func(o *options) {
		o.adjacency = mode
	}
}

// WithCoincidentEpsilon sets the distance threshold of AdjacencyCoincident.
func WithCoincidentEpsilon(eps float64) Option {
	return func(o *options) {
		o.coincidentEps = eps
	}
}

// WithBoundary sets the row-local vertex positions pinned at potential 0.
// Positions outside a row are ignored for that row. The default pins the
// first vertex of every row.
func WithBoundary(positions ...int) Option {
	return func(o *options) {
		o.boundary = positions
	}
}

// WithSolverSettings replaces the per-row solver settings.
//
// Example:
//
//	s := crossfield.DefaultSettings()
//	s.Runtime = time.Second
//	gen, _ := stitchgo.New(stitchgo.WithSolverSettings(s))
func WithSolverSettings(s crossfield.Settings) Option {
	return func(o *options) {
		o.solver = s
	}
}

// WithConcurrency sets the number of rows solved in parallel.
// Values below 1 are treated as 1. Output does not depend on it.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithMemoryLimit caps the estimated solver working set of all rows in
// flight. A row that does not fit fails with ErrMemoryLimitExceeded.
// 0 disables the limit.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &stitchgo.BasicMetricsCollector{}
//	gen, _ := stitchgo.New(stitchgo.WithMetricsCollector(metrics))
//	// ... generate ...
//	stats := metrics.GetStats()
//	fmt.Printf("Rows: %d, failed: %d\n", stats.RowCount, stats.RowFailures)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := stitchgo.NewJSONLogger(slog.LevelInfo)
//	gen, _ := stitchgo.New(stitchgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		yarnWidth:        DefaultYarnWidth,
		policy:           isoline.Overlapping,
		adjacency:        AdjacencyFace,
		coincidentEps:    mesh.DefaultCoincidentEpsilon,
		boundary:         []int{0},
		solver:           crossfield.DefaultSettings(),
		concurrency:      1,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	return o
}
