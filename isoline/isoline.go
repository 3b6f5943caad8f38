// Package isoline buckets mesh vertices into stitch rows along evenly spaced
// level sets of the geodesic field.
//
// Row k has the nominal value k*w, for k = 0, 1, ... while k*w < max(field),
// where w is the yarn width. With the default Overlapping policy a vertex
// belongs to every row whose value is within w/2 of its field value, so a
// vertex can sit in zero, one or several rows. Rows are emitted in
// increasing k, members in increasing vertex index, and empty rows are kept
// so rows can be addressed by k.
package isoline

import (
	"errors"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/floats"
)

// MaxRows bounds the number of isolines a single extraction may produce.
const MaxRows = 1 << 20

var (
	// ErrInvalidSpacing is returned for a non-positive or non-finite spacing.
	ErrInvalidSpacing = errors.New("isoline: spacing must be positive and finite")

	// ErrTooManyRows is returned when max(field)/w exceeds MaxRows.
	ErrTooManyRows = errors.New("isoline: too many rows")
)

// Policy decides how vertices map to rows.
type Policy int

const (
	// Overlapping assigns a vertex to every row within half a spacing.
	Overlapping Policy = iota
	// Disjoint assigns a vertex to its single nearest emitted row. Values
	// past the last row fall into the last row.
	Disjoint
)

func (p Policy) String() string {
	switch p {
	case Overlapping:
		return "overlapping"
	case Disjoint:
		return "disjoint"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses "overlapping" or "disjoint". The empty string selects
// Overlapping.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "overlapping":
		return Overlapping, nil
	case "disjoint":
		return Disjoint, nil
	default:
		return 0, fmt.Errorf("isoline: unknown policy %q", s)
	}
}

// Member is one vertex of a row.
type Member struct {
	Vertex int `json:"vert_index"`
	// RawDistance is the vertex's field value.
	RawDistance float64 `json:"raw_distance"`
	// RegDistance is the row's nominal isoline value.
	RegDistance float64 `json:"reg_distance"`
}

// Row is the bucket of one isoline value.
type Row struct {
	Index   int      `json:"index"`
	Value   float64  `json:"value"`
	Members []Member `json:"members"`
}

// Vertices returns the member vertex indices in order.
func (r *Row) Vertices() []int {
	out := make([]int, len(r.Members))
	for i, m := range r.Members {
		out[i] = m.Vertex
	}
	return out
}

// Len returns the number of members.
func (r *Row) Len() int { return len(r.Members) }

// Rows is the ordered result of an extraction.
type Rows struct {
	Spacing float64
	Policy  Policy
	Rows    []Row
}

// Coverage returns the set of vertices that appear in at least one row.
func (rs *Rows) Coverage() *roaring.Bitmap {
	bm := roaring.New()
	for i := range rs.Rows {
		for _, m := range rs.Rows[i].Members {
			bm.Add(uint32(m.Vertex))
		}
	}
	return bm
}

// Uncovered returns how many of the n vertices are in no row.
func (rs *Rows) Uncovered(n int) int {
	return n - int(rs.Coverage().GetCardinality())
}

type options struct {
	policy Policy
}

// Option configures Extract.
type Option func(*options)

// WithPolicy sets the membership policy.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// Values returns the isoline values k*w for k = 0, 1, ... while k*w < maxValue.
func Values(maxValue, w float64) ([]float64, error) {
	if !(w > 0) || math.IsInf(w, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidSpacing, w)
	}
	if math.IsNaN(maxValue) || math.IsInf(maxValue, 0) {
		return nil, fmt.Errorf("isoline: maximum field value must be finite, got %v", maxValue)
	}
	if maxValue/w > MaxRows {
		return nil, fmt.Errorf("%w: max %v with spacing %v", ErrTooManyRows, maxValue, w)
	}

	var values []float64
	for k := 0; float64(k)*w < maxValue; k++ {
		values = append(values, float64(k)*w)
	}
	return values, nil
}

// Extract buckets the field into rows spaced w apart.
func Extract(field []float64, w float64, optFns ...Option) (*Rows, error) {
	o := options{policy: Overlapping}
	for _, fn := range optFns {
		fn(&o)
	}

	maxValue := 0.0
	if len(field) > 0 {
		maxValue = floats.Max(field)
	}

	values, err := Values(maxValue, w)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(values))
	for k, t := range values {
		rows[k] = Row{Index: k, Value: t, Members: []Member{}}
	}

	switch o.policy {
	case Disjoint:
		for v, f := range field {
			if f <= -w/2 {
				continue
			}
			if len(rows) == 0 {
				break
			}
			k := min(int(math.Floor(f/w+0.5)), len(rows)-1)
			rows[k].Members = append(rows[k].Members, Member{Vertex: v, RawDistance: f, RegDistance: rows[k].Value})
		}
	default:
		half := w / 2
		for v, f := range field {
			if f <= -half {
				continue
			}
			// Candidate rows, widened by one on each side; the strict
			// tolerance check below decides membership.
			lo := max(int(math.Ceil((f-half)/w))-1, 0)
			hi := min(int(math.Floor((f+half)/w))+1, len(rows)-1)
			for k := lo; k <= hi; k++ {
				t := rows[k].Value
				if math.Abs(f-t) < half {
					rows[k].Members = append(rows[k].Members, Member{Vertex: v, RawDistance: f, RegDistance: t})
				}
			}
		}
	}

	return &Rows{Spacing: w, Policy: o.policy, Rows: rows}, nil
}
