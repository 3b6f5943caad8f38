package mesh

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultCoincidentEpsilon is the distance below which two positions are
// treated as the same point by CoincidentAdjacency.
const DefaultCoincidentEpsilon = 1e-5

// Adjacency is a vertex neighborhood stored as one flat index arena.
// Neighbors of v are indices[offsets[v]:offsets[v+1]], sorted ascending,
// never containing v itself.
type Adjacency struct {
	offsets []int
	indices []int
}

// Len returns the number of vertices covered.
func (a *Adjacency) Len() int { return len(a.offsets) - 1 }

// Neighbors returns the neighbor list of v. The slice aliases internal
// storage and must not be modified.
func (a *Adjacency) Neighbors(v int) []int {
	return a.indices[a.offsets[v]:a.offsets[v+1]]
}

// Degree returns the neighbor count of v.
func (a *Adjacency) Degree(v int) int {
	return a.offsets[v+1] - a.offsets[v]
}

// FaceAdjacency builds edge adjacency from triangle faces: u and v are
// neighbors when they share a face.
func FaceAdjacency(n int, faces []Face) *Adjacency {
	lists := make([][]int, n)
	for _, f := range faces {
		for i := 0; i < 3; i++ {
			u := f[i]
			for j := 0; j < 3; j++ {
				w := f[j]
				if u != w {
					lists[u] = append(lists[u], w)
				}
			}
		}
	}
	return fromLists(lists)
}

// CoincidentAdjacency treats vertices closer than eps as neighbors. This is
// a degenerate proxy for connectivity: on meshes without duplicated vertices
// every list is empty and all gradients collapse to zero.
func CoincidentAdjacency(positions []r3.Vec, eps float64) *Adjacency {
	n := len(positions)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// Sweep along X so only a narrow window is compared.
	sort.SliceStable(order, func(a, b int) bool {
		return positions[order[a]].X < positions[order[b]].X
	})

	lists := make([][]int, n)
	for a := 0; a < n; a++ {
		pa := positions[order[a]]
		for b := a + 1; b < n; b++ {
			pb := positions[order[b]]
			if pb.X-pa.X >= eps {
				break
			}
			if r3.Norm(r3.Sub(pa, pb)) < eps {
				lists[order[a]] = append(lists[order[a]], order[b])
				lists[order[b]] = append(lists[order[b]], order[a])
			}
		}
	}
	return fromLists(lists)
}

// Induced restricts the adjacency to members. The result is indexed by
// position in members, and keeps only edges whose both ends are members.
func (a *Adjacency) Induced(members []int) *Adjacency {
	local := make(map[int]int, len(members))
	for i, v := range members {
		if _, ok := local[v]; !ok {
			local[v] = i
		}
	}

	lists := make([][]int, len(members))
	for i, v := range members {
		for _, u := range a.Neighbors(v) {
			if j, ok := local[u]; ok && j != i {
				lists[i] = append(lists[i], j)
			}
		}
	}
	return fromLists(lists)
}

func fromLists(lists [][]int) *Adjacency {
	offsets := make([]int, len(lists)+1)
	total := 0
	for v, l := range lists {
		sort.Ints(l)
		lists[v] = dedupSorted(l)
		total += len(lists[v])
	}

	indices := make([]int, 0, total)
	for v, l := range lists {
		offsets[v] = len(indices)
		indices = append(indices, l...)
	}
	offsets[len(lists)] = len(indices)

	return &Adjacency{offsets: offsets, indices: indices}
}

func dedupSorted(s []int) []int {
	if len(s) < 2 {
		return s
	}
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
