package layout

import (
	"cmp"

	"github.com/rdleal/intervalst/interval"
)

// edge is an interval bound. The block index breaks ties so that two blocks
// with identical geometry still get distinct tree keys.
type edge struct {
	px  float64
	seq int
}

func compareEdge(a, b edge) int {
	if c := cmp.Compare(a.px, b.px); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

// assignLanes runs greedy interval partitioning over blocks already sorted
// by top: each block takes the lowest lane not used by a visually
// overlapping earlier block. Lanes is then set to the lane count of the
// block's overlap cluster so every block in a cluster gets the same width.
func assignLanes(blocks []Block) {
	if len(blocks) == 0 {
		return
	}

	tree := interval.NewSearchTree[int](compareEdge)
	parent := make([]int, len(blocks))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	for i := range blocks {
		b := &blocks[i]
		used := make(map[int]bool)
		if hits, ok := tree.AllIntersections(edge{b.Top, i}, edge{b.Bottom(), i}); ok {
			for _, j := range hits {
				if !overlaps(blocks[j], *b) {
					continue
				}
				used[blocks[j].Lane] = true
				parent[find(j)] = find(i)
			}
		}
		lane := 0
		for used[lane] {
			lane++
		}
		b.Lane = lane
		// Heights are floored at MinimumBlockHeight > 0, so start < end.
		_ = tree.Insert(edge{b.Top, i}, edge{b.Bottom(), i}, i)
	}

	width := make(map[int]int)
	for i, b := range blocks {
		root := find(i)
		if b.Lane+1 > width[root] {
			width[root] = b.Lane + 1
		}
	}
	for i := range blocks {
		blocks[i].Lanes = width[find(i)]
	}
}

// overlaps uses half-open [top, bottom) so touching blocks share a lane.
func overlaps(a, b Block) bool {
	return a.Top < b.Bottom() && b.Top < a.Bottom()
}
