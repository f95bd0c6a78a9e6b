package rtree

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb"
)

// InsertItem is an item that can be inserted for bulk loading.
type InsertItem struct {
	BBox      orb.Bound
	DataIndex int
}

// BulkLoad loads multiple items into an empty R-Tree. The bulk load operation
// is optimised for creating R-Trees with minimal node overlap. This allows for
// fast searching.
func (t *RTree) BulkLoad(inserts []InsertItem) error {
	if len(t.Nodes) != 0 {
		return errors.New("bulk load requires an empty tree")
	}
	if len(inserts) == 0 {
		return nil
	}
	items := make([]InsertItem, len(inserts))
	copy(items, inserts)

	t.RootIndex = t.bulkInsert(items)
	t.Nodes[t.RootIndex].Parent = -1
	return nil
}

func (t *RTree) bulkInsert(items []InsertItem) int {
	if len(items) <= t.policy.maxChildren {
		node := Node{IsLeaf: true, Parent: -1}
		for _, item := range items {
			node.Entries = append(node.Entries, Entry{
				BBox:  item.BBox,
				Index: item.DataIndex,
			})
		}
		t.Nodes = append(t.Nodes, node)
		return len(t.Nodes) - 1
	}

	bbox := items[0].BBox
	for _, item := range items[1:] {
		bbox = bbox.Union(item.BBox)
	}

	var sortBy func(i, j int) bool
	if bbox.Max[0]-bbox.Min[0] > bbox.Max[1]-bbox.Min[1] {
		sortBy = func(i, j int) bool {
			bi := items[i].BBox
			bj := items[j].BBox
			return bi.Min[0]+bi.Max[0] < bj.Min[0]+bj.Max[0]
		}
	} else {
		sortBy = func(i, j int) bool {
			bi := items[i].BBox
			bj := items[j].BBox
			return bi.Min[1]+bi.Max[1] < bj.Min[1]+bj.Max[1]
		}
	}
	sort.SliceStable(items, sortBy)

	// Split into as many groups as the fan-out allows, each holding at most a
	// full node's worth of items when that is enough to cover everything.
	groups := (len(items) + t.policy.maxChildren - 1) / t.policy.maxChildren
	if groups > t.policy.maxChildren {
		groups = t.policy.maxChildren
	}
	size := (len(items) + groups - 1) / groups

	var children []int
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		children = append(children, t.bulkInsert(items[start:end]))
	}

	parent := Node{IsLeaf: false, Parent: -1}
	for _, c := range children {
		parent.Entries = append(parent.Entries, Entry{BBox: t.calculateBound(c), Index: c})
	}
	t.Nodes = append(t.Nodes, parent)
	idx := len(t.Nodes) - 1
	for _, c := range children {
		t.Nodes[c].Parent = idx
	}
	return idx
}
