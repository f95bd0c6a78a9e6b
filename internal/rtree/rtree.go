package rtree

import (
	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb"
)

// maxFanout bounds the node size so that enumerating every partition during a
// split stays tractable.
const maxFanout = 16

// Node is a node in an R-Tree. Nodes can either be leaf nodes holding entries
// for terminal items, or intermediate nodes holding entries for more nodes.
type Node struct {
	IsLeaf  bool
	Entries []Entry
	Parent  int
}

// Entry is an entry under a node, leading either to terminal items, or more
// nodes. For leaf nodes Index is the caller's data index, otherwise it is the
// index of the child node in RTree.Nodes.
type Entry struct {
	BBox  orb.Bound
	Index int
}

// RTree is an in-memory R-Tree data structure. Nodes are stored in a single
// slice and refer to each other by index.
type RTree struct {
	RootIndex int
	Nodes     []Node

	policy InsertionPolicy
}

// InsertionPolicy alters the behaviour when inserting new data to an RTree.
type InsertionPolicy struct {
	minChildren int
	maxChildren int
}

// NewInsertionPolicy creates a new insertion policy with the given node size
// parameters.
func NewInsertionPolicy(minChildren, maxChildren int) (InsertionPolicy, error) {
	if minChildren < 1 {
		return InsertionPolicy{}, errors.Newf("min children must be at least 1, got %d", minChildren)
	}
	if maxChildren < 2 || maxChildren > maxFanout {
		return InsertionPolicy{}, errors.Newf("max children must be between 2 and %d, got %d", maxFanout, maxChildren)
	}
	if minChildren > maxChildren/2 {
		return InsertionPolicy{}, errors.New("min children must be less than or equal to half of the max children")
	}
	return InsertionPolicy{minChildren, maxChildren}, nil
}

// New creates an empty R-Tree whose nodes hold between minChildren and
// maxChildren entries (the root may hold fewer).
func New(minChildren, maxChildren int) (*RTree, error) {
	policy, err := NewInsertionPolicy(minChildren, maxChildren)
	if err != nil {
		return nil, err
	}
	return &RTree{policy: policy}, nil
}

// IsEmpty reports whether the tree holds no items.
func (t *RTree) IsEmpty() bool {
	return len(t.Nodes) == 0 || len(t.Nodes[t.RootIndex].Entries) == 0
}

// Root returns the root node. It must not be called on an empty tree.
func (t *RTree) Root() *Node {
	return &t.Nodes[t.RootIndex]
}

// Child returns the node that a non-leaf entry points to.
func (t *RTree) Child(e Entry) *Node {
	return &t.Nodes[e.Index]
}

// Height returns the number of levels on the longest root-to-leaf path.
func (t *RTree) Height() int {
	if t.IsEmpty() {
		return 0
	}
	var depth func(n int) int
	depth = func(n int) int {
		node := &t.Nodes[n]
		if node.IsLeaf {
			return 1
		}
		deepest := 0
		for _, entry := range node.Entries {
			if d := depth(entry.Index); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	}
	return depth(t.RootIndex)
}

// calculateBound calculates the smallest bounding box that fits a node.
func (t *RTree) calculateBound(n int) orb.Bound {
	bb := t.Nodes[n].Entries[0].BBox
	for _, entry := range t.Nodes[n].Entries[1:] {
		bb = bb.Union(entry.BBox)
	}
	return bb
}

// enlargement returns how much additional area the existing box would have to
// enlarge by to accommodate the additional box.
func enlargement(existing, additional orb.Bound) float64 {
	return area(existing.Union(additional)) - area(existing)
}

func area(bb orb.Bound) float64 {
	return (bb.Max[0] - bb.Min[0]) * (bb.Max[1] - bb.Min[1])
}
