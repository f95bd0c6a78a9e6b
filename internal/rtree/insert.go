package rtree

import (
	"math"
	"math/bits"

	"github.com/paulmach/orb"
)

// Insert adds a new data item to the RTree.
func (t *RTree) Insert(bb orb.Bound, dataIndex int) {
	if len(t.Nodes) == 0 {
		t.Nodes = append(t.Nodes, Node{IsLeaf: true, Entries: nil, Parent: -1})
		t.RootIndex = 0
	}

	leaf := t.chooseLeafNode(bb)
	t.Nodes[leaf].Entries = append(t.Nodes[leaf].Entries, Entry{BBox: bb, Index: dataIndex})

	current := leaf
	for current != t.RootIndex {
		parent := t.Nodes[current].Parent
		for i := range t.Nodes[parent].Entries {
			e := &t.Nodes[parent].Entries[i]
			if e.Index == current {
				e.BBox = e.BBox.Union(bb)
				break
			}
		}
		current = parent
	}

	if len(t.Nodes[leaf].Entries) <= t.policy.maxChildren {
		return
	}

	newNode := t.splitNode(leaf)
	root1, root2 := t.adjustTree(leaf, newNode)

	if root2 != -1 {
		t.joinRoots(root1, root2)
	}
}

func (t *RTree) joinRoots(r1, r2 int) {
	t.Nodes = append(t.Nodes, Node{
		IsLeaf: false,
		Entries: []Entry{
			{BBox: t.calculateBound(r1), Index: r1},
			{BBox: t.calculateBound(r2), Index: r2},
		},
		Parent: -1,
	})
	t.RootIndex = len(t.Nodes) - 1
	t.Nodes[r1].Parent = t.RootIndex
	t.Nodes[r2].Parent = t.RootIndex
}

func (t *RTree) adjustTree(n, nn int) (int, int) {
	for {
		if n == t.RootIndex {
			return n, nn
		}
		parent := t.Nodes[n].Parent
		parentEntry := -1
		for i, entry := range t.Nodes[parent].Entries {
			if entry.Index == n {
				parentEntry = i
				break
			}
		}
		t.Nodes[parent].Entries[parentEntry].BBox = t.calculateBound(n)

		// AT4
		pp := -1
		if nn != -1 {
			newEntry := Entry{
				BBox:  t.calculateBound(nn),
				Index: nn,
			}
			t.Nodes[parent].Entries = append(t.Nodes[parent].Entries, newEntry)
			t.Nodes[nn].Parent = parent
			if len(t.Nodes[parent].Entries) > t.policy.maxChildren {
				pp = t.splitNode(parent)
			}
		}

		n, nn = parent, pp
	}
}

// splitNode splits node with index n into two nodes. The first node replaces
// n, and the second node is newly created. The return value is the index of
// the new node.
func (t *RTree) splitNode(n int) int {
	count := len(t.Nodes[n].Entries)
	var (
		// All zeros would not be valid split, so start at 1.
		minSplit = uint64(1)
		// The MSB should always be 0, to remove duplicates from inverting the
		// bit pattern. So we raise 2 to the power of one less than the number
		// of entries rather than the number of entries.
		//
		// E.g. for 4 entries, we want the following bit patterns:
		// 0001, 0010, 0011, 0100, 0101, 0110, 0111.
		//
		// (1 << (4 - 1)) - 1 == 0111, so the maths checks out.
		maxSplit = uint64((1 << (count - 1)) - 1)
	)
	bestArea := math.Inf(+1)
	var bestSplit uint64
	for split := minSplit; split <= maxSplit; split++ {
		ones := bits.OnesCount64(split)
		if ones < t.policy.minChildren || count-ones < t.policy.minChildren {
			continue
		}
		var bboxA, bboxB orb.Bound
		var hasA, hasB bool
		for i, entry := range t.Nodes[n].Entries {
			if split&(1<<i) == 0 {
				if hasA {
					bboxA = bboxA.Union(entry.BBox)
				} else {
					bboxA, hasA = entry.BBox, true
				}
			} else {
				if hasB {
					bboxB = bboxB.Union(entry.BBox)
				} else {
					bboxB, hasB = entry.BBox, true
				}
			}
		}
		combinedArea := area(bboxA) + area(bboxB)
		if combinedArea < bestArea {
			bestArea = combinedArea
			bestSplit = split
		}
	}

	var entriesA, entriesB []Entry
	for i, entry := range t.Nodes[n].Entries {
		if bestSplit&(1<<i) == 0 {
			entriesA = append(entriesA, entry)
		} else {
			entriesB = append(entriesB, entry)
		}
	}

	// Use the existing node for A, and create a new node for B.
	t.Nodes[n].Entries = entriesA
	t.Nodes = append(t.Nodes, Node{
		IsLeaf:  t.Nodes[n].IsLeaf,
		Entries: entriesB,
		Parent:  -1,
	})
	if !t.Nodes[n].IsLeaf {
		for _, entry := range entriesB {
			t.Nodes[entry.Index].Parent = len(t.Nodes) - 1
		}
	}
	return len(t.Nodes) - 1
}

func (t *RTree) chooseLeafNode(bb orb.Bound) int {
	node := t.RootIndex

	for {
		if t.Nodes[node].IsLeaf {
			return node
		}
		entries := t.Nodes[node].Entries
		bestDelta := enlargement(entries[0].BBox, bb)
		bestEntry := 0
		for i := 1; i < len(entries); i++ {
			delta := enlargement(entries[i].BBox, bb)
			if delta < bestDelta {
				bestDelta = delta
				bestEntry = i
			} else if delta == bestDelta && area(entries[i].BBox) < area(entries[bestEntry].BBox) {
				// Area is used as a tie breaking if the enlargements are the same.
				bestEntry = i
			}
		}
		node = entries[bestEntry].Index
	}
}
