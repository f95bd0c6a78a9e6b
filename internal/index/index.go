// Package index implements the user coverage augmented R-tree and the best
// first branch and bound search that answers SDkNN queries over it.
package index

import (
	"github.com/peterstace/sdknn/internal/corpus"
	"github.com/peterstace/sdknn/internal/geom"
	"github.com/peterstace/sdknn/internal/rtree"
	"github.com/peterstace/sdknn/internal/sets"
)

// Options controls how the underlying tree is built. Only performance depends
// on them.
type Options struct {
	MaxChildren int
	// MinChildren defaults to MaxChildren/2 when zero.
	MinChildren int
	// Bulk builds the tree with a bulk load instead of repeated insertion.
	Bulk bool
}

// Branch is one child slot of a tree node. A branch either leads to further
// branches or wraps a single place.
type Branch struct {
	Bound    geom.Rect
	Children []int
	// Place is the index of the wrapped place in the corpus, or -1.
	Place int
}

// IsLeaf reports whether the branch wraps a place.
func (b *Branch) IsLeaf() bool { return b.Place >= 0 }

// Index is an R-tree over the places of a corpus where every branch knows the
// sorted users reachable beneath it. It is read-only once built.
type Index struct {
	corpus   *corpus.Corpus
	tree     *rtree.RTree
	branches []Branch
	coverage [][]corpus.UserID
	root     []int
}

// Build indexes every place of c.
func Build(c *corpus.Corpus, opts Options) (*Index, error) {
	minChildren := opts.MinChildren
	if minChildren == 0 {
		minChildren = opts.MaxChildren / 2
	}
	tree, err := rtree.New(minChildren, opts.MaxChildren)
	if err != nil {
		return nil, err
	}

	places := c.Places()
	if opts.Bulk {
		items := make([]rtree.InsertItem, len(places))
		for i, p := range places {
			items[i] = rtree.InsertItem{BBox: p.Bound(), DataIndex: i}
		}
		if err := tree.BulkLoad(items); err != nil {
			return nil, err
		}
	} else {
		for i, p := range places {
			tree.Insert(p.Bound(), i)
		}
	}

	idx := &Index{corpus: c, tree: tree}
	idx.augment()
	return idx, nil
}

// augment assigns dense branch ids in post-order and fills the coverage table
// bottom up.
func (idx *Index) augment() {
	if idx.tree.IsEmpty() {
		return
	}
	places := idx.corpus.Places()

	var visit func(e rtree.Entry, leaf bool) int
	visit = func(e rtree.Entry, leaf bool) int {
		b := Branch{Bound: e.BBox, Place: -1}
		var users []corpus.UserID
		if leaf {
			b.Place = e.Index
			users = idx.corpus.Checkins(places[e.Index])
		} else {
			child := idx.tree.Child(e)
			for _, ce := range child.Entries {
				id := visit(ce, child.IsLeaf)
				b.Children = append(b.Children, id)
				users = append(users, idx.coverage[id]...)
			}
			users = sets.Normalize(users)
		}
		idx.branches = append(idx.branches, b)
		idx.coverage = append(idx.coverage, users)
		return len(idx.branches) - 1
	}

	root := idx.tree.Root()
	for _, e := range root.Entries {
		idx.root = append(idx.root, visit(e, root.IsLeaf))
	}
}

// Corpus is the indexed corpus.
func (idx *Index) Corpus() *corpus.Corpus { return idx.corpus }

// RootBranches returns the ids of the root's children.
func (idx *Index) RootBranches() []int { return idx.root }

// NumBranches is the size of the coverage table.
func (idx *Index) NumBranches() int { return len(idx.branches) }

// Branch returns the branch with the given id.
func (idx *Index) Branch(id int) *Branch { return &idx.branches[id] }

// Coverage returns the sorted users reachable beneath a branch.
func (idx *Index) Coverage(id int) []corpus.UserID { return idx.coverage[id] }

// Height is the number of tree levels.
func (idx *Index) Height() int { return idx.tree.Height() }

// MinDist returns the point of the branch's rectangle closest to q.
func (idx *Index) MinDist(id int, q geom.Point) geom.Point {
	return geom.MinDistPoint(idx.branches[id].Bound, q)
}

// representative is the point a branch is scored at: the place itself for a
// leaf, the closest point of the rectangle otherwise.
func (idx *Index) representative(id int, q geom.Point) geom.Point {
	b := &idx.branches[id]
	if b.IsLeaf() {
		return idx.corpus.Places()[b.Place]
	}
	return idx.MinDist(id, q)
}
