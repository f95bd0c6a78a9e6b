package index

import (
	"github.com/peterstace/sdknn/internal/corpus"
	"github.com/peterstace/sdknn/internal/geom"
	"github.com/peterstace/sdknn/internal/scoring"
	"github.com/peterstace/sdknn/internal/sets"
)

// Variant selects how a leaf is accepted once it reaches the top of the
// frontier.
type Variant int

const (
	// Naive accepts a leaf with the score it was queued under.
	Naive Variant = iota
	// ReHeap recomputes the leaf's marginal contribution and only accepts it
	// when nothing left in the frontier can beat it.
	ReHeap
)

func (v Variant) String() string {
	switch v {
	case Naive:
		return "naive"
	case ReHeap:
		return "re-heap"
	default:
		return "unknown"
	}
}

// QueryOptions parameterises a single search.
type QueryOptions struct {
	K       int
	Alpha   float64
	Variant Variant
	// Pruning discards branches dominated by an already accepted place.
	Pruning bool
}

// Result is the outcome of a search.
type Result struct {
	// Points are the accepted places in acceptance order.
	Points  []geom.Point
	Prunes  int
	Reheaps int
	// Exhausted is set when the frontier ran dry before K places were
	// accepted.
	Exhausted bool
}

type committed struct {
	pt    geom.Point
	dist  float64
	users []corpus.UserID
}

// Query runs the branch and bound search for q. The index is not modified, so
// concurrent queries are safe.
func (idx *Index) Query(q geom.Point, opts QueryOptions) Result {
	params := scoring.For(idx.corpus, q, opts.K, opts.Alpha)
	places := idx.corpus.Places()

	var (
		res      Result
		acc      scoring.Accumulator
		accepted []committed
	)
	frontier := NewFrontier()
	for _, id := range idx.root {
		frontier.Push(id, params.Score(idx.representative(id, q), idx.coverage[id], &acc))
	}

	for len(res.Points) < opts.K && frontier.Len() > 0 {
		id, score := frontier.Pop()
		b := &idx.branches[id]

		if opts.Pruning && idx.dominated(id, q, opts.Alpha, accepted) {
			res.Prunes++
			continue
		}

		if !b.IsLeaf() {
			for _, child := range b.Children {
				frontier.Push(child, params.Contribution(idx.representative(child, q), idx.coverage[child], &acc))
			}
			continue
		}

		pt := places[b.Place]
		users := idx.coverage[id]
		if opts.Variant == ReHeap {
			c := params.Contribution(pt, users, &acc)
			if c != score && frontier.Len() > 0 && c <= frontier.PeekScore() {
				frontier.Push(id, c)
				res.Reheaps++
				continue
			}
		}

		res.Points = append(res.Points, pt)
		acc.Commit(params, pt, users)
		if opts.Pruning {
			accepted = append(accepted, committed{pt: pt, dist: geom.Distance(pt, q), users: users})
		}
	}
	res.Exhausted = len(res.Points) < opts.K
	return res
}

// dominated reports whether an accepted place is at least as close to q as
// the branch and already covers every user beneath it. Distance is ignored
// when alpha is zero.
func (idx *Index) dominated(id int, q geom.Point, alpha float64, accepted []committed) bool {
	if len(accepted) == 0 {
		return false
	}
	users := idx.coverage[id]
	// A leaf's bound is its place, so this is the distance to the
	// representative point for every branch.
	dist := geom.MinDist(idx.branches[id].Bound, q)
	for _, c := range accepted {
		if alpha != 0 && c.dist > dist {
			continue
		}
		if sets.Includes(c.users, users) {
			return true
		}
	}
	return false
}
