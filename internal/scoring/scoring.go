// Package scoring evaluates candidate places against a query as a weighted sum
// of spatial proximity and social coverage.
package scoring

import (
	"github.com/peterstace/sdknn/internal/corpus"
	"github.com/peterstace/sdknn/internal/geom"
	"github.com/peterstace/sdknn/internal/sets"
)

// Params fixes everything a score depends on apart from the candidate and the
// accumulated selection.
type Params struct {
	Query geom.Point
	K     int
	Alpha float64

	// Normalizer divides raw distances so that they fall in [0,1].
	Normalizer float64
	TotalUsers int
}

// For builds the parameters of a query over c.
func For(c *corpus.Corpus, q geom.Point, k int, alpha float64) Params {
	return Params{
		Query:      q,
		K:          k,
		Alpha:      alpha,
		Normalizer: c.Normalizer(),
		TotalUsers: c.NumUsers(),
	}
}

// Proximity is 1 - d(q,p), where d is the normalized distance to the query.
func (p Params) Proximity(pt geom.Point) float64 {
	return 1 - geom.Distance(p.Query, pt)/p.Normalizer
}

// Accumulator is the running state of the points committed to a result.
type Accumulator struct {
	Coverage []corpus.UserID
	Distance float64
	Count    int
}

// Empty reports whether nothing has been committed yet.
func (a *Accumulator) Empty() bool { return a.Count == 0 }

// Commit adds pt to the accumulated selection.
func (a *Accumulator) Commit(p Params, pt geom.Point, users []corpus.UserID) {
	a.Coverage = sets.Union(a.Coverage, users)
	a.Distance += p.Proximity(pt)
	a.Count++
}

// Score is an optimistic bound on adding pt to acc. The spatial term assumes
// pt fills every remaining slot.
func (p Params) Score(pt geom.Point, users []corpus.UserID, acc *Accumulator) float64 {
	spatial := p.perSlot(p.Proximity(pt) + acc.Distance)
	coverage := p.fraction(sets.UnionSize(acc.Coverage, users))
	return p.combine(spatial, coverage)
}

// Contribution is the marginal value of adding pt to acc.
func (p Params) Contribution(pt geom.Point, users []corpus.UserID, acc *Accumulator) float64 {
	spatial := p.perSlot(p.Proximity(pt))
	coverage := p.fraction(sets.DifferenceSize(users, acc.Coverage))
	return p.combine(spatial, coverage)
}

// SetScore is the objective value of a complete selection.
func (p Params) SetScore(points []geom.Point, usersOf func(geom.Point) []corpus.UserID) float64 {
	if p.K <= 0 {
		return 0
	}
	var acc Accumulator
	for _, pt := range points {
		acc.Commit(p, pt, usersOf(pt))
	}
	return p.combine(p.perSlot(acc.Distance), p.fraction(len(acc.Coverage)))
}

func (p Params) combine(spatial, coverage float64) float64 {
	return p.Alpha*spatial + (1-p.Alpha)*coverage
}

func (p Params) perSlot(v float64) float64 {
	if p.K <= 0 {
		return 0
	}
	return v / float64(p.K)
}

func (p Params) fraction(n int) float64 {
	if p.TotalUsers == 0 {
		return 0
	}
	return float64(n) / float64(p.TotalUsers)
}
