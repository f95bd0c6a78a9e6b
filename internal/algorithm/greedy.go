package algorithm

import (
	"math"

	"github.com/peterstace/sdknn/internal/geom"
	"github.com/peterstace/sdknn/internal/scoring"
)

// greedy commits, k times, the remaining place with the best optimistic
// score against what has been committed so far.
type greedy struct {
	base
}

func (g *greedy) Query(k int, q geom.Point, alpha float64) (Partial, error) {
	params := scoring.For(g.corpus, q, k, alpha)
	remaining := append([]geom.Point(nil), g.corpus.Places()...)

	var acc scoring.Accumulator
	g.points = g.points[:0]
	for i := 0; i < k && len(remaining) > 0; i++ {
		best, bestScore := -1, math.Inf(-1)
		for j, pt := range remaining {
			if s := params.Score(pt, g.corpus.Checkins(pt), &acc); s >= bestScore {
				best, bestScore = j, s
			}
		}
		pt := remaining[best]
		g.points = append(g.points, pt)
		acc.Commit(params, pt, g.corpus.Checkins(pt))
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return g.partial(), nil
}
