package algorithm

import (
	"golang.org/x/exp/slices"

	"github.com/peterstace/sdknn/internal/corpus"
	"github.com/peterstace/sdknn/internal/geom"
	"github.com/peterstace/sdknn/internal/scoring"
)

type rankFunc func(p scoring.Params, pt geom.Point, users []corpus.UserID) float64

func rankCombined(p scoring.Params, pt geom.Point, users []corpus.UserID) float64 {
	return p.Alpha*rankDistance(p, pt, users) + (1-p.Alpha)*rankUsers(p, pt, users)
}

func rankDistance(p scoring.Params, pt geom.Point, _ []corpus.UserID) float64 {
	return p.Proximity(pt)
}

func rankUsers(p scoring.Params, _ geom.Point, users []corpus.UserID) float64 {
	if p.TotalUsers == 0 {
		return 0
	}
	return float64(len(users)) / float64(p.TotalUsers)
}

// heuristic ranks each place on its own and keeps the k best.
type heuristic struct {
	base
	rank rankFunc
}

func (h *heuristic) Query(k int, q geom.Point, alpha float64) (Partial, error) {
	params := scoring.For(h.corpus, q, k, alpha)
	type ranked struct {
		pt    geom.Point
		score float64
	}
	all := make([]ranked, 0, h.corpus.NumPlaces())
	for _, pt := range h.corpus.Places() {
		all = append(all, ranked{pt, h.rank(params, pt, h.corpus.Checkins(pt))})
	}
	slices.SortStableFunc(all, func(a, b ranked) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})
	if k > len(all) {
		k = len(all)
	}
	h.points = h.points[:0]
	for _, r := range all[:k] {
		h.points = append(h.points, r.pt)
	}
	return h.partial(), nil
}
