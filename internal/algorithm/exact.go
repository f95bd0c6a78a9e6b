package algorithm

import (
	"math"

	"github.com/peterstace/sdknn/internal/geom"
	"github.com/peterstace/sdknn/internal/scoring"
)

// exact scores every k-combination of places. Among equal scores the last
// combination in lexicographic order wins.
type exact struct {
	base
}

func (e *exact) Query(k int, q geom.Point, alpha float64) (Partial, error) {
	places := e.corpus.Places()
	n := len(places)
	if k > n {
		k = n
	}
	params := scoring.For(e.corpus, q, k, alpha)

	comb := make([]int, k)
	for i := range comb {
		comb[i] = i
	}
	chosen := make([]geom.Point, k)
	best := math.Inf(-1)
	for {
		for i, j := range comb {
			chosen[i] = places[j]
		}
		if score := params.SetScore(chosen, e.corpus.Checkins); score >= best {
			best = score
			e.points = append(e.points[:0], chosen...)
		}
		if !nextCombination(comb, n) {
			break
		}
	}
	e.z = 0
	return e.partial(), nil
}

// nextCombination advances comb to the next k-subset of [0,n) in
// lexicographic order. It returns false after the last one.
func nextCombination(comb []int, n int) bool {
	k := len(comb)
	i := k - 1
	for i >= 0 && comb[i] == n-k+i {
		i--
	}
	if i < 0 {
		return false
	}
	comb[i]++
	for j := i + 1; j < k; j++ {
		comb[j] = comb[j-1] + 1
	}
	return true
}
