package scoring

import (
	"math"
	"math/rand"
	"testing"

	"github.com/peterstace/sdknn/internal/corpus"
	"github.com/peterstace/sdknn/internal/geom"
)

func fixture() *corpus.Corpus {
	b := corpus.NewBuilder()
	b.Add(1, geom.Point{0, 0})
	b.Add(1, geom.Point{3, 0})
	b.Add(2, geom.Point{3, 0})
	b.Add(3, geom.Point{0, 4})
	b.Add(1, geom.Point{3, 4})
	b.Add(2, geom.Point{3, 4})
	b.Add(3, geom.Point{3, 4})
	return b.Build()
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-12 }

func TestScoreAndContributionOnEmptyAccumulator(t *testing.T) {
	c := fixture()
	p := For(c, geom.Point{0, 0}, 2, 0.5)
	var acc Accumulator

	pt := geom.Point{3, 4}
	// d = 5/5 = 1, so proximity is 0 and only coverage counts.
	want := 0.5 * 1.0
	if got := p.Score(pt, c.Checkins(pt), &acc); !near(got, want) {
		t.Errorf("score: got %v want %v", got, want)
	}
	if got := p.Contribution(pt, c.Checkins(pt), &acc); !near(got, want) {
		t.Errorf("contribution: got %v want %v", got, want)
	}

	pt = geom.Point{3, 0}
	want = 0.5*(1-3.0/5)/2 + 0.5*2.0/3
	if got := p.Contribution(pt, c.Checkins(pt), &acc); !near(got, want) {
		t.Errorf("contribution: got %v want %v", got, want)
	}
}

func TestCommit(t *testing.T) {
	c := fixture()
	p := For(c, geom.Point{0, 0}, 2, 0.5)
	var acc Accumulator
	acc.Commit(p, geom.Point{0, 0}, c.Checkins(geom.Point{0, 0}))
	if acc.Empty() || acc.Count != 1 || !near(acc.Distance, 1) || len(acc.Coverage) != 1 {
		t.Fatalf("unexpected accumulator %+v", acc)
	}

	pt := geom.Point{3, 0}
	score := p.Score(pt, c.Checkins(pt), &acc)
	wantScore := 0.5*(1+0.4)/2 + 0.5*2.0/3
	if !near(score, wantScore) {
		t.Errorf("score: got %v want %v", score, wantScore)
	}
	contrib := p.Contribution(pt, c.Checkins(pt), &acc)
	wantContrib := 0.5*0.4/2 + 0.5*1.0/3
	if !near(contrib, wantContrib) {
		t.Errorf("contribution: got %v want %v", contrib, wantContrib)
	}
}

func TestScoreBoundsContribution(t *testing.T) {
	c := fixture()
	rnd := rand.New(rand.NewSource(0))
	for i := 0; i < 200; i++ {
		p := For(c, geom.Point{rnd.Float64() * 3, rnd.Float64() * 4}, 1+rnd.Intn(4), rnd.Float64())
		var acc Accumulator
		places := c.Places()
		for _, j := range rnd.Perm(len(places))[:rnd.Intn(len(places))] {
			acc.Commit(p, places[j], c.Checkins(places[j]))
		}
		for _, pt := range places {
			s := p.Score(pt, c.Checkins(pt), &acc)
			m := p.Contribution(pt, c.Checkins(pt), &acc)
			if s+1e-12 < m {
				t.Fatalf("score %v below contribution %v for %v", s, m, pt)
			}
		}
	}
}

func TestSetScore(t *testing.T) {
	c := fixture()
	p := For(c, geom.Point{0, 0}, 2, 0)
	got := p.SetScore([]geom.Point{{3, 0}, {3, 4}}, c.Checkins)
	if !near(got, 1) {
		t.Errorf("coverage only: got %v want 1", got)
	}

	p = For(c, geom.Point{0, 0}, 2, 1)
	got = p.SetScore([]geom.Point{{0, 0}, {3, 0}}, c.Checkins)
	if !near(got, (1+0.4)/2) {
		t.Errorf("distance only: got %v want 0.7", got)
	}

	p.K = 0
	if got := p.SetScore(nil, c.Checkins); got != 0 {
		t.Errorf("k=0: got %v", got)
	}
}

func TestNoUsers(t *testing.T) {
	p := Params{Query: geom.Point{0, 0}, K: 1, Alpha: 0, Normalizer: 1}
	var acc Accumulator
	if got := p.Score(geom.Point{0, 0}, nil, &acc); got != 0 {
		t.Errorf("got %v", got)
	}
}
