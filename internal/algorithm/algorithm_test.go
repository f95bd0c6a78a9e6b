package algorithm

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/peterstace/sdknn/internal/corpus"
	"github.com/peterstace/sdknn/internal/geom"
)

func randomCorpus(rnd *rand.Rand, places, users int) *corpus.Corpus {
	b := corpus.NewBuilder()
	for i := 0; i < places; i++ {
		p := geom.Point{rnd.Float64() * 10, rnd.Float64() * 10}
		for j := 0; j <= rnd.Intn(3); j++ {
			b.Add(corpus.UserID(rnd.Intn(users)), p)
		}
	}
	return b.Build()
}

func scenarioCorpus() *corpus.Corpus {
	b := corpus.NewBuilder()
	b.Add(1, geom.Point{0, 0})
	b.Add(1, geom.Point{1, 0})
	b.Add(2, geom.Point{1, 0})
	b.Add(3, geom.Point{0, 2})
	b.Add(1, geom.Point{3, 3})
	b.Add(2, geom.Point{3, 3})
	b.Add(3, geom.Point{3, 3})
	return b.Build()
}

func run(t *testing.T, name string, c *corpus.Corpus, opts Options, k int, q geom.Point, alpha float64) (Partial, ResultSet) {
	t.Helper()
	a, err := New(name, c, opts)
	if err != nil {
		t.Fatalf("new %s: %v", name, err)
	}
	if a.Name() != name {
		t.Fatalf("name: got %q want %q", a.Name(), name)
	}
	if err := a.Preprocess(q, k, alpha); err != nil {
		t.Fatalf("%s preprocess: %v", name, err)
	}
	p, err := a.Query(k, q, alpha)
	if err != nil {
		t.Fatalf("%s query: %v", name, err)
	}
	rs, err := a.RetrieveResults(k, q, alpha)
	if err != nil {
		t.Fatalf("%s retrieve: %v", name, err)
	}
	return p, rs
}

func TestRegistry(t *testing.T) {
	c := scenarioCorpus()
	for i, name := range Names {
		if Index(name) != i {
			t.Errorf("index of %s: got %d want %d", name, Index(name), i)
		}
		if _, err := New(name, c, DefaultOptions()); err != nil {
			t.Errorf("new %s: %v", name, err)
		}
	}
	if Index("bogus") != -1 {
		t.Errorf("unknown names must have index -1")
	}
	if _, err := New("bogus", c, DefaultOptions()); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestNextCombination(t *testing.T) {
	binomial := func(n, k int) int {
		r := 1
		for i := 1; i <= k; i++ {
			r = r * (n - k + i) / i
		}
		return r
	}
	for n := 0; n <= 7; n++ {
		for k := 0; k <= n; k++ {
			comb := make([]int, k)
			for i := range comb {
				comb[i] = i
			}
			count := 1
			prev := fmt.Sprint(comb)
			for nextCombination(comb, n) {
				count++
				cur := fmt.Sprint(comb)
				if cur <= prev && k > 0 && n < 10 {
					t.Fatalf("n=%d k=%d: %s does not follow %s", n, k, cur, prev)
				}
				prev = cur
			}
			if count != binomial(n, k) {
				t.Errorf("n=%d k=%d: got %d combinations want %d", n, k, count, binomial(n, k))
			}
		}
	}
}

func TestScenario(t *testing.T) {
	c := scenarioCorpus()
	q := geom.Point{0, 0}
	for _, name := range []string{"exact", "greedy", "ilp", "re-heap", "rtree"} {
		opts := DefaultOptions()
		_, rs := run(t, name, c, opts, 2, q, 0)
		if len(rs.Points) != 2 || math.Abs(rs.Score-1) > 1e-9 {
			t.Errorf("%s alpha=0: got %v score %v", name, rs.Points, rs.Score)
		}

		_, rs = run(t, name, c, opts, 1, q, 1)
		if len(rs.Points) != 1 || rs.Points[0] != q {
			t.Errorf("%s alpha=1: got %v want [%v]", name, rs.Points, q)
		}
	}
}

func TestScenarioWithDefaultOptions(t *testing.T) {
	c := scenarioCorpus()
	q := geom.Point{0, 0}
	for _, name := range []string{"rtree", "re-heap"} {
		p, rs := run(t, name, c, DefaultOptions(), 2, q, 0)
		if len(rs.Points) != 2 {
			t.Errorf("%s: got %v, want two places", name, rs.Points)
		}
		if math.Abs(rs.Score-1) > 1e-9 {
			t.Errorf("%s: got %v score %v", name, rs.Points, rs.Score)
		}
		if p.Prunes != 0 {
			t.Errorf("%s: pruned %d branches with pruning off", name, p.Prunes)
		}
	}
}

func TestReHeapNotWorseThanNaive(t *testing.T) {
	var worse, total int
	for seed := int64(0); seed < 60; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		c := randomCorpus(rnd, 10+rnd.Intn(30), 12)
		bb := c.Bound()
		for _, alpha := range []float64{0, 0.5, 1} {
			for k := 2; k <= 5; k++ {
				q := geom.Point{
					bb.Min[0] + rnd.Float64()*(bb.Max[0]-bb.Min[0]),
					bb.Min[1] + rnd.Float64()*(bb.Max[1]-bb.Min[1]),
				}
				_, naive := run(t, "rtree", c, DefaultOptions(), k, q, alpha)
				_, reheap := run(t, "re-heap", c, DefaultOptions(), k, q, alpha)
				total++
				if naive.Score > reheap.Score+1e-9 {
					worse++
					t.Errorf("seed=%d alpha=%v k=%d q=%v: naive %v beats re-heap %v",
						seed, alpha, k, q, naive.Score, reheap.Score)
				}
			}
		}
	}
	t.Logf("naive beat re-heap in %d/%d queries", worse, total)
}

func TestExactDominates(t *testing.T) {
	for seed := int64(0); seed < 6; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		c := randomCorpus(rnd, 4+rnd.Intn(5), 6)
		bb := c.Bound()
		for _, alpha := range []float64{0, 0.3, 0.7, 1} {
			for k := 1; k <= 3; k++ {
				q := geom.Point{
					bb.Min[0] + rnd.Float64()*(bb.Max[0]-bb.Min[0]),
					bb.Min[1] + rnd.Float64()*(bb.Max[1]-bb.Min[1]),
				}
				opts := DefaultOptions()
				opts.Pruning = seed%2 == 0
				_, best := run(t, "exact", c, opts, k, q, alpha)
				if len(best.Points) != k {
					t.Fatalf("exact returned %d points for k=%d", len(best.Points), k)
				}

				for _, name := range Names[1:] {
					p, rs := run(t, name, c, opts, k, q, alpha)
					if rs.Score > best.Score+1e-9 {
						t.Errorf("seed=%d alpha=%v k=%d: %s score %v beats exact %v",
							seed, alpha, k, name, rs.Score, best.Score)
					}
					if len(rs.Points) > k {
						t.Errorf("%s returned %d points for k=%d", name, len(rs.Points), k)
					}
					if !opts.Pruning && len(rs.Points) != k {
						t.Errorf("%s returned %d points for k=%d", name, len(rs.Points), k)
					}
					switch name {
					case "lp":
						if p.Z < best.Score-1e-6 {
							t.Errorf("seed=%d alpha=%v k=%d: LP bound %v below optimum %v", seed, alpha, k, p.Z, best.Score)
						}
					case "ilp":
						if math.Abs(rs.Score-best.Score) > 1e-6 {
							t.Errorf("seed=%d alpha=%v k=%d: ILP score %v, optimum %v", seed, alpha, k, rs.Score, best.Score)
						}
						if p.Truncated {
							t.Errorf("ILP truncated on a tiny problem")
						}
					}
				}
			}
		}
	}
}

func TestDistanceHeuristicPicksNearest(t *testing.T) {
	c := scenarioCorpus()
	_, rs := run(t, "dist", c, DefaultOptions(), 2, geom.Point{0, 0}, 0.5)
	want := []geom.Point{{0, 0}, {1, 0}}
	if len(rs.Points) != 2 || rs.Points[0] != want[0] || rs.Points[1] != want[1] {
		t.Errorf("got %v want %v", rs.Points, want)
	}
}

func TestUserHeuristicPicksPopular(t *testing.T) {
	c := scenarioCorpus()
	_, rs := run(t, "user", c, DefaultOptions(), 2, geom.Point{0, 0}, 0.5)
	want := []geom.Point{{3, 3}, {1, 0}}
	if len(rs.Points) != 2 || rs.Points[0] != want[0] || rs.Points[1] != want[1] {
		t.Errorf("got %v want %v", rs.Points, want)
	}
}

func TestLPTooLarge(t *testing.T) {
	c := scenarioCorpus()
	opts := DefaultOptions()
	opts.LP.MaxColumns = 5
	for _, name := range []string{"lp", "ilp"} {
		a, err := New(name, c, opts)
		if err != nil {
			t.Fatal(err)
		}
		if err := a.Preprocess(geom.Point{0, 0}, 1, 0.5); !errors.Is(err, ErrProblemTooLarge) {
			t.Errorf("%s: expected ErrProblemTooLarge, got %v", name, err)
		}
	}
}

func TestILPNodeLimit(t *testing.T) {
	rnd := rand.New(rand.NewSource(9))
	c := randomCorpus(rnd, 8, 6)
	opts := DefaultOptions()
	opts.LP.MaxNodes = 1
	q := c.Bound().Center()
	_, exact := run(t, "exact", c, opts, 3, q, 0.5)
	p, rs := run(t, "ilp", c, opts, 3, q, 0.5)
	if p.Z > exact.Score+1e-9 {
		t.Errorf("incumbent %v exceeds the optimum %v", p.Z, exact.Score)
	}
	if len(rs.Points) != 3 {
		t.Errorf("got %d points", len(rs.Points))
	}
}

func TestEmptyCorpus(t *testing.T) {
	c := corpus.NewBuilder().Build()
	for _, name := range Names {
		_, rs := run(t, name, c, DefaultOptions(), 0, geom.Point{0, 0}, 0.5)
		if len(rs.Points) != 0 || rs.Score != 0 {
			t.Errorf("%s: got %+v", name, rs)
		}
	}
}

func TestQueryBeforePreprocess(t *testing.T) {
	a, err := New("re-heap", scenarioCorpus(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Query(1, geom.Point{0, 0}, 0.5); err == nil {
		t.Errorf("expected error")
	}
}
