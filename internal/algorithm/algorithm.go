// Package algorithm exposes every SDkNN strategy behind one interface so that
// the benchmark driver can time them uniformly.
package algorithm

import (
	"github.com/cockroachdb/errors"
	"github.com/peterstace/sdknn/internal/corpus"
	"github.com/peterstace/sdknn/internal/geom"
	"github.com/peterstace/sdknn/internal/index"
	"github.com/peterstace/sdknn/internal/scoring"
)

// Partial is what the timed query phase produces.
type Partial struct {
	Points  []geom.Point
	Prunes  int
	Reheaps int
	// Z is the solver objective for the LP based strategies, zero otherwise.
	Z float64
	// Truncated is set when a solver stopped at its node limit and returned
	// its best incumbent.
	Truncated bool
}

// ResultSet is a finished selection with its objective value.
type ResultSet struct {
	Points []geom.Point
	Score  float64
	Z      float64
}

// Algorithm is a strategy for answering a query. Preprocess and
// RetrieveResults are not timed; Query is.
type Algorithm interface {
	Name() string
	Preprocess(q geom.Point, k int, alpha float64) error
	Query(k int, q geom.Point, alpha float64) (Partial, error)
	RetrieveResults(k int, q geom.Point, alpha float64) (ResultSet, error)
}

// LPOptions bounds the work done by the LP and ILP strategies.
type LPOptions struct {
	Tolerance  float64
	MaxNodes   int
	MaxColumns int
}

// Options configures the strategies that need it.
type Options struct {
	Index index.Options
	// Pruning discards branches dominated by an accepted place. It can leave
	// fewer than k places in the result.
	Pruning bool
	LP      LPOptions
}

// DefaultOptions are used by the tests and as the base for configuration.
func DefaultOptions() Options {
	return Options{
		Index: index.Options{MaxChildren: 4},
		LP:    LPOptions{Tolerance: 1e-10, MaxNodes: 10000, MaxColumns: 2000},
	}
}

var (
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
	ErrProblemTooLarge  = errors.New("problem too large for the LP solver")
)

// Names lists the strategies in the order of their stable index.
var Names = []string{"exact", "naive", "dist", "user", "lp", "ilp", "greedy", "rtree", "re-heap"}

// Index returns the stable index of a strategy name, or -1.
func Index(name string) int {
	for i, n := range Names {
		if n == name {
			return i
		}
	}
	return -1
}

// New constructs the named strategy over c.
func New(name string, c *corpus.Corpus, opts Options) (Algorithm, error) {
	b := base{name: name, corpus: c}
	switch name {
	case "exact":
		return &exact{base: b}, nil
	case "naive":
		return &heuristic{base: b, rank: rankCombined}, nil
	case "dist":
		return &heuristic{base: b, rank: rankDistance}, nil
	case "user":
		return &heuristic{base: b, rank: rankUsers}, nil
	case "greedy":
		return &greedy{base: b}, nil
	case "lp":
		return &linear{base: b, opts: opts.LP}, nil
	case "ilp":
		return &linear{base: b, opts: opts.LP, integral: true}, nil
	case "rtree":
		return &indexed{base: b, opts: opts, variant: index.Naive}, nil
	case "re-heap":
		return &indexed{base: b, opts: opts, variant: index.ReHeap}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "%q", name)
	}
}

// base holds the state every strategy shares. Strategies record their
// selection in points and the default RetrieveResults scores it.
type base struct {
	name   string
	corpus *corpus.Corpus
	points []geom.Point
	z      float64
}

func (b *base) Name() string { return b.name }

func (b *base) Preprocess(geom.Point, int, float64) error { return nil }

func (b *base) RetrieveResults(k int, q geom.Point, alpha float64) (ResultSet, error) {
	return ResultSet{
		Points: b.points,
		Score:  scoring.For(b.corpus, q, k, alpha).SetScore(b.points, b.corpus.Checkins),
		Z:      b.z,
	}, nil
}

func (b *base) partial() Partial {
	return Partial{Points: b.points, Z: b.z}
}
