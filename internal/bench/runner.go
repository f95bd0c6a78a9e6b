package bench

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/peterstace/sdknn/internal/algorithm"
	"github.com/peterstace/sdknn/internal/corpus"
	"github.com/peterstace/sdknn/internal/geom"
	"github.com/peterstace/sdknn/internal/logger"
)

// Sink receives the per-algorithm summaries.
type Sink interface {
	Write(ctx context.Context, s Stats) error
}

// Observer receives every per-query line.
type Observer interface {
	Observe(s Stats)
}

// Batch is the set of runs to perform.
type Batch struct {
	Algorithms []string
	Queries    []geom.Point
	K          int
	Alpha      float64
}

// Runner times algorithms over a corpus.
type Runner struct {
	Corpus  *corpus.Corpus
	Dataset string
	Options algorithm.Options

	// Out receives one line per query and one per summary.
	Out      io.Writer
	Sinks    []Sink
	Observer Observer
	Logger   *slog.Logger

	now func() time.Time
}

func (r *Runner) log() *slog.Logger {
	if r.Logger == nil {
		return logger.L()
	}
	return r.Logger
}

func (r *Runner) since(start time.Time) time.Duration {
	if r.now == nil {
		return time.Since(start)
	}
	return r.now().Sub(start)
}

func (r *Runner) start() time.Time {
	if r.now == nil {
		return time.Now()
	}
	return r.now()
}

// Run executes every algorithm against every query, in order, and returns the
// summary of each algorithm.
func (r *Runner) Run(ctx context.Context, b Batch) ([]Stats, error) {
	out := r.Out
	if out == nil {
		out = io.Discard
	}
	var summaries []Stats
	for _, name := range b.Algorithms {
		if algorithm.Index(name) < 0 {
			return summaries, errors.Wrapf(algorithm.ErrUnknownAlgorithm, "%q", name)
		}
		runs := make([]Stats, 0, len(b.Queries))
		for i, q := range b.Queries {
			if err := ctx.Err(); err != nil {
				return summaries, err
			}
			s, err := r.runOne(name, q, i+1, b.K, b.Alpha)
			if err != nil {
				return summaries, errors.Wrapf(err, "%s query %d", name, i+1)
			}
			fmt.Fprintln(out, s)
			if r.Observer != nil {
				r.Observer.Observe(s)
			}
			runs = append(runs, s)
		}

		sum := Summarize(runs)
		fmt.Fprintln(out, sum)
		r.log().Info("batch_done",
			"algorithm", name,
			"queries", len(runs),
			"median_query_us", sum.QueryTime,
			"score_sum", sum.Score,
		)
		for _, sink := range r.Sinks {
			if err := sink.Write(ctx, sum); err != nil {
				return summaries, errors.Wrapf(err, "write %s summary", name)
			}
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

func (r *Runner) runOne(name string, q geom.Point, queryIndex, k int, alpha float64) (Stats, error) {
	kk := k
	if n := r.Corpus.NumPlaces(); kk > n {
		kk = n
	}
	alg, err := algorithm.New(name, r.Corpus, r.Options)
	if err != nil {
		return Stats{}, err
	}

	t0 := r.start()
	if err := alg.Preprocess(q, kk, alpha); err != nil {
		return Stats{}, err
	}
	pre := r.since(t0)

	t1 := r.start()
	partial, err := alg.Query(kk, q, alpha)
	if err != nil {
		return Stats{}, err
	}
	query := r.since(t1)

	t2 := r.start()
	res, err := alg.RetrieveResults(kk, q, alpha)
	if err != nil {
		return Stats{}, err
	}
	retrieve := r.since(t2)

	if partial.Truncated {
		r.log().Warn("solver_node_limit", "algorithm", name, "query_index", queryIndex, "incumbent", res.Z)
	}
	r.log().Debug("query_done",
		"algorithm", name,
		"query_index", queryIndex,
		"points", len(res.Points),
		"score", res.Score,
		"prunes", partial.Prunes,
		"reheaps", partial.Reheaps,
	)

	return Stats{
		Dataset:    r.Dataset,
		Algorithm:  name,
		AlgIndex:   algorithm.Index(name),
		Query:      q,
		QueryIndex: queryIndex,
		K:          k,
		Alpha:      alpha,
		Preprocess: pre.Microseconds(),
		QueryTime:  query.Microseconds(),
		Retrieve:   retrieve.Microseconds(),
		Total:      (pre + query + retrieve).Microseconds(),
		PeakRSS:    PeakRSS(),
		Points:     r.Corpus.NumPlaces(),
		Users:      r.Corpus.NumUsers(),
		Checkins:   r.Corpus.NumCheckins(),
		Z:          res.Z,
		Score:      res.Score,
		Prunes:     partial.Prunes,
		Reheaps:    partial.Reheaps,
	}, nil
}
