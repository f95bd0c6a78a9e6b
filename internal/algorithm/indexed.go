package algorithm

import (
	"github.com/cockroachdb/errors"
	"github.com/peterstace/sdknn/internal/geom"
	"github.com/peterstace/sdknn/internal/index"
	"github.com/peterstace/sdknn/internal/logger"
)

// indexed answers queries with the branch and bound search over the
// augmented R-tree.
type indexed struct {
	base
	opts    Options
	variant index.Variant

	idx *index.Index
}

// Preprocess builds the index. It does not depend on the query.
func (a *indexed) Preprocess(geom.Point, int, float64) error {
	idx, err := index.Build(a.corpus, a.opts.Index)
	if err != nil {
		return errors.Wrapf(err, "build index for %s", a.name)
	}
	a.idx = idx
	logger.L().Debug("index_built",
		"algorithm", a.name,
		"branches", idx.NumBranches(),
		"height", idx.Height(),
	)
	return nil
}

func (a *indexed) Query(k int, q geom.Point, alpha float64) (Partial, error) {
	if a.idx == nil {
		return Partial{}, errors.Newf("%s: query before preprocess", a.name)
	}
	res := a.idx.Query(q, index.QueryOptions{
		K:       k,
		Alpha:   alpha,
		Variant: a.variant,
		Pruning: a.opts.Pruning,
	})
	a.points = res.Points
	p := a.partial()
	p.Prunes, p.Reheaps = res.Prunes, res.Reheaps
	return p, nil
}
