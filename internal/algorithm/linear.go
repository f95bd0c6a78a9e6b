package algorithm

import (
	"math"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/peterstace/sdknn/internal/corpus"
	"github.com/peterstace/sdknn/internal/geom"
	"github.com/peterstace/sdknn/internal/scoring"
	"github.com/peterstace/sdknn/internal/sets"
)

// integralTol decides when a relaxed x value counts as 0 or 1, and how much
// a relaxation must beat the incumbent by to be explored.
const integralTol = 1e-9

// lpModel is the selection problem in the standard form min cᵀx, Ax = b,
// x ≥ 0. The columns are, in order: x (one per place), y (one per user), the
// slack of Σx ≤ k, the cover slacks, and the slacks of x ≤ 1 and y ≤ 1.
//
//	Σ x_j + s_k            = k
//	Σ_{j∋i} x_j - y_i - s_i = 0   for each user i
//	x_j + u_j              = 1
//	y_i + v_i              = 1
type lpModel struct {
	n, m  int
	obj   []float64 // gain of x_j in the maximisation
	c     []float64
	a     *mat.Dense
	b     []float64
	basic []int
	// users[j] are the cover rows touched by place j.
	users [][]int
}

func columnsFor(places, users int) int { return 2*places + 3*users + 1 }

func newLPModel(c *corpus.Corpus, params scoring.Params) *lpModel {
	places := c.Places()
	var all []corpus.UserID
	for _, p := range places {
		all = append(all, c.Checkins(p)...)
	}
	all = sets.Normalize(all)
	row := make(map[corpus.UserID]int, len(all))
	for i, u := range all {
		row[u] = i
	}

	n, m := len(places), len(all)
	rows, cols := 1+2*m+n, columnsFor(n, m)
	md := &lpModel{
		n:     n,
		m:     m,
		obj:   make([]float64, n),
		c:     make([]float64, cols),
		a:     mat.NewDense(rows, cols, nil),
		b:     make([]float64, rows),
		users: make([][]int, n),
	}
	yCol := func(i int) int { return n + i }
	skCol := n + m
	sCol := func(i int) int { return n + m + 1 + i }
	uCol := func(j int) int { return n + 2*m + 1 + j }
	vCol := func(i int) int { return 2*n + 2*m + 1 + i }

	md.b[0] = float64(params.K)
	md.a.Set(0, skCol, 1)
	md.basic = append(md.basic, skCol)
	for j, p := range places {
		md.obj[j] = params.Alpha * params.Proximity(p) / float64(params.K)
		md.c[j] = -md.obj[j]
		md.a.Set(0, j, 1)
		for _, u := range c.Checkins(p) {
			i := row[u]
			md.users[j] = append(md.users[j], i)
			md.a.Set(1+i, j, 1)
		}
	}
	for i := 0; i < m; i++ {
		md.c[yCol(i)] = -(1 - params.Alpha) / float64(m)
		md.a.Set(1+i, yCol(i), -1)
		md.a.Set(1+i, sCol(i), -1)
		md.basic = append(md.basic, sCol(i))
	}
	for j := 0; j < n; j++ {
		r := md.boundRow(j)
		md.a.Set(r, j, 1)
		md.a.Set(r, uCol(j), 1)
		md.b[r] = 1
		md.basic = append(md.basic, uCol(j))
	}
	for i := 0; i < m; i++ {
		r := 1 + m + n + i
		md.a.Set(r, yCol(i), 1)
		md.a.Set(r, vCol(i), 1)
		md.b[r] = 1
		md.basic = append(md.basic, vCol(i))
	}
	return md
}

func (md *lpModel) boundRow(j int) int { return 1 + md.m + j }

// Place states during branch and bound.
const (
	free int8 = iota
	fixedZero
	fixedOne
)

// solve maximises the relaxation with some x fixed. A place fixed to one is
// substituted out of the rows, which keeps the slack basis feasible.
func (md *lpModel) solve(state []int8, tol float64) (float64, []float64, error) {
	b := append([]float64(nil), md.b...)
	constant := 0.0
	for j, s := range state {
		if s == free {
			continue
		}
		b[md.boundRow(j)] = 0
		if s == fixedOne {
			b[0]--
			for _, i := range md.users[j] {
				b[1+i]--
			}
			constant += md.obj[j]
		}
	}
	if b[0] < 0 {
		return 0, nil, lp.ErrInfeasible
	}

	optF, optX, err := lp.Simplex(md.c, md.a, b, tol, md.basic)
	if err != nil {
		return 0, nil, err
	}
	x := append([]float64(nil), optX[:md.n]...)
	for j, s := range state {
		if s == fixedOne {
			x[j] = 1
		}
	}
	return -optF + constant, x, nil
}

// linear solves the selection as a linear program, either relaxed or with
// integral x.
type linear struct {
	base
	opts     LPOptions
	integral bool

	model *lpModel
	x     []float64
}

func (l *linear) Preprocess(q geom.Point, k int, alpha float64) error {
	l.model, l.x, l.z = nil, nil, 0
	n := l.corpus.NumPlaces()
	if n == 0 {
		return nil
	}
	if cols := columnsFor(n, l.corpus.NumUsers()); l.opts.MaxColumns > 0 && cols > l.opts.MaxColumns {
		return errors.Wrapf(ErrProblemTooLarge, "%s: %d columns, limit %d", l.name, cols, l.opts.MaxColumns)
	}
	l.model = newLPModel(l.corpus, scoring.For(l.corpus, q, k, alpha))
	return nil
}

func (l *linear) Query(k int, q geom.Point, alpha float64) (Partial, error) {
	if l.model == nil {
		return l.partial(), nil
	}
	if !l.integral {
		z, x, err := l.model.solve(nil, l.opts.Tolerance)
		if err != nil {
			return Partial{}, errors.Wrapf(err, "%s: solve", l.name)
		}
		l.z, l.x = z, x
		return l.partial(), nil
	}

	z, x, truncated, err := l.branchAndBound()
	if err != nil {
		return Partial{}, errors.Wrapf(err, "%s: branch and bound", l.name)
	}
	l.z, l.x = z, x
	p := l.partial()
	p.Truncated = truncated
	return p, nil
}

// branchAndBound searches depth first, branching on the most fractional x
// and exploring the x=1 side first. Selecting nothing is always feasible, so
// it seeds the incumbent.
func (l *linear) branchAndBound() (float64, []float64, bool, error) {
	n := l.model.n
	bestZ, bestX := 0.0, make([]float64, n)
	stack := [][]int8{make([]int8, n)}
	nodes := 0
	for len(stack) > 0 {
		if l.opts.MaxNodes > 0 && nodes >= l.opts.MaxNodes {
			return bestZ, bestX, true, nil
		}
		state := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		z, x, err := l.model.solve(state, l.opts.Tolerance)
		if errors.Is(err, lp.ErrInfeasible) {
			continue
		}
		if err != nil {
			return 0, nil, false, err
		}
		if z <= bestZ+integralTol {
			continue
		}

		branch, frac := -1, 0.0
		for j, v := range x {
			if f := math.Min(v, 1-v); state[j] == free && f > integralTol && f > frac {
				branch, frac = j, f
			}
		}
		if branch < 0 {
			for j := range x {
				x[j] = math.Round(x[j])
			}
			bestZ, bestX = z, x
			continue
		}

		zero := append([]int8(nil), state...)
		zero[branch] = fixedZero
		one := append([]int8(nil), state...)
		one[branch] = fixedOne
		stack = append(stack, zero, one)
	}
	return bestZ, bestX, false, nil
}

// RetrieveResults keeps the k places with the largest x.
func (l *linear) RetrieveResults(k int, q geom.Point, alpha float64) (ResultSet, error) {
	places := l.corpus.Places()
	order := make([]int, len(l.x))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case l.x[a] > l.x[b]:
			return -1
		case l.x[a] < l.x[b]:
			return 1
		default:
			return 0
		}
	})
	take := k
	if take > len(order) {
		take = len(order)
	}
	l.points = l.points[:0]
	for _, j := range order[:take] {
		l.points = append(l.points, places[j])
	}
	return l.base.RetrieveResults(k, q, alpha)
}
