// Package corpus holds the immutable set of places and the users who checked
// in at each of them.
package corpus

import (
	"github.com/cockroachdb/errors"
	"github.com/google/btree"
	"github.com/peterstace/sdknn/internal/geom"
	"github.com/peterstace/sdknn/internal/sets"
)

// UserID identifies a user.
type UserID int64

// Corpus is a read-only collection of places with their checkins. Every place
// has at least one user.
type Corpus struct {
	places      []geom.Point
	checkins    map[geom.Point][]UserID
	numUsers    int
	numCheckins int
	bound       geom.Rect
	maxDistance float64
}

// Places returns the distinct places ordered by x, then y. The slice must not
// be modified.
func (c *Corpus) Places() []geom.Point { return c.places }

// NumPlaces is the number of distinct places.
func (c *Corpus) NumPlaces() int { return len(c.places) }

// NumUsers is the number of distinct users.
func (c *Corpus) NumUsers() int { return c.numUsers }

// NumCheckins counts every checkin read, duplicates included.
func (c *Corpus) NumCheckins() int { return c.numCheckins }

// Bound is the smallest rectangle covering every place. It is the zero
// rectangle for an empty corpus.
func (c *Corpus) Bound() geom.Rect { return c.bound }

// MaxDistance is the length of the diagonal of Bound.
func (c *Corpus) MaxDistance() float64 { return c.maxDistance }

// Normalizer is the divisor used to bring distances into [0,1]. It falls back
// to 1 when every place coincides.
func (c *Corpus) Normalizer() float64 {
	if c.maxDistance == 0 {
		return 1
	}
	return c.maxDistance
}

// Checkins returns the sorted distinct users who checked in at p. Asking for a
// point that is not a place is a programming error.
func (c *Corpus) Checkins(p geom.Point) []UserID {
	users, ok := c.checkins[p]
	if !ok {
		panic(errors.AssertionFailedf("no checkins for point %v", p))
	}
	return users
}

type placeItem struct {
	pt    geom.Point
	users []UserID
}

func (p *placeItem) Less(than btree.Item) bool {
	o := than.(*placeItem)
	if p.pt[0] != o.pt[0] {
		return p.pt[0] < o.pt[0]
	}
	return p.pt[1] < o.pt[1]
}

// Builder accumulates checkins into a Corpus.
type Builder struct {
	tree        *btree.BTree
	numCheckins int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{tree: btree.New(32)}
}

// Add records a checkin of user at p.
func (b *Builder) Add(user UserID, p geom.Point) {
	b.numCheckins++
	if it := b.tree.Get(&placeItem{pt: p}); it != nil {
		item := it.(*placeItem)
		item.users = append(item.users, user)
		return
	}
	b.tree.ReplaceOrInsert(&placeItem{pt: p, users: []UserID{user}})
}

// Build freezes the accumulated checkins. The builder may keep being used
// afterwards without affecting the returned corpus.
func (b *Builder) Build() *Corpus {
	c := &Corpus{
		places:      make([]geom.Point, 0, b.tree.Len()),
		checkins:    make(map[geom.Point][]UserID, b.tree.Len()),
		numCheckins: b.numCheckins,
	}
	distinct := make(map[UserID]struct{})
	first := true
	b.tree.Ascend(func(i btree.Item) bool {
		item := i.(*placeItem)
		users := sets.Normalize(append([]UserID(nil), item.users...))
		for _, u := range users {
			distinct[u] = struct{}{}
		}
		c.places = append(c.places, item.pt)
		c.checkins[item.pt] = users
		if first {
			c.bound = item.pt.Bound()
			first = false
		} else {
			c.bound = c.bound.Extend(item.pt)
		}
		return true
	})
	c.numUsers = len(distinct)
	if len(c.places) > 0 {
		c.maxDistance = geom.Distance(c.bound.Min, c.bound.Max)
	}
	return c
}
