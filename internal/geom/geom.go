// Package geom holds the 2D primitives shared by the corpus, the index and
// the scoring functions.
package geom

import (
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Point is a location in the plane. It is comparable and used as a map key.
type Point = orb.Point

// Rect is an axis aligned rectangle.
type Rect = orb.Bound

// Distance is the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return planar.Distance(a, b)
}

// MinDistPoint returns the point inside r that is closest to q. The query
// coordinates are clamped to the extent of r on each axis.
func MinDistPoint(r Rect, q Point) Point {
	return Point{clamp(q[0], r.Min[0], r.Max[0]), clamp(q[1], r.Min[1], r.Max[1])}
}

// MinDist is the distance from q to the closest point of r. It is zero when q
// lies inside r.
func MinDist(r Rect, q Point) float64 {
	return Distance(q, MinDistPoint(r, q))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ParsePoint parses "x,y".
func ParsePoint(s string) (Point, error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return Point{}, errors.Newf("point %q: expected x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return Point{}, errors.Wrapf(err, "point %q: x", s)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return Point{}, errors.Wrapf(err, "point %q: y", s)
	}
	for _, v := range []float64{x, y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Point{}, errors.Newf("point %q: coordinates must be finite", s)
		}
	}
	return Point{x, y}, nil
}

// ParsePoints parses a whitespace separated list of "x,y" pairs.
func ParsePoints(s string) ([]Point, error) {
	var pts []Point
	for _, f := range strings.Fields(s) {
		p, err := ParsePoint(f)
		if err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
	return pts, nil
}

// Format renders p the way query points are reported, "(x,y)".
func Format(p Point) string {
	return "(" + strconv.FormatFloat(p[0], 'g', -1, 64) + "," + strconv.FormatFloat(p[1], 'g', -1, 64) + ")"
}
