// Package bench runs algorithms over a batch of queries and reports their
// timings and results.
package bench

import (
	"strconv"
	"strings"

	"github.com/peterstace/sdknn/internal/geom"
)

// Stats is one line of benchmark output. Summary lines use the zero query
// and query index 0.
type Stats struct {
	Dataset    string
	Algorithm  string
	AlgIndex   int
	Query      geom.Point
	QueryIndex int
	K          int
	Alpha      float64

	// Timings are in microseconds.
	Preprocess int64
	QueryTime  int64
	Retrieve   int64
	Total      int64

	PeakRSS  int64
	Points   int
	Users    int
	Checkins int
	Z        float64
	Score    float64
	Prunes   int
	Reheaps  int
}

// Header names the columns of Stats.Fields.
var Header = []string{
	"Dataset", "Algorithm", "Alg index", "Query", "Q index", "k", "a",
	"Preprocess time", "Query time", "Retrieve time", "Total time", "Peak RSS",
	"Points", "Users", "Checkins", "Z", "Score", "Prunes", "Reheaps",
}

// HeaderLine is the tab separated header.
func HeaderLine() string { return strings.Join(Header, "\t") }

// IsSummary reports whether s aggregates a batch.
func (s Stats) IsSummary() bool { return s.QueryIndex == 0 }

// Fields are the columns of the stats line, in Header order.
func (s Stats) Fields() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		s.Dataset,
		s.Algorithm,
		strconv.Itoa(s.AlgIndex),
		geom.Format(s.Query),
		strconv.Itoa(s.QueryIndex),
		strconv.Itoa(s.K),
		f(s.Alpha),
		strconv.FormatInt(s.Preprocess, 10),
		strconv.FormatInt(s.QueryTime, 10),
		strconv.FormatInt(s.Retrieve, 10),
		strconv.FormatInt(s.Total, 10),
		strconv.FormatInt(s.PeakRSS, 10),
		strconv.Itoa(s.Points),
		strconv.Itoa(s.Users),
		strconv.Itoa(s.Checkins),
		f(s.Z),
		f(s.Score),
		strconv.Itoa(s.Prunes),
		strconv.Itoa(s.Reheaps),
	}
}

func (s Stats) String() string { return strings.Join(s.Fields(), "\t") }

// Summarize aggregates the runs of one algorithm. Timings, memory and
// counters take the upper median, Z and Score are summed.
func Summarize(runs []Stats) Stats {
	if len(runs) == 0 {
		return Stats{}
	}
	s := runs[0]
	s.Query = geom.Point{}
	s.QueryIndex = 0

	col := func(get func(Stats) int64) int64 {
		vs := make([]int64, len(runs))
		for i, r := range runs {
			vs[i] = get(r)
		}
		return median(vs)
	}
	s.Preprocess = col(func(r Stats) int64 { return r.Preprocess })
	s.QueryTime = col(func(r Stats) int64 { return r.QueryTime })
	s.Retrieve = col(func(r Stats) int64 { return r.Retrieve })
	s.Total = col(func(r Stats) int64 { return r.Total })
	s.PeakRSS = col(func(r Stats) int64 { return r.PeakRSS })
	s.Prunes = int(col(func(r Stats) int64 { return int64(r.Prunes) }))
	s.Reheaps = int(col(func(r Stats) int64 { return int64(r.Reheaps) }))

	s.Z, s.Score = 0, 0
	for _, r := range runs {
		s.Z += r.Z
		s.Score += r.Score
	}
	return s
}
