package corpus

import (
	"bufio"
	"context"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/peterstace/sdknn/internal/geom"
)

// LoadOptions controls how input files are turned into a corpus.
type LoadOptions struct {
	// Tags restricts OSM input to nodes carrying at least one of these keys.
	// When empty any tagged node qualifies.
	Tags []string
}

// LoadFile reads a corpus from path. Files ending in .osm are read as OSM XML,
// files ending in .pbf as OSM PBF, anything else as tab separated checkins.
func LoadFile(ctx context.Context, path string, opts LoadOptions) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open corpus %s", path)
	}
	defer f.Close()

	var c *Corpus
	switch {
	case strings.HasSuffix(path, ".pbf"):
		c, err = ReadOSMPBF(ctx, f, opts)
	case strings.HasSuffix(path, ".osm"):
		c, err = ReadOSMXML(ctx, f, opts)
	default:
		c, err = ReadTSV(f)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read corpus %s", path)
	}
	return c, nil
}

// ReadTSV parses checkin records of the form "user<TAB>x<TAB>y", one per line.
// Blank lines are skipped and fields after the third are ignored.
func ReadTSV(r io.Reader) (*Corpus, error) {
	b := NewBuilder()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 3 {
			return nil, errors.Newf("line %d: expected user, x and y, got %d fields", line, len(fields))
		}
		user, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: user", line)
		}
		x, err := parseCoord(fields[1])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: x", line)
		}
		y, err := parseCoord(fields[2])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: y", line)
		}
		b.Add(UserID(user), geom.Point{x, y})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "line %d", line+1)
	}
	return b.Build(), nil
}

func parseCoord(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Newf("coordinate %q is not finite", s)
	}
	return v, nil
}
