package corpus

import (
	"context"
	"io"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/peterstace/sdknn/internal/geom"
)

// osmScanner is the subset shared by the XML and PBF scanners.
type osmScanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

// ReadOSMXML reads POIs from an OSM XML document. Each qualifying node is a
// checkin by the node's last editor at (lon, lat).
func ReadOSMXML(ctx context.Context, r io.Reader, opts LoadOptions) (*Corpus, error) {
	return readOSM(osmxml.New(ctx, r), opts)
}

// ReadOSMPBF is ReadOSMXML for the PBF encoding. Ways and relations are
// skipped without being decoded.
func ReadOSMPBF(ctx context.Context, r io.Reader, opts LoadOptions) (*Corpus, error) {
	scanner := osmpbf.New(ctx, r, runtime.GOMAXPROCS(-1))
	scanner.SkipWays = true
	scanner.SkipRelations = true
	return readOSM(scanner, opts)
}

func readOSM(scanner osmScanner, opts LoadOptions) (*Corpus, error) {
	defer scanner.Close()

	b := NewBuilder()
	for scanner.Scan() {
		node, ok := scanner.Object().(*osm.Node)
		if !ok || !qualifies(node, opts.Tags) {
			continue
		}
		b.Add(UserID(node.UserID), geom.Point{node.Lon, node.Lat})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan osm")
	}
	return b.Build(), nil
}

func qualifies(node *osm.Node, tags []string) bool {
	if len(node.Tags) == 0 {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, key := range tags {
		if node.Tags.HasTag(key) {
			return true
		}
	}
	return false
}
