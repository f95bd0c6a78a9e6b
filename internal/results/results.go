// Package results persists benchmark summaries.
package results

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/peterstace/sdknn/internal/bench"
)

// Multi writes to every sink and reports all failures together.
type Multi []bench.Sink

// Write writes s to every sink, even after a failure.
func (m Multi) Write(ctx context.Context, s bench.Stats) error {
	var err error
	for _, sink := range m {
		err = errors.CombineErrors(err, sink.Write(ctx, s))
	}
	return err
}
