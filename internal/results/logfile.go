package results

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/peterstace/sdknn/internal/bench"
)

// LogFile appends tab separated summaries to a file, writing the header when
// it creates the file.
type LogFile struct {
	path string
	mu   sync.Mutex
}

// NewLogFile returns a sink appending to path. The file is created on the
// first write.
func NewLogFile(path string) *LogFile {
	return &LogFile{path: path}
}

// Write appends one summary line.
func (l *LogFile) Write(_ context.Context, s bench.Stats) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, statErr := os.Stat(l.path)
	header := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open results log %s", l.path)
	}
	if header {
		if _, err := fmt.Fprintln(f, bench.HeaderLine()); err != nil {
			f.Close()
			return errors.Wrapf(err, "write results log %s", l.path)
		}
	}
	if _, err := fmt.Fprintln(f, s); err != nil {
		f.Close()
		return errors.Wrapf(err, "write results log %s", l.path)
	}
	return errors.Wrapf(f.Close(), "close results log %s", l.path)
}
