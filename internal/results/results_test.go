package results

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/peterstace/sdknn/internal/bench"
	"github.com/peterstace/sdknn/internal/geom"
)

func sample(alg string, idx int) bench.Stats {
	return bench.Stats{
		Dataset: "checkins.txt", Algorithm: alg, AlgIndex: idx, Query: geom.Point{0, 0},
		K: 5, Alpha: 0.25, Preprocess: 10, QueryTime: 20, Retrieve: 3, Total: 33,
		PeakRSS: 1 << 20, Points: 100, Users: 40, Checkins: 500, Z: 0.5, Score: 1.75,
		Prunes: 7, Reheaps: 2,
	}
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results_log.txt")
	lf := NewLogFile(path)
	ctx := context.Background()
	if err := lf.Write(ctx, sample("rtree", 7)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := lf.Write(ctx, sample("re-heap", 8)); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{bench.HeaderLine(), sample("rtree", 7).String(), sample("re-heap", 8).String()}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("got %q\nwant %q", lines, want)
	}

	// A second writer on an existing file must not repeat the header.
	if err := NewLogFile(path).Write(ctx, sample("greedy", 6)); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, _ = os.ReadFile(path)
	if n := strings.Count(string(data), bench.HeaderLine()); n != 1 {
		t.Errorf("header written %d times", n)
	}
}

func TestLogFileUnwritable(t *testing.T) {
	lf := NewLogFile(filepath.Join(t.TempDir(), "missing", "log.txt"))
	if err := lf.Write(context.Background(), sample("rtree", 7)); err == nil {
		t.Errorf("expected error")
	}
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	for _, s := range []bench.Stats{sample("rtree", 7), sample("re-heap", 8)} {
		if err := store.Write(ctx, s); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	got, err := store.Runs(ctx, "re-heap")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !reflect.DeepEqual(got, []bench.Stats{sample("re-heap", 8)}) {
		t.Errorf("got %+v", got)
	}

	// Reopening keeps the table and its rows.
	store.Close()
	store, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err = store.Runs(ctx, "rtree")
	if err != nil || len(got) != 1 {
		t.Errorf("after reopen: %v rows, err %v", len(got), err)
	}
}

func TestInsertStatement(t *testing.T) {
	pg := insertStatement(postgres)
	if !strings.Contains(pg, "$1") || !strings.Contains(pg, "$20") || strings.Contains(pg, "?") {
		t.Errorf("postgres placeholders: %s", pg)
	}
	lite := insertStatement(sqlite)
	if strings.Count(lite, "?") != len(columns) {
		t.Errorf("sqlite placeholders: %s", lite)
	}
}

type errSink struct{ msg string }

func (e errSink) Write(context.Context, bench.Stats) error { return errors.New(e.msg) }

type okSink struct{ n *int }

func (o okSink) Write(context.Context, bench.Stats) error {
	*o.n++
	return nil
}

func TestMulti(t *testing.T) {
	n := 0
	m := Multi{errSink{"first"}, okSink{&n}, errSink{"second"}}
	err := m.Write(context.Background(), sample("rtree", 7))
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 1 {
		t.Errorf("every sink must be written, got %d", n)
	}
	if !strings.Contains(err.Error(), "first") {
		t.Errorf("unexpected error %v", err)
	}
	if err := (Multi{okSink{&n}}).Write(context.Background(), sample("rtree", 7)); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
