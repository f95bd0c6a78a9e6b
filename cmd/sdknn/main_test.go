package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peterstace/sdknn/internal/bench"
)

const checkins = "1\t0\t0\n2\t0\t0\n3\t1\t1\n3\t2\t0\n4\t2\t2\n"

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "checkins.txt")
	if err := os.WriteFile(path, []byte(checkins), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	return path
}

func TestRun(t *testing.T) {
	input := setup(t)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-input", input,
		"-k", "2",
		"-query", "0,0",
		"-query", "1,1 2,2",
		"-a", "0.5",
		"-algorithm", "greedy re-heap",
		"-results", "log.txt",
		"-sqlite", "runs.db",
		"-metrics-file", "sdknn.prom",
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	// header, then three queries and a summary per algorithm
	if len(lines) != 1+2*4 {
		t.Fatalf("got %d lines:\n%s", len(lines), stdout.String())
	}
	if lines[0] != bench.HeaderLine() {
		t.Errorf("header: got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "checkins.txt\tgreedy\t") {
		t.Errorf("first line: got %q", lines[1])
	}

	log, err := os.ReadFile("log.txt")
	if err != nil {
		t.Fatalf("read results log: %v", err)
	}
	if n := strings.Count(string(log), "\n"); n != 3 {
		t.Errorf("results log has %d lines:\n%s", n, log)
	}
	for _, f := range []string{"runs.db", "sdknn.prom"} {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("stat %s: %v", f, err)
		}
	}
}

func TestRunUsageErrors(t *testing.T) {
	input := setup(t)
	for name, args := range map[string][]string{
		"missing k":         {"-input", input, "-query", "0,0", "-a", "0.5", "-algorithm", "rtree"},
		"missing alpha":     {"-input", input, "-k", "1", "-query", "0,0", "-algorithm", "rtree"},
		"missing query":     {"-input", input, "-k", "1", "-a", "0.5", "-algorithm", "rtree"},
		"unknown algorithm": {"-input", input, "-k", "1", "-query", "0,0", "-a", "0.5", "-algorithm", "fastest"},
		"bad flag":          {"-frobnicate"},
		"stray argument":    {"-input", input, "extra"},
	} {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), args, &stdout, &stderr); code != 2 {
				t.Errorf("exit code: got %d want 2", code)
			}
		})
	}
}

func TestRunMissingInput(t *testing.T) {
	setup(t)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-input", "nope.txt", "-k", "1", "-query", "0,0", "-a", "1", "-algorithm", "rtree",
	}, &stdout, &stderr)
	if code != 1 {
		t.Errorf("exit code: got %d want 1", code)
	}
	if !strings.Contains(stderr.String(), "corpus_load_error") {
		t.Errorf("stderr: %s", stderr.String())
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	input := setup(t)
	cfgFile := "sdknn.yaml"
	content := "input: other.txt\nk: 7\nalpha: 0.2\nqueries: [\"5,5\"]\nalgorithms: [exact]\nindex:\n  fanout: 8\n"
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	var stderr bytes.Buffer
	f, err := parseFlags([]string{"-input", input, "-k", "3", "-no-prune", "-build", "bulk"}, &stderr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := loadConfig(f)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Input != input || cfg.K != 3 || cfg.Index.Pruning || cfg.Index.Build != "bulk" {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Alpha != 0.2 || cfg.Index.Fanout != 8 || len(cfg.Algorithms) != 1 {
		t.Errorf("config values lost: %+v", cfg)
	}

	f, err = parseFlags([]string{"-prune"}, &stderr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err = loadConfig(f)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Index.Pruning || cfg.Input != "other.txt" {
		t.Errorf("-prune not applied: %+v", cfg)
	}
}

func TestQueryList(t *testing.T) {
	var q queryList
	if err := q.Set("1,2 3,4"); err != nil {
		t.Fatal(err)
	}
	if err := q.Set("5,6"); err != nil {
		t.Fatal(err)
	}
	if err := q.Set("  "); err == nil {
		t.Errorf("expected error for empty query")
	}
	if got := q.String(); got != "1,2 3,4 5,6" {
		t.Errorf("got %q", got)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
