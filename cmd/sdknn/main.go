// Command sdknn benchmarks socially diverse k-nearest-neighbour strategies
// over a checkin corpus.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/peterstace/sdknn/internal/bench"
	"github.com/peterstace/sdknn/internal/config"
	"github.com/peterstace/sdknn/internal/corpus"
	"github.com/peterstace/sdknn/internal/logger"
	"github.com/peterstace/sdknn/internal/metrics"
	"github.com/peterstace/sdknn/internal/results"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// queryList collects repeated -query values.
type queryList []string

func (q *queryList) String() string { return strings.Join(*q, " ") }

func (q *queryList) Set(v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.New("empty query")
	}
	*q = append(*q, v)
	return nil
}

type flags struct {
	fs *flag.FlagSet

	config      string
	input       string
	k           int
	queries     queryList
	alpha       float64
	algorithms  string
	fanout      int
	build       string
	prune       bool
	noPrune     bool
	results     string
	sqlite      string
	postgres    string
	metricsFile string
	logLevel    string
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{fs: flag.NewFlagSet("sdknn", flag.ContinueOnError)}
	fs := f.fs
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "YAML config file (default: sdknn.yaml or configs/sdknn.yaml if present)")
	fs.StringVar(&f.input, "input", "", "checkin file: userId<TAB>x<TAB>y, or .osm / .pbf")
	fs.IntVar(&f.k, "k", 0, "result size")
	fs.Var(&f.queries, "query", "query point x,y (repeatable, space separated)")
	fs.Float64Var(&f.alpha, "a", 0, "weight of proximity against coverage, in [0,1]")
	fs.StringVar(&f.algorithms, "algorithm", "", "space separated algorithms: exact naive dist user lp ilp greedy rtree re-heap")
	fs.IntVar(&f.fanout, "fanout", 0, "index fan-out")
	fs.StringVar(&f.build, "build", "", "index build mode: insert or bulk")
	fs.BoolVar(&f.prune, "prune", false, "discard branches dominated by an accepted place")
	fs.BoolVar(&f.noPrune, "no-prune", false, "disable dominance pruning")
	fs.StringVar(&f.results, "results", "", "results log file")
	fs.StringVar(&f.sqlite, "sqlite", "", "SQLite database to record summaries in")
	fs.StringVar(&f.postgres, "postgres", "", "Postgres DSN to record summaries in")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, errors.Newf("unexpected arguments: %q", fs.Args())
	}
	return f, nil
}

// apply overrides cfg with the flags that were given on the command line.
func (f *flags) apply(cfg *config.Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "input":
			cfg.Input = f.input
		case "k":
			cfg.K = f.k
		case "query":
			cfg.Queries = f.queries
		case "a":
			cfg.Alpha = f.alpha
		case "algorithm":
			cfg.Algorithms = strings.Fields(f.algorithms)
		case "fanout":
			cfg.Index.Fanout = f.fanout
		case "build":
			cfg.Index.Build = f.build
		case "prune":
			cfg.Index.Pruning = f.prune
		case "no-prune":
			cfg.Index.Pruning = !f.noPrune
		case "results":
			cfg.Output.ResultsLog = f.results
		case "sqlite":
			cfg.Output.SQLite = f.sqlite
		case "postgres":
			cfg.Output.PostgresDSN = f.postgres
		case "metrics-file":
			cfg.Output.MetricsFile = f.metricsFile
		case "log-level":
			cfg.Log.Level = f.logLevel
		}
	})
}

func loadConfig(f *flags) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}
	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(stderr, "sdknn: %v\n", err)
		f.fs.Usage()
		return 2
	}

	l := logger.New(stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(l)

	queries, err := cfg.Points()
	if err != nil {
		l.Error("query_parse_error", "err", err)
		return 2
	}

	c, err := corpus.LoadFile(ctx, cfg.Input, corpus.LoadOptions{Tags: cfg.OSM.Tags})
	if err != nil {
		l.Error("corpus_load_error", "input", cfg.Input, "err", err)
		return 1
	}
	l.Info("corpus_loaded",
		"input", cfg.Input,
		"places", c.NumPlaces(),
		"users", c.NumUsers(),
		"checkins", c.NumCheckins(),
	)

	sinks, closeSinks, err := openSinks(ctx, cfg, l)
	if err != nil {
		l.Error("sink_open_error", "err", err)
		return 1
	}
	defer closeSinks()

	recorder := metrics.NewRecorder()
	runner := &bench.Runner{
		Corpus:   c,
		Dataset:  filepath.Base(cfg.Input),
		Options:  cfg.AlgorithmOptions(),
		Out:      stdout,
		Sinks:    []bench.Sink{sinks},
		Observer: recorder,
		Logger:   l,
	}

	fmt.Fprintln(stdout, bench.HeaderLine())
	_, runErr := runner.Run(ctx, bench.Batch{
		Algorithms: cfg.Algorithms,
		Queries:    queries,
		K:          cfg.K,
		Alpha:      cfg.Alpha,
	})

	if cfg.Output.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			l.Error("metrics_write_error", "path", cfg.Output.MetricsFile, "err", err)
			return 1
		}
	}
	if runErr != nil {
		l.Error("run_error", "err", runErr)
		return 1
	}
	return 0
}

func openSinks(ctx context.Context, cfg *config.Config, l *slog.Logger) (results.Multi, func(), error) {
	var sinks results.Multi
	var stores []*results.SQLStore
	closeAll := func() {
		for _, s := range stores {
			if err := s.Close(); err != nil {
				l.Warn("store_close_error", "err", err)
			}
		}
	}

	if cfg.Output.ResultsLog != "" {
		sinks = append(sinks, results.NewLogFile(cfg.Output.ResultsLog))
	}
	if cfg.Output.SQLite != "" {
		s, err := results.OpenSQLite(ctx, cfg.Output.SQLite)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		l.Info("db_open_ok", "driver", "sqlite", "path", cfg.Output.SQLite)
		stores = append(stores, s)
		sinks = append(sinks, s)
	}
	if cfg.Output.PostgresDSN != "" {
		s, err := results.OpenPostgres(ctx, cfg.Output.PostgresDSN)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		l.Info("db_open_ok", "driver", "postgres")
		stores = append(stores, s)
		sinks = append(sinks, s)
	}
	return sinks, closeAll, nil
}
