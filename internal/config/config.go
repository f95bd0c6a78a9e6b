// Package config loads run settings from a YAML file, .env files and
// SDKNN_* environment variables.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/peterstace/sdknn/internal/algorithm"
	"github.com/peterstace/sdknn/internal/geom"
	"github.com/peterstace/sdknn/internal/index"
)

// Config is everything a benchmark run needs.
type Config struct {
	Input string `yaml:"input"`
	K     int    `yaml:"k"`
	// Alpha is negative until set.
	Alpha      float64  `yaml:"alpha"`
	Queries    []string `yaml:"queries"`
	Algorithms []string `yaml:"algorithms"`

	Index  IndexConfig  `yaml:"index"`
	OSM    OSMConfig    `yaml:"osm"`
	LP     LPConfig     `yaml:"lp"`
	Output OutputConfig `yaml:"output"`
	Log    LogConfig    `yaml:"log"`
}

// IndexConfig controls the R-tree behind the rtree and re-heap strategies.
type IndexConfig struct {
	Fanout int `yaml:"fanout"`
	// MinFill of zero means half the fanout.
	MinFill int    `yaml:"min_fill"`
	Build   string `yaml:"build"` // insert or bulk
	Pruning bool   `yaml:"pruning"`
}

// OSMConfig filters the nodes read from OSM input.
type OSMConfig struct {
	Tags []string `yaml:"tags"`
}

// LPConfig bounds the LP and ILP solvers.
type LPConfig struct {
	Tolerance  float64 `yaml:"tolerance"`
	MaxNodes   int     `yaml:"max_nodes"`
	MaxColumns int     `yaml:"max_columns"`
}

// OutputConfig names where summaries and metrics are written.
type OutputConfig struct {
	ResultsLog  string `yaml:"results_log"`
	SQLite      string `yaml:"sqlite"`
	PostgresDSN string `yaml:"postgres_dsn"`
	MetricsFile string `yaml:"metrics_file"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SearchPaths are tried in order when Load is given no path.
var SearchPaths = []string{"sdknn.yaml", "configs/sdknn.yaml"}

func defaults() *Config {
	return &Config{
		Alpha: -1,
		Index: IndexConfig{
			Fanout: 4,
			Build:  "insert",
		},
		LP: LPConfig{
			Tolerance:  1e-10,
			MaxNodes:   10000,
			MaxColumns: 2000,
		},
		Output: OutputConfig{
			ResultsLog: "results_log.txt",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configPath over the defaults. With an empty path the first
// existing file of SearchPaths is used, or the defaults alone if none exists.
func Load(configPath string) (*Config, error) {
	cfg := defaults()

	if configPath == "" {
		for _, p := range SearchPaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
		if configPath == "" {
			applyDefaults(cfg)
			return cfg, nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", configPath)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", configPath)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Index.Fanout <= 0 {
		cfg.Index.Fanout = 4
	}
	if cfg.Index.Build == "" {
		cfg.Index.Build = "insert"
	}
	if cfg.LP.Tolerance <= 0 {
		cfg.LP.Tolerance = 1e-10
	}
	if cfg.LP.MaxNodes <= 0 {
		cfg.LP.MaxNodes = 10000
	}
	if cfg.LP.MaxColumns <= 0 {
		cfg.LP.MaxColumns = 2000
	}
	if cfg.Output.ResultsLog == "" {
		cfg.Output.ResultsLog = "results_log.txt"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// LoadDotEnv loads the given .env files into the environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "load %s", f)
		}
	}
	return nil
}

// ApplyEnv overlays SDKNN_* environment variables.
func ApplyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	list := func(key string, dst *[]string, sep func(rune) bool) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.FieldsFunc(v, sep)
		}
	}
	var err error
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, e := strconv.Atoi(strings.TrimSpace(v))
			if e != nil {
				err = errors.CombineErrors(err, errors.Wrapf(e, "%s", key))
				return
			}
			*dst = n
		}
	}
	space := func(r rune) bool { return r == ' ' || r == '\t' }
	comma := func(r rune) bool { return r == ',' }

	str("SDKNN_INPUT", &cfg.Input)
	num("SDKNN_K", &cfg.K)
	if v, ok := os.LookupEnv("SDKNN_ALPHA"); ok {
		a, e := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if e != nil {
			err = errors.CombineErrors(err, errors.Wrap(e, "SDKNN_ALPHA"))
		} else {
			cfg.Alpha = a
		}
	}
	list("SDKNN_QUERIES", &cfg.Queries, space)
	list("SDKNN_ALGORITHMS", &cfg.Algorithms, space)
	num("SDKNN_FANOUT", &cfg.Index.Fanout)
	num("SDKNN_MIN_FILL", &cfg.Index.MinFill)
	str("SDKNN_BUILD", &cfg.Index.Build)
	if v, ok := os.LookupEnv("SDKNN_PRUNING"); ok {
		b, e := strconv.ParseBool(strings.TrimSpace(v))
		if e != nil {
			err = errors.CombineErrors(err, errors.Wrap(e, "SDKNN_PRUNING"))
		} else {
			cfg.Index.Pruning = b
		}
	}
	list("SDKNN_OSM_TAGS", &cfg.OSM.Tags, comma)
	num("SDKNN_LP_MAX_NODES", &cfg.LP.MaxNodes)
	num("SDKNN_LP_MAX_COLUMNS", &cfg.LP.MaxColumns)
	str("SDKNN_RESULTS_LOG", &cfg.Output.ResultsLog)
	str("SDKNN_SQLITE", &cfg.Output.SQLite)
	str("SDKNN_POSTGRES_DSN", &cfg.Output.PostgresDSN)
	str("SDKNN_METRICS_FILE", &cfg.Output.MetricsFile)
	str("SDKNN_LOG_LEVEL", &cfg.Log.Level)
	str("SDKNN_LOG_FORMAT", &cfg.Log.Format)
	return err
}

// Validate checks that the configuration describes a runnable batch.
func (c *Config) Validate() error {
	switch {
	case c.Input == "":
		return errors.New("input is required")
	case c.K < 1:
		return errors.Newf("k must be at least 1, got %d", c.K)
	case c.Alpha < 0 || c.Alpha > 1:
		if c.Alpha == -1 {
			return errors.New("alpha is required")
		}
		return errors.Newf("alpha must be in [0,1], got %v", c.Alpha)
	case len(c.Queries) == 0:
		return errors.New("at least one query point is required")
	case len(c.Algorithms) == 0:
		return errors.New("at least one algorithm is required")
	case c.Index.Fanout < 2 || c.Index.Fanout > 16:
		return errors.Newf("index fanout must be between 2 and 16, got %d", c.Index.Fanout)
	case c.Index.MinFill < 0 || c.Index.MinFill > c.Index.Fanout/2:
		return errors.Newf("index min_fill must be between 0 and %d, got %d", c.Index.Fanout/2, c.Index.MinFill)
	case c.Index.Build != "insert" && c.Index.Build != "bulk":
		return errors.Newf("index build must be insert or bulk, got %q", c.Index.Build)
	}
	for _, name := range c.Algorithms {
		if algorithm.Index(name) < 0 {
			return errors.Wrapf(algorithm.ErrUnknownAlgorithm, "%q", name)
		}
	}
	if _, err := c.Points(); err != nil {
		return err
	}
	return nil
}

// Points parses the query points. Each entry may hold several
// whitespace separated points.
func (c *Config) Points() ([]geom.Point, error) {
	var pts []geom.Point
	for _, q := range c.Queries {
		ps, err := geom.ParsePoints(q)
		if err != nil {
			return nil, err
		}
		pts = append(pts, ps...)
	}
	return pts, nil
}

// AlgorithmOptions converts the settings the strategies need.
func (c *Config) AlgorithmOptions() algorithm.Options {
	return algorithm.Options{
		Index: index.Options{
			MaxChildren: c.Index.Fanout,
			MinChildren: c.Index.MinFill,
			Bulk:        c.Index.Build == "bulk",
		},
		Pruning: c.Index.Pruning,
		LP: algorithm.LPOptions{
			Tolerance:  c.LP.Tolerance,
			MaxNodes:   c.LP.MaxNodes,
			MaxColumns: c.LP.MaxColumns,
		},
	}
}
