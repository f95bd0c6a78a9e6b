package results

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/peterstace/sdknn/internal/bench"
	"github.com/peterstace/sdknn/internal/geom"
)

type dialect int

const (
	sqlite dialect = iota
	postgres
)

const schema = `
CREATE TABLE IF NOT EXISTS sdknn_runs (
	dataset TEXT NOT NULL,
	algorithm TEXT NOT NULL,
	alg_index INTEGER NOT NULL,
	query_x DOUBLE PRECISION NOT NULL,
	query_y DOUBLE PRECISION NOT NULL,
	query_index INTEGER NOT NULL,
	k INTEGER NOT NULL,
	alpha DOUBLE PRECISION NOT NULL,
	preprocess_us BIGINT NOT NULL,
	query_us BIGINT NOT NULL,
	retrieve_us BIGINT NOT NULL,
	total_us BIGINT NOT NULL,
	peak_rss BIGINT NOT NULL,
	points INTEGER NOT NULL,
	users INTEGER NOT NULL,
	checkins INTEGER NOT NULL,
	z DOUBLE PRECISION NOT NULL,
	score DOUBLE PRECISION NOT NULL,
	prunes INTEGER NOT NULL,
	reheaps INTEGER NOT NULL,
	recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

var columns = []string{
	"dataset", "algorithm", "alg_index", "query_x", "query_y", "query_index", "k", "alpha",
	"preprocess_us", "query_us", "retrieve_us", "total_us", "peak_rss",
	"points", "users", "checkins", "z", "score", "prunes", "reheaps",
}

// SQLStore records summaries in the sdknn_runs table.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	insert  string
}

// OpenSQLite opens (creating if needed) a SQLite database file.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, sqlite)
}

// OpenPostgres connects to the database named by dsn.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	return newSQLStore(ctx, db, postgres)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create sdknn_runs")
	}
	return &SQLStore{db: db, dialect: d, insert: insertStatement(d)}, nil
}

func placeholder(d dialect, i int) string {
	if d == postgres {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

func insertStatement(d dialect) string {
	ph := make([]string, len(columns))
	for i := range ph {
		ph[i] = placeholder(d, i+1)
	}
	return "INSERT INTO sdknn_runs (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(ph, ", ") + ")"
}

// Write inserts one summary row.
func (s *SQLStore) Write(ctx context.Context, st bench.Stats) error {
	_, err := s.db.ExecContext(ctx, s.insert,
		st.Dataset, st.Algorithm, st.AlgIndex, st.Query[0], st.Query[1], st.QueryIndex, st.K, st.Alpha,
		st.Preprocess, st.QueryTime, st.Retrieve, st.Total, st.PeakRSS,
		st.Points, st.Users, st.Checkins, st.Z, st.Score, st.Prunes, st.Reheaps,
	)
	return errors.Wrap(err, "insert sdknn_runs")
}

// Runs returns the stored rows for an algorithm, oldest first.
func (s *SQLStore) Runs(ctx context.Context, algorithm string) ([]bench.Stats, error) {
	q := "SELECT " + strings.Join(columns, ", ") + " FROM sdknn_runs WHERE algorithm = " +
		placeholder(s.dialect, 1) + " ORDER BY recorded_at, query_index"
	rows, err := s.db.QueryContext(ctx, q, algorithm)
	if err != nil {
		return nil, errors.Wrap(err, "select sdknn_runs")
	}
	defer rows.Close()

	var out []bench.Stats
	for rows.Next() {
		var st bench.Stats
		var x, y float64
		if err := rows.Scan(
			&st.Dataset, &st.Algorithm, &st.AlgIndex, &x, &y, &st.QueryIndex, &st.K, &st.Alpha,
			&st.Preprocess, &st.QueryTime, &st.Retrieve, &st.Total, &st.PeakRSS,
			&st.Points, &st.Users, &st.Checkins, &st.Z, &st.Score, &st.Prunes, &st.Reheaps,
		); err != nil {
			return nil, errors.Wrap(err, "scan sdknn_runs")
		}
		st.Query = geom.Point{x, y}
		out = append(out, st)
	}
	return out, errors.Wrap(rows.Err(), "iterate sdknn_runs")
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
