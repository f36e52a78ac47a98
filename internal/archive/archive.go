// Package archive keeps classified runs in a local SQLite database so past
// results can be listed and re-exported without the original files.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"qpcr/internal/jsonutil"
	"qpcr/internal/output"
	"qpcr/internal/result"
	"qpcr/internal/split"
	"qpcr/pkg/api"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	experiment  TEXT NOT NULL,
	instrument  TEXT NOT NULL,
	assay       TEXT NOT NULL,
	assay_kind  TEXT NOT NULL,
	sources     TEXT NOT NULL,
	created     TEXT NOT NULL,
	well_count  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created);

CREATE TABLE IF NOT EXISTS run_metadata (
	run_id TEXT NOT NULL REFERENCES runs(id),
	seq    INTEGER NOT NULL,
	key    TEXT NOT NULL,
	value  TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS wells (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	seq       INTEGER NOT NULL,
	position  TEXT NOT NULL,
	sample    TEXT NOT NULL,
	copies    REAL,
	comments  TEXT NOT NULL DEFAULT '',
	channels  TEXT NOT NULL,
	calls     TEXT NOT NULL,
	result    TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_wells_result ON wells(result);
`

// Store is safe for concurrent use; writes are serialized by the single
// connection.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID         string
	Experiment string
	Instrument string
	Assay      string
	AssayKind  string
	Sources    []string
	Created    time.Time
	Wells      int
}

// Open creates the database file and schema if needed.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("archive: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("archive: init %s: %w", path, err)
		}
	}
	logger.Debug("archive opened", zap.String("path", path))
	return &Store{db: db, path: path, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes a run, its metadata and its wells in one transaction.
func (s *Store) Save(ctx context.Context, r *result.Run) (err error) {
	sources, err := jsonutil.Compact(r.Sources)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, experiment, instrument, assay, assay_kind, sources, created, well_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ExperimentName(), r.Instrument, r.Assay.Name, string(r.Assay.Kind),
		sources, r.Created.UTC().Format(time.RFC3339Nano), len(r.Wells))
	if err != nil {
		return fmt.Errorf("archive: save run %s: %w", r.ID, err)
	}

	for i, p := range r.Metadata {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO run_metadata (run_id, seq, key, value) VALUES (?, ?, ?, ?)`,
			r.ID, i, p.Key, p.Value); err != nil {
			return fmt.Errorf("archive: save metadata: %w", err)
		}
	}

	for i := range r.Wells {
		w := output.ToAPIWell(r, i)
		var channels, calls string
		if channels, err = jsonutil.Compact(w.Channels); err != nil {
			return err
		}
		if calls, err = jsonutil.Compact(w.Calls); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO wells (run_id, seq, position, sample, copies, comments, channels, calls, result)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, i, w.WellPosition, w.SampleName, w.Copies, w.Comments, channels, calls, w.Result); err != nil {
			return fmt.Errorf("archive: save well %s: %w", w.WellPosition, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	s.logger.Info("run archived", zap.String("run_id", r.ID), zap.Int("wells", len(r.Wells)), zap.String("db", s.path))
	return nil
}

// Runs lists the most recent runs first. limit <= 0 means no limit.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, experiment, instrument, assay, assay_kind, sources, created, well_count
		 FROM runs ORDER BY created DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			rs               RunSummary
			sources, created string
		)
		if err := rows.Scan(&rs.ID, &rs.Experiment, &rs.Instrument, &rs.Assay, &rs.AssayKind, &sources, &created, &rs.Wells); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sources), &rs.Sources); err != nil {
			return nil, fmt.Errorf("archive: run %s sources: %w", rs.ID, err)
		}
		if rs.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("archive: run %s created: %w", rs.ID, err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// Metadata returns a run's header pairs in export order.
func (s *Store) Metadata(ctx context.Context, runID string) (split.Metadata, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM run_metadata WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("archive: metadata %s: %w", runID, err)
	}
	defer rows.Close()

	var out split.Metadata
	for rows.Next() {
		var p split.Pair
		if err := rows.Scan(&p.Key, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Wells returns a run's wells in table order, each tagged with the run id.
// An unknown run yields no wells.
func (s *Store) Wells(ctx context.Context, runID string) ([]api.WellV1, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, sample, copies, comments, channels, calls, result
		 FROM wells WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("archive: wells %s: %w", runID, err)
	}
	defer rows.Close()

	var out []api.WellV1
	for rows.Next() {
		var (
			w              api.WellV1
			copies         sql.NullFloat64
			channels, call string
		)
		if err := rows.Scan(&w.WellPosition, &w.SampleName, &copies, &w.Comments, &channels, &call, &w.Result); err != nil {
			return nil, err
		}
		if copies.Valid {
			v := copies.Float64
			w.Copies = &v
		}
		if err := json.Unmarshal([]byte(channels), &w.Channels); err != nil {
			return nil, fmt.Errorf("archive: well %s channels: %w", w.WellPosition, err)
		}
		if err := json.Unmarshal([]byte(call), &w.Calls); err != nil {
			return nil, fmt.Errorf("archive: well %s calls: %w", w.WellPosition, err)
		}
		w.RunID = runID
		out = append(out, w)
	}
	return out, rows.Err()
}
