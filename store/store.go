// Package store persists clip reports in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/nvr-ai/go-detect/report"
)

// Store keeps clip reports grouped by run.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// RunSummary aggregates the clips of one run.
type RunSummary struct {
	RunID    string
	Clips    int
	Detected int
	Started  time.Time
}

// Open opens or creates the database at path and applies the schema.
//
// Arguments:
//   - path: SQLite file path.
//
// Returns:
//   - *Store: The store; Close releases it.
//   - error: An error if the database cannot be opened or migrated.
//
// @example
// st, err := store.Open("detect.db")
// defer st.Close()
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable WAL mode")
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS clip_reports (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			video TEXT NOT NULL,
			detected INTEGER NOT NULL,
			ratio REAL NOT NULL,
			positions_ms TEXT NOT NULL,
			analyzed INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			frames TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clip_reports_run ON clip_reports(run_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_clip_reports_video ON clip_reports(video)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return errors.Wrap(err, "migration failed")
		}
	}
	return nil
}

// SaveClip stores one clip report. Clips without a run ID get a fresh one.
func (s *Store) SaveClip(ctx context.Context, c report.Clip) error {
	if c.RunID == "" {
		c.RunID = uuid.NewString()
	}

	positions := make([]int64, len(c.Positions))
	for i, p := range c.Positions {
		positions[i] = p.Milliseconds()
	}
	positionsJSON, err := json.Marshal(positions)
	if err != nil {
		return errors.Wrap(err, "encode positions")
	}

	var framesJSON []byte
	if len(c.Frames) > 0 {
		if framesJSON, err = json.Marshal(c.Frames); err != nil {
			return errors.Wrap(err, "encode frames")
		}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO clip_reports (id, run_id, video, detected, ratio, positions_ms, analyzed, elapsed_ms, frames, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), c.RunID, c.Video, c.Detected, c.Ratio, string(positionsJSON),
		c.Analyzed, c.Elapsed.Milliseconds(), nullable(framesJSON), s.now().UnixMilli(),
	)
	return errors.Wrapf(err, "save clip %s", c.Video)
}

// Run returns the clips of a run in insertion order.
func (s *Store) Run(ctx context.Context, runID string) ([]report.Clip, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, video, detected, ratio, positions_ms, analyzed, elapsed_ms, frames
		FROM clip_reports WHERE run_id = ? ORDER BY created_at, rowid`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "query run")
	}
	defer rows.Close()

	var clips []report.Clip
	for rows.Next() {
		var (
			c         report.Clip
			positions string
			elapsedMS int64
			frames    sql.NullString
		)
		if err := rows.Scan(&c.RunID, &c.Video, &c.Detected, &c.Ratio, &positions, &c.Analyzed, &elapsedMS, &frames); err != nil {
			return nil, errors.Wrap(err, "scan clip")
		}

		var ms []int64
		if err := json.Unmarshal([]byte(positions), &ms); err != nil {
			return nil, errors.Wrapf(err, "decode positions of %s", c.Video)
		}
		for _, p := range ms {
			c.Positions = append(c.Positions, time.Duration(p)*time.Millisecond)
		}
		c.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if frames.Valid {
			if err := json.Unmarshal([]byte(frames.String), &c.Frames); err != nil {
				return nil, errors.Wrapf(err, "decode frames of %s", c.Video)
			}
		}
		clips = append(clips, c)
	}
	return clips, errors.Wrap(rows.Err(), "iterate clips")
}

// Runs lists every run, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, COUNT(*), SUM(detected), MIN(created_at)
		FROM clip_reports GROUP BY run_id ORDER BY MIN(created_at) DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			r       RunSummary
			started int64
		)
		if err := rows.Scan(&r.RunID, &r.Clips, &r.Detected, &started); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		r.Started = time.UnixMilli(started)
		runs = append(runs, r)
	}
	return runs, errors.Wrap(rows.Err(), "iterate runs")
}

func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
