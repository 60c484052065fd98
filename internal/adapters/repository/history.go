package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/civicrank/internal/domain/model"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	chamber       TEXT NOT NULL,
	started_at    INTEGER NOT NULL,
	records       INTEGER NOT NULL,
	leader_id     TEXT NOT NULL DEFAULT '',
	leader_streak INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_chamber_started ON runs(chamber, started_at);

CREATE TABLE IF NOT EXISTS snapshots (
	run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position      INTEGER NOT NULL,
	bioguide_id   TEXT NOT NULL,
	sponsored     INTEGER NOT NULL,
	cosponsored   INTEGER NOT NULL,
	yea           INTEGER NOT NULL,
	nay           INTEGER NOT NULL,
	missed        INTEGER NOT NULL,
	total         INTEGER NOT NULL,
	activity      INTEGER NOT NULL,
	voting        INTEGER NOT NULL,
	leader        INTEGER NOT NULL,
	streak        INTEGER NOT NULL,
	power_score   REAL NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// Run is one streak update recorded in the history store.
type Run struct {
	ID           string        `json:"id"`
	Chamber      model.Chamber `json:"chamber"`
	StartedAt    time.Time     `json:"startedAt"`
	Records      int           `json:"records"`
	LeaderID     string        `json:"leaderId"`
	LeaderStreak int           `json:"leaderStreak"`
}

// Snapshot is one record's counters and streaks as of a run.
type Snapshot struct {
	BioguideID string        `json:"bioguideId"`
	Totals     model.Totals  `json:"totals"`
	Streaks    model.Streaks `json:"streaks"`
	Streak     model.Count   `json:"streak"`
	PowerScore float64       `json:"powerScore"`
}

// Tenure is a run of consecutive history entries led by the same legislator.
type Tenure struct {
	BioguideID string    `json:"bioguideId"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Runs       int       `json:"runs"`
}

// HistoryStore keeps per-run snapshots in sqlite.
type HistoryStore struct {
	db *sql.DB
}

// OpenHistory opens (creating if needed) the history database at path.
func OpenHistory(ctx context.Context, path string, opts ...HistoryOption) (*HistoryStore, error) {
	cfg := historyConfig{busyTimeoutMS: 10_000}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), defaultDirMode); err != nil {
			return nil, fmt.Errorf("%w: mkdir: %v", ErrHistory, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrHistory, err)
	}
	// one connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeoutMS),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrHistory, p, err)
		}
	}
	if _, err := db.ExecContext(ctx, historySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: schema: %v", ErrHistory, err)
	}
	return &HistoryStore{db: db}, nil
}

// Close closes the database.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}

// NewRun returns a run stamped with a fresh id.
func NewRun(chamber model.Chamber, startedAt time.Time) Run {
	return Run{ID: uuid.NewString(), Chamber: chamber, StartedAt: startedAt.UTC()}
}

// RecordRun stores a run and the snapshot of every record in one transaction.
func (h *HistoryStore) RecordRun(ctx context.Context, run Run, records []model.Legislator) (err error) {
	const op = "record run"
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.Records = len(records)

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrHistory, op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, chamber, started_at, records, leader_id, leader_streak) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Chamber), run.StartedAt.UnixMilli(), run.Records, run.LeaderID, run.LeaderStreak,
	); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrHistory, op, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO snapshots
		(run_id, position, bioguide_id, sponsored, cosponsored, yea, nay, missed, total,
		 activity, voting, leader, streak, power_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrHistory, op, err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range records {
		r := &records[i]
		t := model.TotalsOf(r)
		if _, err = stmt.ExecContext(ctx,
			run.ID, i, r.BioguideID,
			int(t.SponsoredBills), int(t.CosponsoredBills), int(t.YeaVotes), int(t.NayVotes),
			int(t.MissedVotes), int(t.TotalVotes),
			int(r.Streaks.Activity), int(r.Streaks.Voting), int(r.Streaks.Leader), int(r.Streak),
			r.PowerScore,
		); err != nil {
			return fmt.Errorf("%w: %s: %s: %v", ErrHistory, op, r.BioguideID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrHistory, op, err)
	}
	return nil
}

// Runs lists the most recent runs of a chamber, newest first. An empty
// chamber lists all chambers.
func (h *HistoryStore) Runs(ctx context.Context, chamber model.Chamber, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, chamber, started_at, records, leader_id, leader_streak FROM runs
		 WHERE (? = '' OR chamber = ?)
		 ORDER BY started_at DESC, id DESC LIMIT ?`,
		string(chamber), string(chamber), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: runs: %v", ErrHistory, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			ch      string
			started int64
		)
		if err := rows.Scan(&r.ID, &ch, &started, &r.Records, &r.LeaderID, &r.LeaderStreak); err != nil {
			return nil, fmt.Errorf("%w: runs: %v", ErrHistory, err)
		}
		r.Chamber = model.Chamber(ch)
		r.StartedAt = time.UnixMilli(started).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: runs: %v", ErrHistory, err)
	}
	return out, nil
}

// Snapshots returns the records stored for a run in their original order.
func (h *HistoryStore) Snapshots(ctx context.Context, runID string) ([]Snapshot, error) {
	var exists int
	err := h.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: snapshots: %v", ErrHistory, err)
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT bioguide_id, sponsored, cosponsored, yea, nay, missed, total,
		        activity, voting, leader, streak, power_score
		 FROM snapshots WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshots: %v", ErrHistory, err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]Snapshot, 0)
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.BioguideID,
			&s.Totals.SponsoredBills, &s.Totals.CosponsoredBills, &s.Totals.YeaVotes, &s.Totals.NayVotes,
			&s.Totals.MissedVotes, &s.Totals.TotalVotes,
			&s.Streaks.Activity, &s.Streaks.Voting, &s.Streaks.Leader, &s.Streak, &s.PowerScore,
		); err != nil {
			return nil, fmt.Errorf("%w: snapshots: %v", ErrHistory, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: snapshots: %v", ErrHistory, err)
	}
	return out, nil
}

// LeaderHistory collapses the most recent runs into consecutive leader
// tenures, newest first.
func (h *HistoryStore) LeaderHistory(ctx context.Context, chamber model.Chamber, limit int) ([]Tenure, error) {
	runs, err := h.Runs(ctx, chamber, limit)
	if err != nil {
		return nil, err
	}
	var out []Tenure
	for _, r := range runs {
		if r.LeaderID == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].BioguideID == r.LeaderID {
			out[n-1].From = r.StartedAt
			out[n-1].Runs++
			continue
		}
		out = append(out, Tenure{BioguideID: r.LeaderID, From: r.StartedAt, To: r.StartedAt, Runs: 1})
	}
	return out, nil
}
