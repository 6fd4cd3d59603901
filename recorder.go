package main

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const recorderSchema = `
CREATE TABLE IF NOT EXISTS matches (
	id         TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	ended_at   INTEGER
);
CREATE TABLE IF NOT EXISTS match_results (
	match_id    TEXT NOT NULL,
	player_name TEXT NOT NULL,
	kills       INTEGER NOT NULL,
	deaths      INTEGER NOT NULL,
	level       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	match_id TEXT NOT NULL,
	event    TEXT NOT NULL,
	actor    TEXT NOT NULL,
	detail   TEXT,
	at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_match ON events(match_id);
CREATE INDEX IF NOT EXISTS idx_results_match ON match_results(match_id);
`

type recordOp func(*sql.DB) error

// Recorder persists match history and gameplay events to sqlite. Writes go
// through a buffered channel and a single worker goroutine so the game
// loop never blocks on disk.
type Recorder struct {
	db  *sql.DB
	ops chan recordOp
	log *zap.Logger

	done chan struct{}
}

// NewRecorder opens (or creates) the database and starts the write worker.
// An empty path disables recording and returns nil.
func NewRecorder(path string, log *zap.Logger) (*Recorder, error) {
	if path == "" {
		return nil, nil
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", path, err)
	}
	// The worker is the only writer.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(recorderSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	r := &Recorder{
		db:   db,
		ops:  make(chan recordOp, 1024),
		log:  log,
		done: make(chan struct{}),
	}
	go r.worker()
	return r, nil
}

func (r *Recorder) worker() {
	defer close(r.done)
	for op := range r.ops {
		if err := op(r.db); err != nil {
			r.log.Warn("record write", zap.Error(err))
		}
	}
}

// enqueue hands an op to the worker, dropping it when the buffer is full;
// recording never backpressures the simulation
func (r *Recorder) enqueue(op recordOp) {
	select {
	case r.ops <- op:
	default:
		r.log.Warn("record buffer full, dropping event")
	}
}

// Track records one gameplay event
func (r *Recorder) Track(matchID, event, actor, detail string) {
	at := time.Now().UnixMilli()
	r.enqueue(func(db *sql.DB) error {
		_, err := db.Exec(
			`INSERT INTO events (match_id, event, actor, detail, at) VALUES (?, ?, ?, ?, ?)`,
			matchID, event, actor, detail, at)
		return err
	})
}

// MatchStarted records the start of a match
func (r *Recorder) MatchStarted(matchID string, startedAt int64) {
	r.enqueue(func(db *sql.DB) error {
		_, err := db.Exec(
			`INSERT OR REPLACE INTO matches (id, started_at) VALUES (?, ?)`,
			matchID, startedAt)
		return err
	})
}

// MatchFinished stamps the end time and stores the final board
func (r *Recorder) MatchFinished(matchID string, endedAt int64, board []BoardEntry) {
	rows := append([]BoardEntry(nil), board...)
	r.enqueue(func(db *sql.DB) error {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if _, err := tx.Exec(`UPDATE matches SET ended_at = ? WHERE id = ?`, endedAt, matchID); err != nil {
			return err
		}
		for _, b := range rows {
			if _, err := tx.Exec(
				`INSERT INTO match_results (match_id, player_name, kills, deaths, level) VALUES (?, ?, ?, ?, ?)`,
				matchID, b.Name, b.Kills, b.Deaths, b.Level); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// LeaderboardRow is one all-time standings entry for the stats endpoint
type LeaderboardRow struct {
	Name   string `json:"name"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
	Played int    `json:"played"`
}

// AllTimeLeaderboard aggregates recorded match results. Reads run on the
// caller's goroutine; the endpoint is rare enough not to need the worker.
func (r *Recorder) AllTimeLeaderboard(limit int) ([]LeaderboardRow, error) {
	rows, err := r.db.Query(`
		SELECT player_name, SUM(kills), SUM(deaths), COUNT(*)
		FROM match_results
		GROUP BY player_name
		ORDER BY SUM(kills) DESC, player_name
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LeaderboardRow
	for rows.Next() {
		var lr LeaderboardRow
		if err := rows.Scan(&lr.Name, &lr.Kills, &lr.Deaths, &lr.Played); err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}

// Close drains pending writes and closes the database
func (r *Recorder) Close() error {
	close(r.ops)
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		r.log.Warn("record drain timed out")
	}
	return r.db.Close()
}
