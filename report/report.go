// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: report.go - Run summaries on disk
//
// Purpose:
//   - Captures one finished run as a Summary.
//   - Writes summaries as JSON files, replaced atomically.
//   - Appends summaries to a SQLite run log.
//
// Notes:
//   - JSON goes through sonnet; file replacement through natefinch/atomic.
//   - The run log keeps insertion order; List returns oldest first.
// ─────────────────────────────────────────────────────────────────────────────

package report

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/natefinch/atomic"
	"github.com/sugawarayuuta/sonnet"

	_ "github.com/mattn/go-sqlite3"

	"wheelsieve/verify"
)

// Summary describes one counted range.
type Summary struct {
	Start       uint64    `json:"start"`
	End         uint64    `json:"end"`
	Plan        string    `json:"plan"`
	Threads     int       `json:"threads"`
	BlockSize   int       `json:"block_size"`
	Blocks      uint64    `json:"blocks"`
	Count       uint64    `json:"count"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Elapsed     float64   `json:"elapsed_seconds"`
	FinishedAt  time.Time `json:"finished_at"`
}

// FromDigest fills the counting fields of s from a consumed run.
func (s Summary) FromDigest(d verify.Digest) Summary {
	s.Blocks = d.Blocks
	s.Count = d.Count
	s.Fingerprint = d.Hex()
	return s
}

// WriteJSON replaces path with the encoded summary.
func WriteJSON(path string, s Summary) error {
	buf, err := sonnet.Marshal(s)
	if err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}
	buf = append(buf, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(buf)); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}

// ReadJSON loads a summary written by WriteJSON.
func ReadJSON(path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	if err := sonnet.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("report: decode %s: %w", path, err)
	}
	return s, nil
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// RUN LOG
// ═══════════════════════════════════════════════════════════════════════════════════════════════

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	start       INTEGER NOT NULL,
	end_        INTEGER NOT NULL,
	plan        TEXT    NOT NULL,
	threads     INTEGER NOT NULL,
	block_size  INTEGER NOT NULL,
	blocks      INTEGER NOT NULL,
	count       INTEGER NOT NULL,
	fingerprint TEXT    NOT NULL,
	elapsed     REAL    NOT NULL,
	finished_at INTEGER NOT NULL
)`

// Store is a SQLite log of finished runs.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the run log at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("report: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record appends s to the log.
func (st *Store) Record(s Summary) error {
	_, err := st.db.Exec(
		`INSERT INTO runs (start, end_, plan, threads, block_size, blocks, count, fingerprint, elapsed, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(s.Start), int64(s.End), s.Plan, s.Threads, s.BlockSize,
		int64(s.Blocks), int64(s.Count), s.Fingerprint, s.Elapsed, s.FinishedAt.UnixNano(),
	)
	return err
}

// List returns every recorded run, oldest first.
func (st *Store) List() ([]Summary, error) {
	rows, err := st.db.Query(
		`SELECT start, end_, plan, threads, block_size, blocks, count, fingerprint, elapsed, finished_at
		 FROM runs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			s                                   Summary
			start, end, blocks, count, finished int64
		)
		if err := rows.Scan(&start, &end, &s.Plan, &s.Threads, &s.BlockSize,
			&blocks, &count, &s.Fingerprint, &s.Elapsed, &finished); err != nil {
			return nil, err
		}
		s.Start, s.End = uint64(start), uint64(end)
		s.Blocks, s.Count = uint64(blocks), uint64(count)
		s.FinishedAt = time.Unix(0, finished).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (st *Store) Close() error { return st.db.Close() }
