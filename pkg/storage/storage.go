package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("empty database path")
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS lineup_matches (
  id            INTEGER PRIMARY KEY,
  venue_id      TEXT NOT NULL,
  venue         TEXT NOT NULL,
  show_date     TEXT NOT NULL,
  slot          TEXT NOT NULL,
  performer     TEXT NOT NULL,
  occurrence    INTEGER NOT NULL DEFAULT 0,
  run_id        INTEGER NOT NULL DEFAULT 0,
  first_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  last_seen_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(venue_id, show_date, slot, performer, occurrence)
);
CREATE INDEX IF NOT EXISTS idx_matches_venue ON lineup_matches(venue_id, show_date);
CREATE INDEX IF NOT EXISTS idx_matches_first_seen ON lineup_matches(first_seen_at);
CREATE TABLE IF NOT EXISTS check_runs (
  id          INTEGER PRIMARY KEY,
  started_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  days        INTEGER NOT NULL,
  cells       INTEGER NOT NULL,
  failures    INTEGER NOT NULL,
  matches     INTEGER NOT NULL,
  new_matches INTEGER NOT NULL
);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// RecordMatches stores entries and returns the ones never seen before, in
// input order. Entries already stored only get their last_seen_at bumped.
func (d *DB) RecordMatches(ctx context.Context, entries []Entry) ([]Entry, error) {
	now := time.Now().UTC()
	runID := now.Unix()

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var fresh []Entry
	seenInBatch := make(map[string]bool)
	for _, e := range entries {
		key := identityKey(e.VenueID, e.Date, e.Slot, e.Performer, e.Occurrence)
		if key == "" || seenInBatch[key] {
			continue
		}
		seenInBatch[key] = true

		var res sql.Result
		res, err = tx.ExecContext(ctx, `INSERT INTO lineup_matches(venue_id, venue, show_date, slot, performer, occurrence, run_id, first_seen_at, last_seen_at) VALUES(?,?,?,?,?,?,?,CURRENT_TIMESTAMP,CURRENT_TIMESTAMP) ON CONFLICT(venue_id, show_date, slot, performer, occurrence) DO NOTHING`, e.VenueID, e.Venue, e.Date, e.Slot, e.Performer, e.Occurrence, runID)
		if err != nil {
			return nil, err
		}
		var n int64
		if n, err = res.RowsAffected(); err != nil {
			return nil, err
		}
		if n == 1 {
			e.FirstSeenAt, e.LastSeenAt = now, now
			fresh = append(fresh, e)
			continue
		}

		_, err = tx.ExecContext(ctx, `UPDATE lineup_matches SET venue = ?, run_id = ?, last_seen_at = CURRENT_TIMESTAMP WHERE venue_id = ? AND show_date = ? AND slot = ? AND performer = ? AND occurrence = ?`, e.Venue, runID, e.VenueID, e.Date, e.Slot, e.Performer, e.Occurrence)
		if err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return fresh, nil
}

// RecordRun appends a cycle summary and returns its id.
func (d *DB) RecordRun(ctx context.Context, r Run) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `INSERT INTO check_runs(started_at, days, cells, failures, matches, new_matches) VALUES(CURRENT_TIMESTAMP,?,?,?,?,?)`, r.Days, r.Cells, r.Failures, r.Matches, r.NewMatches)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LastRun returns the most recent cycle summary, or nil if none was recorded.
func (d *DB) LastRun(ctx context.Context) (*Run, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT id, started_at, days, cells, failures, matches, new_matches FROM check_runs ORDER BY id DESC LIMIT 1`)
	var (
		r       Run
		started string
	)
	if err := row.Scan(&r.ID, &started, &r.Days, &r.Cells, &r.Failures, &r.Matches, &r.NewMatches); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	r.StartedAt = parseTimestamp(started)
	return &r, nil
}

// ListOptions controls selection when listing matches.
type ListOptions struct {
	VenueID  string
	FromDate string // inclusive, YYYY-MM-DD
}

// ListMatches returns stored matches ordered by show date, venue and slot.
func (d *DB) ListMatches(ctx context.Context, opts ListOptions) ([]Entry, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if opts.VenueID != "" && opts.VenueID != "all" {
		where += " AND venue_id = ?"
		args = append(args, opts.VenueID)
	}
	if opts.FromDate != "" {
		where += " AND show_date >= ?"
		args = append(args, opts.FromDate)
	}

	q := "SELECT venue_id, venue, show_date, slot, performer, occurrence, first_seen_at, last_seen_at FROM lineup_matches " + where + " ORDER BY show_date, venue_id, slot, id"
	return d.queryEntries(ctx, q, args...)
}

// ListRecentMatches returns the most recently discovered N matches.
func (d *DB) ListRecentMatches(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT venue_id, venue, show_date, slot, performer, occurrence, first_seen_at, last_seen_at FROM lineup_matches ORDER BY first_seen_at DESC, id DESC LIMIT ?"
	return d.queryEntries(ctx, q, limit)
}

func (d *DB) queryEntries(ctx context.Context, q string, args ...interface{}) ([]Entry, error) {
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e                   Entry
			firstSeen, lastSeen string
		)
		if err := rows.Scan(&e.VenueID, &e.Venue, &e.Date, &e.Slot, &e.Performer, &e.Occurrence, &firstSeen, &lastSeen); err != nil {
			return nil, err
		}
		e.FirstSeenAt = parseTimestamp(firstSeen)
		e.LastSeenAt = parseTimestamp(lastSeen)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DB) GetStats(ctx context.Context) ([]VenueStats, error) {
	query := `
		SELECT
			venue_id,
			MAX(venue),
			COUNT(*),
			COUNT(DISTINCT performer),
			MAX(show_date)
		FROM
			lineup_matches
		GROUP BY
			venue_id
		ORDER BY
			venue_id;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []VenueStats
	for rows.Next() {
		var s VenueStats
		if err := rows.Scan(&s.VenueID, &s.Venue, &s.MatchCount, &s.PerformerCount, &s.LastDate); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// parseTimestamp accepts SQLite's CURRENT_TIMESTAMP format and RFC3339, which
// is what the driver hands back for DATETIME columns.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
