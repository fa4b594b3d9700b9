// Package cache keeps the last successfully loaded lists on disk so they can
// be shown while offline or before the first fetch completes.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matheuskafuri/stocktracker/internal/format"
	"github.com/matheuskafuri/stocktracker/internal/stocks"
)

const (
	metaEventsRefresh = "last_refresh_events"
	metaRecsRefresh   = "last_refresh_recommendations"
)

type Cache struct {
	readDB  *sql.DB
	writeDB *sql.DB
	now     func() time.Time
}

func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	c := &Cache{readDB: readDB, writeDB: writeDB, now: time.Now}
	if err := c.init(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) init() error {
	_, err := c.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS rating_events (
			position    INTEGER PRIMARY KEY,
			id          INTEGER NOT NULL,
			ticker      TEXT NOT NULL,
			company     TEXT NOT NULL DEFAULT '',
			brokerage   TEXT NOT NULL DEFAULT '',
			action      TEXT NOT NULL DEFAULT '',
			rating_from TEXT,
			rating_to   TEXT,
			target_from REAL,
			target_to   REAL,
			time        TEXT NOT NULL DEFAULT '',
			occurred_at INTEGER,
			fetched_at  INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS recommendations (
			position    INTEGER PRIMARY KEY,
			event_id    INTEGER NOT NULL,
			ticker      TEXT NOT NULL,
			company     TEXT NOT NULL DEFAULT '',
			brokerage   TEXT NOT NULL DEFAULT '',
			action      TEXT NOT NULL DEFAULT '',
			rating_from TEXT,
			rating_to   TEXT,
			target_from REAL,
			target_to   REAL,
			time        TEXT NOT NULL DEFAULT '',
			score_value REAL NOT NULL,
			score       TEXT NOT NULL,
			label       TEXT NOT NULL DEFAULT '',
			fetched_at  INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		errs = append(errs, c.readDB.Close())
	}
	if c.writeDB != nil {
		errs = append(errs, c.writeDB.Close())
	}
	return errors.Join(errs...)
}

// ReplaceEvents swaps the stored rating events for events, keeping their order
// and any repeated IDs.
func (c *Cache) ReplaceEvents(events []stocks.RatingEvent) error {
	tx, err := c.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM rating_events`); err != nil {
		return fmt.Errorf("clearing rating events: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO rating_events (id, position, ticker, company, brokerage, action,
			rating_from, rating_to, target_from, target_to, time, occurred_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := c.now().Unix()
	for i, e := range events {
		var occurred sql.NullInt64
		if t, ok := format.ParseTime(e.Time); ok {
			occurred = sql.NullInt64{Int64: t.Unix(), Valid: true}
		}
		_, err := stmt.Exec(e.ID, i, e.Ticker, e.Company, e.Brokerage, e.Action,
			nullString(e.RatingFrom), nullString(e.RatingTo),
			nullFloat(e.TargetFrom), nullFloat(e.TargetTo),
			e.Time, occurred, now)
		if err != nil {
			return fmt.Errorf("storing rating event %d: %w", e.ID, err)
		}
	}

	if err := setMeta(tx, metaEventsRefresh, c.now().Format(time.RFC3339)); err != nil {
		return err
	}
	return tx.Commit()
}

// Events returns the stored rating events in the order they were saved.
func (c *Cache) Events() ([]stocks.RatingEvent, error) {
	rows, err := c.readDB.Query(`
		SELECT id, ticker, company, brokerage, action, rating_from, rating_to,
			target_from, target_to, time
		FROM rating_events ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying rating events: %w", err)
	}
	defer rows.Close()

	var events []stocks.RatingEvent
	for rows.Next() {
		var (
			e                    stocks.RatingEvent
			ratingFrom, ratingTo sql.NullString
			targetFrom, targetTo sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.Ticker, &e.Company, &e.Brokerage, &e.Action,
			&ratingFrom, &ratingTo, &targetFrom, &targetTo, &e.Time); err != nil {
			return nil, fmt.Errorf("scanning rating event: %w", err)
		}
		e.RatingFrom, e.RatingTo = stringPtr(ratingFrom), stringPtr(ratingTo)
		e.TargetFrom, e.TargetTo = floatPtr(targetFrom), floatPtr(targetTo)
		events = append(events, e)
	}
	return events, rows.Err()
}

// ReplaceRecommendations swaps the stored recommendations for recs.
func (c *Cache) ReplaceRecommendations(recs []stocks.Recommendation) error {
	tx, err := c.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM recommendations`); err != nil {
		return fmt.Errorf("clearing recommendations: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO recommendations (position, event_id, ticker, company, brokerage, action,
			rating_from, rating_to, target_from, target_to, time, score_value, score, label, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := c.now().Unix()
	for i, r := range recs {
		_, err := stmt.Exec(i, r.ID, r.Ticker, r.Company, r.Brokerage, r.Action,
			nullString(r.RatingFrom), nullString(r.RatingTo),
			nullFloat(r.TargetFrom), nullFloat(r.TargetTo),
			r.Time, r.ScoreValue, r.Score, r.Label, now)
		if err != nil {
			return fmt.Errorf("storing recommendation for %s: %w", r.Ticker, err)
		}
	}

	if err := setMeta(tx, metaRecsRefresh, c.now().Format(time.RFC3339)); err != nil {
		return err
	}
	return tx.Commit()
}

// Recommendations returns up to limit stored recommendations, best first.
// A limit <= 0 returns all of them.
func (c *Cache) Recommendations(limit int) ([]stocks.Recommendation, error) {
	query := `
		SELECT event_id, ticker, company, brokerage, action, rating_from, rating_to,
			target_from, target_to, time, score_value, score, label
		FROM recommendations ORDER BY position`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := c.readDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying recommendations: %w", err)
	}
	defer rows.Close()

	var recs []stocks.Recommendation
	for rows.Next() {
		var (
			r                    stocks.Recommendation
			ratingFrom, ratingTo sql.NullString
			targetFrom, targetTo sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Ticker, &r.Company, &r.Brokerage, &r.Action,
			&ratingFrom, &ratingTo, &targetFrom, &targetTo, &r.Time,
			&r.ScoreValue, &r.Score, &r.Label); err != nil {
			return nil, fmt.Errorf("scanning recommendation: %w", err)
		}
		r.RatingFrom, r.RatingTo = stringPtr(ratingFrom), stringPtr(ratingTo)
		r.TargetFrom, r.TargetTo = floatPtr(targetFrom), floatPtr(targetTo)
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// NeedsRefresh reports whether the rating events are missing or older than
// interval.
func (c *Cache) NeedsRefresh(interval time.Duration) bool {
	t, err := c.LastRefresh()
	if err != nil || t.IsZero() {
		return true
	}
	return c.now().Sub(t) > interval
}

// LastRefresh is when rating events were last stored. Zero if never.
func (c *Cache) LastRefresh() (time.Time, error) {
	value, err := c.getMeta(metaEventsRefresh)
	if err != nil || value == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// Prune deletes rating events that happened before the retention window and
// recommendation snapshots fetched before it. Events without a parsable time
// are kept.
func (c *Cache) Prune(olderThan time.Duration) (int64, error) {
	cutoff := c.now().Add(-olderThan).Unix()

	res, err := c.writeDB.Exec(`DELETE FROM rating_events WHERE occurred_at IS NOT NULL AND occurred_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning rating events: %w", err)
	}
	events, _ := res.RowsAffected()

	res, err = c.writeDB.Exec(`DELETE FROM recommendations WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return events, fmt.Errorf("pruning recommendations: %w", err)
	}
	recs, _ := res.RowsAffected()

	if events+recs > 0 {
		if _, err := c.writeDB.Exec("VACUUM"); err != nil {
			return events + recs, fmt.Errorf("vacuum: %w", err)
		}
	}
	return events + recs, nil
}

// Stats describes what the cache holds.
type Stats struct {
	Events          int
	Recommendations int
	Size            int64
	LastRefresh     time.Time
}

func (c *Cache) Stats(dbPath string) (Stats, error) {
	var s Stats
	if err := c.readDB.QueryRow(`SELECT COUNT(*) FROM rating_events`).Scan(&s.Events); err != nil {
		return s, fmt.Errorf("counting rating events: %w", err)
	}
	if err := c.readDB.QueryRow(`SELECT COUNT(*) FROM recommendations`).Scan(&s.Recommendations); err != nil {
		return s, fmt.Errorf("counting recommendations: %w", err)
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return s, fmt.Errorf("stat cache file: %w", err)
	}
	s.Size = info.Size()
	s.LastRefresh, _ = c.LastRefresh()
	return s, nil
}

func (c *Cache) getMeta(key string) (string, error) {
	var value string
	err := c.readDB.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func setMeta(db execer, key, value string) error {
	_, err := db.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
