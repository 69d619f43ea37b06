// Package eventlog persists driving sessions and their alert history in a
// local sqlite file.
package eventlog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/teslashibe/go-safedrive/pkg/alert"
)

// ErrUnknownSession is returned for a session id that was never begun.
var ErrUnknownSession = errors.New("unknown session")

// Store is the sqlite-backed event log.
type Store struct {
	db *sql.DB
}

// AlertEvent is one recorded level transition.
type AlertEvent struct {
	SessionID string      `json:"session_id"`
	Level     alert.Level `json:"level"`
	Score     int         `json:"score"`
	At        time.Time   `json:"at"`
}

// Summary aggregates one session.
type Summary struct {
	SessionID   string              `json:"session_id"`
	StartedAt   time.Time           `json:"started_at"`
	EndedAt     time.Time           `json:"ended_at,omitempty"`
	Transitions map[alert.Level]int `json:"transitions"` // entries into each level
	TotalYawns  uint                `json:"total_yawns"`
}

// Duration returns how long the session ran, or 0 if it has not ended.
func (s Summary) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	// sqlite serializes writers anyway
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id                TEXT PRIMARY KEY,
			started_at        BIGINT NOT NULL,
			ended_at          BIGINT
		);
		CREATE TABLE IF NOT EXISTS alert_events (
			session_id        TEXT NOT NULL,
			level             TEXT NOT NULL,
			score             INTEGER NOT NULL,
			at                BIGINT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id)
		);
		CREATE TABLE IF NOT EXISTS yawn_events (
			session_id        TEXT NOT NULL,
			total             INTEGER NOT NULL,
			consecutive       INTEGER NOT NULL,
			at                BIGINT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id)
		);
		CREATE INDEX IF NOT EXISTS idx_alert_events_session ON alert_events(session_id, at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create event log schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginSession records a new session and returns its id.
func (s *Store) BeginSession(at time.Time) (string, error) {
	id := uuid.NewString()
	if _, err := s.db.Exec(`INSERT INTO sessions (id, started_at) VALUES (?, ?)`, id, at.UnixMilli()); err != nil {
		return "", fmt.Errorf("begin session: %w", err)
	}
	return id, nil
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(id string, at time.Time) error {
	res, err := s.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end session %s: %w", id, ErrUnknownSession)
	}
	return nil
}

// RecordAlert stores a level transition.
func (s *Store) RecordAlert(sessionID string, level alert.Level, score int, at time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO alert_events (session_id, level, score, at) VALUES (?, ?, ?, ?)`,
		sessionID, level.String(), score, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record alert: %w", err)
	}
	return nil
}

// RecordYawn stores a counted yawn.
func (s *Store) RecordYawn(sessionID string, total, consecutive uint, at time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO yawn_events (session_id, total, consecutive, at) VALUES (?, ?, ?, ?)`,
		sessionID, int64(total), int64(consecutive), at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record yawn: %w", err)
	}
	return nil
}

// RecentAlerts returns up to limit transitions for a session, newest first.
func (s *Store) RecentAlerts(sessionID string, limit int) ([]AlertEvent, error) {
	rows, err := s.db.Query(
		`SELECT level, score, at FROM alert_events WHERE session_id = ? ORDER BY at DESC, rowid DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var events []AlertEvent
	for rows.Next() {
		var (
			levelText string
			ev        AlertEvent
			at        int64
		)
		if err := rows.Scan(&levelText, &ev.Score, &at); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if ev.Level, err = alert.ParseLevel(levelText); err != nil {
			return nil, err
		}
		ev.SessionID = sessionID
		ev.At = time.UnixMilli(at)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Summary aggregates a session's events.
func (s *Store) Summary(sessionID string) (Summary, error) {
	sum := Summary{SessionID: sessionID, Transitions: make(map[alert.Level]int)}

	var started int64
	var ended sql.NullInt64
	err := s.db.QueryRow(`SELECT started_at, ended_at FROM sessions WHERE id = ?`, sessionID).Scan(&started, &ended)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, fmt.Errorf("summary %s: %w", sessionID, ErrUnknownSession)
	}
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	sum.StartedAt = time.UnixMilli(started)
	if ended.Valid {
		sum.EndedAt = time.UnixMilli(ended.Int64)
	}

	rows, err := s.db.Query(`SELECT level, COUNT(*) FROM alert_events WHERE session_id = ? GROUP BY level`, sessionID)
	if err != nil {
		return Summary{}, fmt.Errorf("summary alerts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var levelText string
		var n int
		if err := rows.Scan(&levelText, &n); err != nil {
			return Summary{}, fmt.Errorf("scan summary: %w", err)
		}
		level, err := alert.ParseLevel(levelText)
		if err != nil {
			return Summary{}, err
		}
		sum.Transitions[level] = n
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	var yawns sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(total) FROM yawn_events WHERE session_id = ?`, sessionID).Scan(&yawns); err != nil {
		return Summary{}, fmt.Errorf("summary yawns: %w", err)
	}
	if yawns.Valid {
		sum.TotalYawns = uint(yawns.Int64)
	}
	return sum, nil
}
