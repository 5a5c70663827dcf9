package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned for an unknown session id
var ErrSessionNotFound = errors.New("session not found")

// BeginSession inserts a running session
func (db *DB) BeginSession(ctx context.Context, s SessionRecord) error {
	if s.Status == "" {
		s.Status = StatusRunning
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sessions (id, mode, window_title, started_at, status, loops_done, stop_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Mode, s.WindowTitle, s.StartedAt, s.Status, s.LoopsDone, s.StopReason)
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", s.ID, err)
	}
	return nil
}

// EndSession closes a session with its final status
func (db *DB) EndSession(ctx context.Context, id, status string, loopsDone int, reason string) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE sessions
		SET ended_at = ?, status = ?, loops_done = ?, stop_reason = ?
		WHERE id = ?
	`, time.Now(), status, loopsDone, reason, id)
	if err != nil {
		return fmt.Errorf("failed to end session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// RecordRound appends a round to its session
func (db *DB) RecordRound(ctx context.Context, r RoundRecord) error {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now()
	}
	return db.ExecTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rounds (session_id, round, scenario, recognized, top_score, script, outcome, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, r.SessionID, r.Round, r.Scenario, r.Recognized, r.TopScore, r.Script, r.Outcome, r.RecordedAt)
		if err != nil {
			return fmt.Errorf("failed to insert round: %w", err)
		}
		_, err = tx.ExecContext(ctx, `UPDATE sessions SET loops_done = MAX(loops_done, ?) WHERE id = ?`, r.Round, r.SessionID)
		return err
	})
}

// GetSession loads one session
func (db *DB) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, mode, window_title, started_at, ended_at, status, loops_done, stop_reason
		FROM sessions WHERE id = ?
	`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, err
}

// RecentSessions returns the newest sessions first
func (db *DB) RecentSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, mode, window_title, started_at, ended_at, status, loops_done, stop_reason
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Rounds returns a session's rounds in order
func (db *DB) Rounds(ctx context.Context, sessionID string) ([]RoundRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, session_id, round, scenario, recognized, top_score, script, outcome, recorded_at
		FROM rounds
		WHERE session_id = ?
		ORDER BY round, id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var out []RoundRecord
	for rows.Next() {
		var r RoundRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Round, &r.Scenario, &r.Recognized, &r.TopScore, &r.Script, &r.Outcome, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ScenarioCount is how often a scenario was played
type ScenarioCount struct {
	Scenario   string
	Rounds     int
	Recognized int
}

// ScenarioCounts aggregates rounds per scenario, most played first
func (db *DB) ScenarioCounts(ctx context.Context) ([]ScenarioCount, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT script, COUNT(*), SUM(recognized)
		FROM rounds
		GROUP BY script
		ORDER BY COUNT(*) DESC, script
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate rounds: %w", err)
	}
	defer rows.Close()

	var out []ScenarioCount
	for rows.Next() {
		var c ScenarioCount
		if err := rows.Scan(&c.Scenario, &c.Rounds, &c.Recognized); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*SessionRecord, error) {
	var s SessionRecord
	var ended sql.NullTime
	if err := row.Scan(&s.ID, &s.Mode, &s.WindowTitle, &s.StartedAt, &ended, &s.Status, &s.LoopsDone, &s.StopReason); err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		s.EndedAt = &t
	}
	return &s, nil
}
