package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Stats are the lifetime counters.
type Stats struct {
	Clicks        int64
	Blocked       int64
	Sessions      int64
	LastSessionAt time.Time
}

// StatsRepository maintains the single stats row.
type StatsRepository struct {
	db *sql.DB
}

// Get returns the current counters.
func (r *StatsRepository) Get(ctx context.Context) (Stats, error) {
	var (
		s    Stats
		last sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT clicks, blocked, sessions, last_session_at FROM stats WHERE id = 1`,
	).Scan(&s.Clicks, &s.Blocked, &s.Sessions, &last)
	if err != nil {
		return Stats{}, fmt.Errorf("reading stats: %w", err)
	}
	if last.Valid {
		s.LastSessionAt = time.UnixMilli(last.Int64)
	}
	return s, nil
}

// Add increments the click and blocked counters.
func (r *StatsRepository) Add(ctx context.Context, clicks, blocked int64) error {
	if clicks == 0 && blocked == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE stats SET clicks = clicks + ?, blocked = blocked + ? WHERE id = 1`, clicks, blocked)
	if err != nil {
		return fmt.Errorf("updating stats: %w", err)
	}
	return nil
}

// SessionStarted counts a new run.
func (r *StatsRepository) SessionStarted(ctx context.Context, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE stats SET sessions = sessions + 1, last_session_at = ? WHERE id = 1`, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("updating stats: %w", err)
	}
	return nil
}

// Reset zeroes every counter.
func (r *StatsRepository) Reset(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE stats SET clicks = 0, blocked = 0, sessions = 0, last_session_at = NULL WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("resetting stats: %w", err)
	}
	return nil
}
