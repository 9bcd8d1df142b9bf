package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Setting keys.
const (
	KeyEnabled         = "enabled"
	KeyFrequency       = "frequency_ms"
	KeyLastDismissedAt = "last_dismissed_at"
	KeyUserID          = "user_id"
	keyBannedCustom    = "banned_customized"
)

// SettingsRepository is a string key/value store.
type SettingsRepository struct {
	db *sql.DB
}

// Get returns the value for key and whether it was set.
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (r *SettingsRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting setting %s: %w", key, err)
	}
	return nil
}

// Enabled returns the persisted toggle, or fallback when never set.
func (r *SettingsRepository) Enabled(ctx context.Context, fallback bool) (bool, error) {
	v, ok, err := r.Get(ctx, KeyEnabled)
	if err != nil || !ok {
		return fallback, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, nil
	}
	return b, nil
}

// SetEnabled persists the toggle.
func (r *SettingsRepository) SetEnabled(ctx context.Context, enabled bool) error {
	return r.Set(ctx, KeyEnabled, strconv.FormatBool(enabled))
}

// Toggle flips the persisted toggle and returns the new value.
func (r *SettingsRepository) Toggle(ctx context.Context, fallback bool) (bool, error) {
	cur, err := r.Enabled(ctx, fallback)
	if err != nil {
		return cur, err
	}
	return !cur, r.SetEnabled(ctx, !cur)
}

// Frequency returns the persisted poll interval, or zero when never set.
func (r *SettingsRepository) Frequency(ctx context.Context) (time.Duration, error) {
	v, ok, err := r.Get(ctx, KeyFrequency)
	if err != nil || !ok {
		return 0, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, nil
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// SetFrequency persists the poll interval.
func (r *SettingsRepository) SetFrequency(ctx context.Context, d time.Duration) error {
	return r.Set(ctx, KeyFrequency, strconv.FormatInt(d.Milliseconds(), 10))
}

// LastDismissedAt returns when the upgrade notice was last dismissed, or the
// zero time.
func (r *SettingsRepository) LastDismissedAt(ctx context.Context) (time.Time, error) {
	v, ok, err := r.Get(ctx, KeyLastDismissedAt)
	if err != nil || !ok {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, nil
	}
	return time.UnixMilli(ms), nil
}

// SetLastDismissedAt records a dismissal of the upgrade notice.
func (r *SettingsRepository) SetLastDismissedAt(ctx context.Context, t time.Time) error {
	return r.Set(ctx, KeyLastDismissedAt, strconv.FormatInt(t.UnixMilli(), 10))
}

// UserID returns the anonymous user id, creating one on first use.
func (r *SettingsRepository) UserID(ctx context.Context) (string, error) {
	v, ok, err := r.Get(ctx, KeyUserID)
	if err != nil {
		return "", err
	}
	if ok && v != "" {
		return v, nil
	}
	id := uuid.NewString()
	if err := r.Set(ctx, KeyUserID, id); err != nil {
		return "", err
	}
	return id, nil
}
