package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// BannedRepository stores the user's banned command patterns. Until the
// list is customized, callers fall back to the built-in defaults.
type BannedRepository struct {
	db       *sql.DB
	settings *SettingsRepository
}

// List returns the stored patterns in insertion order and whether the list
// was ever customized.
func (r *BannedRepository) List(ctx context.Context) ([]string, bool, error) {
	_, custom, err := r.settings.Get(ctx, keyBannedCustom)
	if err != nil || !custom {
		return nil, false, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT pattern FROM banned_commands ORDER BY id`)
	if err != nil {
		return nil, true, fmt.Errorf("listing banned commands: %w", err)
	}
	defer func() { _ = rows.Close() }()

	patterns := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, true, err
		}
		patterns = append(patterns, p)
	}
	return patterns, true, rows.Err()
}

// Replace overwrites the stored list and marks it customized.
func (r *BannedRepository) Replace(ctx context.Context, patterns []string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM banned_commands`); err != nil {
		return fmt.Errorf("clearing banned commands: %w", err)
	}
	now := time.Now().UnixMilli()
	for _, p := range patterns {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO banned_commands (pattern, created_at) VALUES (?, ?) ON CONFLICT(pattern) DO NOTHING`,
			p, now); err != nil {
			return fmt.Errorf("inserting banned command: %w", err)
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, '1', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		keyBannedCustom, now); err != nil {
		return fmt.Errorf("marking banned list customized: %w", err)
	}
	return tx.Commit()
}

// Add appends pattern to the list, seeding it with base when the list was
// never customized. Adding an existing pattern is a no-op.
func (r *BannedRepository) Add(ctx context.Context, pattern string, base []string) error {
	current, custom, err := r.List(ctx)
	if err != nil {
		return err
	}
	if !custom {
		current = append([]string{}, base...)
	}
	for _, p := range current {
		if p == pattern {
			return nil
		}
	}
	return r.Replace(ctx, append(current, pattern))
}

// Reset drops customizations so callers use the defaults again.
func (r *BannedRepository) Reset(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM banned_commands`); err != nil {
		return fmt.Errorf("clearing banned commands: %w", err)
	}
	return r.settings.Delete(ctx, keyBannedCustom)
}
