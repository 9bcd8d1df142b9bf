package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LockHolder describes the instance currently holding the lock.
type LockHolder struct {
	InstanceID  string
	PID         int
	HeartbeatAt time.Time
}

// LockRepository implements a heartbeat lease shared by every running
// instance on the machine.
type LockRepository struct {
	db *sql.DB
}

// Acquire takes or refreshes the lease for instanceID. It succeeds when the
// lease is free, already held by instanceID, or its heartbeat is older than
// stale. It returns the holder after the attempt.
func (r *LockRepository) Acquire(ctx context.Context, instanceID string, pid int, now time.Time, stale time.Duration) (bool, LockHolder, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, LockHolder{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	holder, held, err := readHolder(ctx, tx)
	if err != nil {
		return false, LockHolder{}, err
	}
	if held && holder.InstanceID != instanceID && now.Sub(holder.HeartbeatAt) <= stale {
		return false, holder, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO instance_lock (id, instance_id, pid, heartbeat_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET instance_id = excluded.instance_id, pid = excluded.pid, heartbeat_at = excluded.heartbeat_at`,
		instanceID, pid, now.UnixMilli())
	if err != nil {
		return false, LockHolder{}, fmt.Errorf("writing lock: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, LockHolder{}, fmt.Errorf("committing lock: %w", err)
	}
	return true, LockHolder{InstanceID: instanceID, PID: pid, HeartbeatAt: time.UnixMilli(now.UnixMilli())}, nil
}

// Release drops the lease if instanceID holds it.
func (r *LockRepository) Release(ctx context.Context, instanceID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM instance_lock WHERE id = 1 AND instance_id = ?`, instanceID); err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}
	return nil
}

// Holder returns the current holder, if any.
func (r *LockRepository) Holder(ctx context.Context) (LockHolder, bool, error) {
	return readHolder(ctx, r.db)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readHolder(ctx context.Context, q rowQuerier) (LockHolder, bool, error) {
	var (
		h  LockHolder
		hb int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT instance_id, pid, heartbeat_at FROM instance_lock WHERE id = 1`,
	).Scan(&h.InstanceID, &h.PID, &hb)
	if errors.Is(err, sql.ErrNoRows) {
		return LockHolder{}, false, nil
	}
	if err != nil {
		return LockHolder{}, false, fmt.Errorf("reading lock: %w", err)
	}
	h.HeartbeatAt = time.UnixMilli(hb)
	return h, true, nil
}
