package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewDB_CreatesDirectoryAndSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "state.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	require.Equal(t, path, db.Path())
	require.NoError(t, db.Close())

	// Reopening an existing database is a no-op migration.
	db, err = NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestSettings_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t).Settings()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	require.NoError(t, s.Set(ctx, "k", "v2"))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettings_EnabledAndToggle(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t).Settings()

	on, err := s.Enabled(ctx, true)
	require.NoError(t, err)
	assert.True(t, on, "fallback used when unset")

	on, err = s.Toggle(ctx, true)
	require.NoError(t, err)
	assert.False(t, on)

	on, err = s.Enabled(ctx, true)
	require.NoError(t, err)
	assert.False(t, on)

	on, err = s.Toggle(ctx, true)
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, s.Set(ctx, KeyEnabled, "garbage"))
	on, err = s.Enabled(ctx, false)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestSettings_Frequency(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t).Settings()

	d, err := s.Frequency(ctx)
	require.NoError(t, err)
	assert.Zero(t, d)

	require.NoError(t, s.SetFrequency(ctx, 750*time.Millisecond))
	d, err = s.Frequency(ctx)
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, d)
}

func TestSettings_LastDismissedAt(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t).Settings()

	at, err := s.LastDismissedAt(ctx)
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	when := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, s.SetLastDismissedAt(ctx, when))
	at, err = s.LastDismissedAt(ctx)
	require.NoError(t, err)
	assert.True(t, when.Equal(at))
}

func TestSettings_UserIDIsStable(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t).Settings()

	id, err := s.UserID(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	again, err := s.UserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestBanned_DefaultsUntilCustomized(t *testing.T) {
	ctx := context.Background()
	b := newTestDB(t).Banned()

	list, custom, err := b.List(ctx)
	require.NoError(t, err)
	assert.False(t, custom)
	assert.Nil(t, list)

	base := []string{"rm -rf /", "format c:"}
	require.NoError(t, b.Add(ctx, "shutdown", base))
	list, custom, err = b.List(ctx)
	require.NoError(t, err)
	assert.True(t, custom)
	assert.Equal(t, []string{"rm -rf /", "format c:", "shutdown"}, list)

	// Duplicate add leaves the list unchanged.
	require.NoError(t, b.Add(ctx, "shutdown", base))
	list, _, err = b.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestBanned_ReplaceEmptyIsStillCustom(t *testing.T) {
	ctx := context.Background()
	b := newTestDB(t).Banned()

	require.NoError(t, b.Replace(ctx, nil))
	list, custom, err := b.List(ctx)
	require.NoError(t, err)
	assert.True(t, custom)
	assert.Empty(t, list)

	require.NoError(t, b.Reset(ctx))
	list, custom, err = b.List(ctx)
	require.NoError(t, err)
	assert.False(t, custom)
	assert.Nil(t, list)
}

func TestStats_Counters(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t).Stats()

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, got)

	require.NoError(t, s.Add(ctx, 3, 1))
	require.NoError(t, s.Add(ctx, 2, 0))
	require.NoError(t, s.Add(ctx, 0, 0))
	at := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, s.SessionStarted(ctx, at))

	got, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Clicks)
	assert.Equal(t, int64(1), got.Blocked)
	assert.Equal(t, int64(1), got.Sessions)
	assert.True(t, at.Equal(got.LastSessionAt))

	require.NoError(t, s.Reset(ctx))
	got, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, got)
}

func TestLock_AcquireContention(t *testing.T) {
	ctx := context.Background()
	l := newTestDB(t).Lock()
	now := time.UnixMilli(1_700_000_000_000)
	stale := 10 * time.Second

	ok, holder, err := l.Acquire(ctx, "a", 100, now, stale)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", holder.InstanceID)

	ok, holder, err = l.Acquire(ctx, "b", 200, now.Add(time.Second), stale)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "a", holder.InstanceID)
	assert.Equal(t, 100, holder.PID)

	// Refresh by the holder.
	ok, _, err = l.Acquire(ctx, "a", 100, now.Add(5*time.Second), stale)
	require.NoError(t, err)
	assert.True(t, ok)

	// Takeover after the heartbeat goes stale.
	ok, holder, err = l.Acquire(ctx, "b", 200, now.Add(16*time.Second), stale)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", holder.InstanceID)
}

func TestLock_Release(t *testing.T) {
	ctx := context.Background()
	l := newTestDB(t).Lock()
	now := time.Now()

	ok, _, err := l.Acquire(ctx, "a", 1, now, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// Releasing someone else's lease does nothing.
	require.NoError(t, l.Release(ctx, "b"))
	_, held, err := l.Holder(ctx)
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, l.Release(ctx, "a"))
	_, held, err = l.Holder(ctx)
	require.NoError(t, err)
	assert.False(t, held)

	ok, _, err = l.Acquire(ctx, "b", 2, now, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
