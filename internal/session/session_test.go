package session

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/autoaccept/internal/config"
	"github.com/zjrosen/autoaccept/internal/controlplane"
	"github.com/zjrosen/autoaccept/internal/editor"
	"github.com/zjrosen/autoaccept/internal/entitlement"
	"github.com/zjrosen/autoaccept/internal/infrastructure/sqlite"
	"github.com/zjrosen/autoaccept/internal/mocks"
	"github.com/zjrosen/autoaccept/internal/safety"
)

func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func testConfig(t *testing.T, editorName string) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Editor = editorName
	port := closedPort(t)
	cfg.CDP.PortStart, cfg.CDP.PortEnd = port, port
	cfg.CDP.DiscoveryTimeout = 200 * time.Millisecond
	cfg.CDP.ConnectTimeout = 200 * time.Millisecond
	cfg.CDP.RediscoveryInterval = time.Hour
	cfg.Poll.NativeInterval = time.Hour
	return cfg
}

func testStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newSession(t *testing.T, opts Options) *Session {
	t.Helper()
	s, err := New(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func TestSession_WaitingWithoutPages(t *testing.T) {
	s := newSession(t, Options{Config: testConfig(t, config.EditorCursor), Store: testStore(t)})

	assert.False(t, s.Start(context.Background()))
	assert.Equal(t, "WAITING", s.Status().String())
	assert.Empty(t, s.Pages())
}

func TestSession_BackgroundStatus(t *testing.T) {
	cfg := testConfig(t, config.EditorCursor)
	cfg.CDP.BackgroundMode = true
	s := newSession(t, Options{Config: cfg})

	ind := s.Status()
	assert.True(t, ind.Background)
	assert.True(t, ind.CDP)
	assert.Equal(t, "WAITING", ind.String(), "no connections yet")
}

func TestSession_StartRecordsSession(t *testing.T) {
	store := testStore(t)
	s := newSession(t, Options{Config: testConfig(t, config.EditorCursor), Store: store})
	s.Start(context.Background())

	stats, err := store.Stats().Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Sessions)
	assert.False(t, stats.LastSessionAt.IsZero())
}

func TestSession_TogglePersists(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	cfg := testConfig(t, config.EditorCursor)
	s := newSession(t, Options{Config: cfg, Store: store})

	on, err := s.Toggle(ctx)
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, "OFF", s.Status().String())

	next := newSession(t, Options{Config: cfg, Store: store})
	assert.False(t, next.Enabled(), "toggle survives restart")

	on, err = next.Toggle(ctx)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestSession_ObservesToggleFromAnotherProcess(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	s := newSession(t, Options{Config: testConfig(t, config.EditorCursor), Store: store})
	require.True(t, s.Enabled())

	require.NoError(t, store.Settings().SetEnabled(ctx, false))
	assert.False(t, s.Enabled())
}

func TestSession_WithoutStoreUsesConfigToggle(t *testing.T) {
	cfg := testConfig(t, config.EditorCursor)
	cfg.Enabled = false
	s := newSession(t, Options{Config: cfg})
	assert.False(t, s.Enabled())

	require.NoError(t, s.SetEnabled(context.Background(), true))
	assert.True(t, s.Enabled())
}

func TestSession_EntitlementChangesInterval(t *testing.T) {
	cfg := testConfig(t, config.EditorCursor)
	cfg.Poll.Interval = 2 * time.Second
	cfg.Poll.FreeInterval = 300 * time.Millisecond
	s := newSession(t, Options{Config: cfg})

	assert.Equal(t, 300*time.Millisecond, s.monitor.Interval())
	assert.False(t, s.client.Entitled())

	s.SetEntitled(true)
	assert.Equal(t, 2*time.Second, s.monitor.Interval())
	assert.True(t, s.client.Entitled())
	assert.True(t, s.Status().Snapshot.Entitled)

	s.SetEntitled(false)
	assert.Equal(t, 300*time.Millisecond, s.monitor.Interval())
}

func TestSession_ApplyConfig(t *testing.T) {
	cfg := testConfig(t, config.EditorCursor)
	s := newSession(t, Options{Config: cfg})

	next := cfg
	next.Entitlement.Entitled = true
	next.Poll.Interval = 5 * time.Second
	next.Recovery.MaxAttempts = 5
	next.CDP.BackgroundMode = true
	s.ApplyConfig(next)

	assert.True(t, s.Gate().Entitled())
	assert.Equal(t, 5*time.Second, s.monitor.Interval())
	assert.Equal(t, 5, s.monitor.Snapshot().MaxRecoveries)
	assert.True(t, s.Status().Background)
}

func TestSession_StartVerifiesEntitlement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/verify", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("userId"))
		_ = json.NewEncoder(w).Encode(map[string]bool{"isPro": true})
	}))
	t.Cleanup(srv.Close)

	s := newSession(t, Options{
		Config:   testConfig(t, config.EditorCursor),
		Store:    testStore(t),
		Verifier: entitlement.NewVerifier(srv.URL, time.Minute, srv.Client()),
	})
	require.False(t, s.Gate().Entitled())

	s.Start(context.Background())
	assert.True(t, s.Gate().Entitled())
}

func TestSession_ApplyConfigLiftsOverride(t *testing.T) {
	s := newSession(t, Options{Config: testConfig(t, config.EditorCursor)})

	next := s.cfg
	next.Entitlement.Entitled = true
	s.ApplyConfig(next)
	require.True(t, s.Gate().Entitled())

	next.Entitlement.Entitled = false
	s.ApplyConfig(next)
	assert.False(t, s.Gate().Entitled())
	assert.False(t, s.client.Entitled())
	assert.Equal(t, next.Poll.FreeInterval, s.monitor.Interval())
}

func TestSession_ApplyConfigLiftedOverrideUsesVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"isPro": false})
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(t, config.EditorCursor)
	cfg.Entitlement.Entitled = true
	s := newSession(t, Options{
		Config:   cfg,
		Store:    testStore(t),
		Verifier: entitlement.NewVerifier(srv.URL, time.Minute, srv.Client()),
	})
	require.True(t, s.Gate().Entitled())

	next := cfg
	next.Entitlement.Entitled = false
	s.ApplyConfig(next)
	assert.False(t, s.Gate().Entitled())
}

func TestSession_PromptStartsUpgradeWatch(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Not entitled at startup and for the first re-check.
		_ = json.NewEncoder(w).Encode(map[string]bool{"isPro": calls.Add(1) > 2})
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(t, config.EditorCursor)
	cfg.Poll.Interval = 2 * time.Second
	cfg.Entitlement.UpgradePollInterval = 20 * time.Millisecond
	cfg.Entitlement.UpgradePollAttempts = 50
	s := newSession(t, Options{
		Config:   cfg,
		Store:    testStore(t),
		Verifier: entitlement.NewVerifier(srv.URL, time.Minute, srv.Client()),
	})
	s.Start(context.Background())
	require.False(t, s.Gate().Entitled())
	require.False(t, s.client.Entitled())

	s.handleEvent(controlplane.NewEvent(controlplane.EventPromptShown, time.Now()))
	s.handleEvent(controlplane.NewEvent(controlplane.EventPromptShown, time.Now()))

	require.Eventually(t, s.Gate().Entitled, 3*time.Second, 10*time.Millisecond)
	assert.True(t, s.client.Entitled())
	assert.Equal(t, 2*time.Second, s.monitor.Interval())
	assert.True(t, s.Status().Snapshot.Entitled)
	assert.Equal(t, int32(3), calls.Load(), "one watch at a time")
}

func TestSession_StopEndsUpgradeWatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"isPro": false})
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(t, config.EditorCursor)
	cfg.Entitlement.UpgradePollInterval = time.Hour
	s, err := New(context.Background(), Options{
		Config:   cfg,
		Store:    testStore(t),
		Verifier: entitlement.NewVerifier(srv.URL, time.Minute, srv.Client()),
	})
	require.NoError(t, err)
	s.Start(context.Background())
	s.handleEvent(controlplane.NewEvent(controlplane.EventPromptShown, time.Now()))
	require.True(t, s.upgradeWatch.Load())

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not end the upgrade watch")
	}
	assert.False(t, s.Gate().Entitled())
}

func TestSession_DismissPrompt(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	s := newSession(t, Options{Config: testConfig(t, config.EditorCursor), Store: store})

	require.NoError(t, s.DismissPrompt(ctx))
	at, err := store.Settings().LastDismissedAt(ctx)
	require.NoError(t, err)
	assert.False(t, at.IsZero())
}

func TestSession_NativeProfileRequiresRunner(t *testing.T) {
	_, err := New(context.Background(), Options{Config: testConfig(t, config.EditorAntigravity)})
	require.ErrorIs(t, err, editor.ErrNoRunner)
}

func TestSession_NativeStatusHasNoConnections(t *testing.T) {
	runner := mocks.NewMockCommandRunner(t)
	s := newSession(t, Options{Config: testConfig(t, config.EditorAntigravity), Runner: runner})

	assert.Nil(t, s.client)
	assert.Equal(t, "ON", s.Status().String())
	assert.Zero(t, s.NativeExecuted())
}

func TestSession_InstanceLockPausesSecondInstance(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	cfg := testConfig(t, config.EditorAntigravity)
	runner := mocks.NewMockCommandRunner(t)
	runner.EXPECT().Execute(mock.Anything, mock.Anything).Return(nil).Maybe()

	first := newSession(t, Options{Config: cfg, Store: store, Runner: runner})
	second := newSession(t, Options{Config: cfg, Store: store, Runner: runner})

	require.True(t, first.allowNative(ctx))
	assert.False(t, second.allowNative(ctx))
	assert.Equal(t, "PAUSED (multi-window)", second.Status().String())
	assert.Equal(t, "ON", first.Status().String())

	// Entitled sessions ignore the lock.
	second.SetEntitled(true)
	assert.True(t, second.allowNative(ctx))
	second.SetEntitled(false)

	first.guard.release(ctx)
	assert.True(t, second.allowNative(ctx))
	assert.Equal(t, "ON", second.Status().String())
}

func TestSession_NativeDisabledSkipsTick(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.EditorAntigravity)
	cfg.Enabled = false
	s := newSession(t, Options{Config: cfg, Runner: mocks.NewMockCommandRunner(t)})

	assert.False(t, s.allowNative(ctx))
}

func TestResolveBanned(t *testing.T) {
	ctx := context.Background()

	got, err := ResolveBanned(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, safety.DefaultBannedCommands(), got)

	got, err = ResolveBanned(ctx, nil, []string{"curl"})
	require.NoError(t, err)
	assert.Equal(t, []string{"curl"}, got)

	store := testStore(t)
	got, err = ResolveBanned(ctx, store, []string{"curl"})
	require.NoError(t, err)
	assert.Equal(t, []string{"curl"}, got, "uncustomized store defers to config")

	require.NoError(t, store.Banned().Replace(ctx, []string{"wget", "/[bad/"}))
	got, err = ResolveBanned(ctx, store, []string{"curl"})
	require.NoError(t, err)
	assert.Equal(t, []string{"wget", "/[bad/"}, got)
}

func TestClassifierOptions(t *testing.T) {
	cfg := config.Defaults()
	cfg.Classifier.Buttons.Run = false
	opts := ClassifierOptions(cfg, []string{"x"})

	assert.False(t, opts.Buttons.Run)
	assert.True(t, opts.Buttons.AcceptAll)
	assert.Equal(t, cfg.Classifier.StuckThreshold, opts.StuckThreshold)
	assert.Equal(t, []string{"x"}, opts.BannedCommands)
}
