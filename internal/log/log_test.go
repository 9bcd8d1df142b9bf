package log

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func captureLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(Close)
	return logs
}

func TestLog_AddsCategoryField(t *testing.T) {
	logs := captureLogs(t)

	Info(CatCDP, "Connected to page", "port", 9222)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "Connected to page", entries[0].Message)
	fields := entries[0].ContextMap()
	require.Equal(t, "cdp", fields["cat"])
	require.EqualValues(t, 9222, fields["port"])
}

func TestLog_ErrorErrIncludesError(t *testing.T) {
	logs := captureLogs(t)

	ErrorErr(CatDB, "Failed to save", errors.New("disk full"), "key", "stats")

	entries := logs.FilterMessage("Failed to save").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "disk full", fields["error"])
	require.Equal(t, "stats", fields["key"])
	require.Equal(t, "db", fields["cat"])
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	logs := captureLogs(t)

	var wg sync.WaitGroup
	wg.Add(1)
	SafeGo("test.panicker", func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("goroutine panicked").Len() == 1
	}, time.Second, 10*time.Millisecond)
	fields := logs.FilterMessage("goroutine panicked").All()[0].ContextMap()
	require.Equal(t, "test.panicker", fields["goroutine"])
	require.Equal(t, "boom", fields["panic"])
}

func TestInit_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autoaccept.log")
	require.NoError(t, Init(Config{Level: "debug", Format: "json", Output: path}))

	Debug(CatPoll, "tick", "state", "running")
	Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"tick"`)
	require.Contains(t, string(data), `"cat":"poll"`)
}

func TestInit_RejectsUnknownFormat(t *testing.T) {
	err := Init(Config{Format: "xml"})
	require.Error(t, err)
}

func TestLog_NoopBeforeInit(t *testing.T) {
	Close()
	require.NotPanics(t, func() {
		Warn(CatUI, "nothing configured")
	})
}
