package editor

import (
	"context"
	"errors"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/autoaccept/internal/mocks"
)

func TestLookup(t *testing.T) {
	p, err := Lookup("antigravity")
	require.NoError(t, err)
	require.Equal(t, []string{CmdAcceptAgentStep, CmdTerminalAccept}, p.NativeCommands)
	require.True(t, p.HasNative())
	require.False(t, p.CDP)
	require.True(t, p.InstanceLock)

	p.NativeCommands[0] = "mutated"
	again, _ := Lookup("antigravity")
	require.Equal(t, CmdAcceptAgentStep, again.NativeCommands[0])

	c, err := Lookup("cursor")
	require.NoError(t, err)
	require.True(t, c.CDP)
	require.False(t, c.HasNative())

	_, err = Lookup("notepad")
	require.ErrorContains(t, err, "unknown editor profile")

	require.Equal(t, []string{"antigravity", "cursor"}, Names())
}

func TestExecRunner_Args(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want []string
	}{
		{"placeholder", []string{"bridge", "exec", "{command}"}, []string{"bridge", "exec", "a.b"}},
		{"embedded placeholder", []string{"bridge", "--cmd={command}"}, []string{"bridge", "--cmd=a.b"}},
		{"appended", []string{"bridge", "exec"}, []string{"bridge", "exec", "a.b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NewExecRunner(tt.argv, 0).Args("a.b"))
		})
	}
}

func TestExecRunner_Execute(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}
	require.NoError(t, NewExecRunner([]string{"true"}, time.Second).Execute(context.Background(), "x"))
	require.Error(t, NewExecRunner([]string{"false"}, time.Second).Execute(context.Background(), "x"))
	require.ErrorIs(t, NewExecRunner(nil, time.Second).Execute(context.Background(), "x"), ErrNoRunner)
}

func TestNativeLoop_RunOnceSwallowsFailures(t *testing.T) {
	runner := mocks.NewMockCommandRunner(t)
	runner.EXPECT().Execute(mock.Anything, CmdAcceptAgentStep).Return(errors.New("command not found")).Once()
	runner.EXPECT().Execute(mock.Anything, CmdTerminalAccept).Return(nil).Once()

	l := NewNativeLoop(runner, []string{CmdAcceptAgentStep, CmdTerminalAccept}, 0, nil)
	require.Equal(t, 1, l.RunOnce(context.Background()))
	require.EqualValues(t, 1, l.Executed())
}

func TestNativeLoop_StartStop(t *testing.T) {
	runner := mocks.NewMockCommandRunner(t)
	var calls atomic.Int32
	runner.EXPECT().Execute(mock.Anything, "cmd").RunAndReturn(func(context.Context, string) error {
		calls.Add(1)
		return nil
	}).Maybe()

	var allowed atomic.Bool
	l := NewNativeLoop(runner, []string{"cmd"}, 5*time.Millisecond, func(context.Context) bool { return allowed.Load() })
	l.Start(context.Background())
	l.Start(context.Background())

	time.Sleep(30 * time.Millisecond)
	require.Zero(t, calls.Load(), "disallowed ticks run nothing")

	allowed.Store(true)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	l.Stop()
	l.Stop()
	n := calls.Load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, n, calls.Load())
}
