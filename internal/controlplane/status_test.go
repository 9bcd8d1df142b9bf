package controlplane

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndicator_String(t *testing.T) {
	on := Snapshot{Enabled: true, State: StateRunning, MaxRecoveries: 3}
	with := func(f func(*Snapshot)) Snapshot {
		s := on
		f(&s)
		return s
	}

	tests := []struct {
		name string
		in   Indicator
		want string
	}{
		{"disabled", Indicator{Snapshot: with(func(s *Snapshot) { s.Enabled = false }), CDP: true, Connections: 1}, "OFF"},
		{"paused", Indicator{Snapshot: on, Paused: true}, "PAUSED (multi-window)"},
		{"native only", Indicator{Snapshot: on}, "ON"},
		{"waiting for pages", Indicator{Snapshot: on, CDP: true}, "WAITING"},
		{"connected", Indicator{Snapshot: on, CDP: true, Connections: 2}, "ON"},
		{"background", Indicator{Snapshot: on, CDP: true, Connections: 1, Background: true}, "ON (Background)"},
		{"recovering", Indicator{Snapshot: with(func(s *Snapshot) { s.State = StateRecovering; s.RetryCount = 2 }), CDP: true, Connections: 1}, "RECOVERING... (2/3)"},
		{"recovered", Indicator{Snapshot: with(func(s *Snapshot) { s.State = StateRecovered; s.RetryCount = 1 }), CDP: true, Connections: 1}, "RECOVERED (1)"},
		{"stalled waits", Indicator{Snapshot: with(func(s *Snapshot) { s.State = StateStalled }), CDP: true, Connections: 1}, "WAITING"},
		{"stalled in background waits", Indicator{Snapshot: with(func(s *Snapshot) { s.State = StateStalled }), CDP: true, Connections: 1, Background: true}, "WAITING"},
		{"stalled native waits", Indicator{Snapshot: with(func(s *Snapshot) { s.State = StateStalled })}, "WAITING"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.in.String())
		})
	}
}

func TestPolicy_Validate(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())

	p.PromptCooldown = -1
	require.Error(t, p.Validate())
}

func TestAgentState_IsValid(t *testing.T) {
	for _, s := range []AgentState{StateRunning, StateStalled, StateRecovering, StateRecovered} {
		require.True(t, s.IsValid())
	}
	require.False(t, AgentState("paused").IsValid())
}
