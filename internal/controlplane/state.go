// Package controlplane drives the session-level agent state from page verdicts.
package controlplane

import (
	"fmt"
	"time"
)

// AgentState is the session-level state of the agent being watched.
type AgentState string

const (
	// StateRunning means no page reports a stall. Initial state.
	StateRunning AgentState = "running"
	// StateStalled means a page reports a stall and no recovery is in progress.
	StateStalled AgentState = "stalled"
	// StateRecovering means a recovery attempt was made and has not yet produced a click.
	StateRecovering AgentState = "recovering"
	// StateRecovered means a recovery attempt was followed by a successful click.
	StateRecovered AgentState = "recovered"
)

// IsValid returns true if this is a recognized AgentState value.
func (s AgentState) IsValid() bool {
	switch s {
	case StateRunning, StateStalled, StateRecovering, StateRecovered:
		return true
	}
	return false
}

// Policy configures stall handling.
type Policy struct {
	// MaxRecoveries is the number of recovery attempts allowed between
	// running-state resets. Default: 3.
	MaxRecoveries int

	// PromptCooldown is the minimum time since the upgrade prompt was last
	// dismissed before it may be shown again. Default: 24 hours.
	PromptCooldown time.Duration

	// Background runs accept passes with the relaxed visibility check.
	Background bool
}

// DefaultPolicy returns a Policy with the stock limits.
func DefaultPolicy() Policy {
	return Policy{
		MaxRecoveries:  3,
		PromptCooldown: 24 * time.Hour,
	}
}

// Validate checks that the Policy has valid values.
func (p *Policy) Validate() error {
	if p.MaxRecoveries < 0 {
		return fmt.Errorf("max_recoveries cannot be negative: %d", p.MaxRecoveries)
	}
	if p.PromptCooldown < 0 {
		return fmt.Errorf("prompt_cooldown cannot be negative: %v", p.PromptCooldown)
	}
	return nil
}

// Snapshot is a consistent copy of the monitor's state.
type Snapshot struct {
	State    AgentState
	Entitled bool
	Enabled  bool

	// RetryCount is the number of recovery attempts consumed since the agent
	// last resumed from a state other than recovered.
	RetryCount    int
	MaxRecoveries int

	// Reason is the classifier reason behind the last verdict.
	Reason string

	Ticks      int64
	Clicks     int64
	Blocked    int64
	LastTickAt time.Time
}

// EventType categorizes monitor events.
type EventType string

const (
	EventStateChanged      EventType = "state.changed"
	EventRecoveryStarted   EventType = "recovery.started"
	EventRecoveryExhausted EventType = "recovery.exhausted"
	EventPromptShown       EventType = "prompt.shown"
	EventPromptSuppressed  EventType = "prompt.suppressed"
	EventClicked           EventType = "accept.clicked"
)

// Event describes something the monitor did during a tick.
type Event struct {
	Type      EventType
	Timestamp time.Time
	From      AgentState
	To        AgentState
	Attempt   int
	Details   string
}

// NewEvent creates an Event stamped with now.
func NewEvent(eventType EventType, now time.Time) Event {
	return Event{Type: eventType, Timestamp: now}
}

// WithTransition records the states involved.
func (e Event) WithTransition(from, to AgentState) Event {
	e.From = from
	e.To = to
	return e
}

// WithDetails adds a human-readable description.
func (e Event) WithDetails(details string) Event {
	e.Details = details
	return e
}

// WithAttempt records the recovery attempt number.
func (e Event) WithAttempt(n int) Event {
	e.Attempt = n
	return e
}

// EventCallback receives monitor events synchronously from the tick.
type EventCallback func(Event)
