package controlplane

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/autoaccept/internal/cdp"
	"github.com/zjrosen/autoaccept/internal/classifier"
	"github.com/zjrosen/autoaccept/internal/log"
	"github.com/zjrosen/autoaccept/internal/tracing"
)

// PageClient is the part of the remote debugging client the monitor drives.
type PageClient interface {
	QueryStuckState(ctx context.Context, enabled bool) classifier.StuckState
	ExecuteAccept(ctx context.Context, background bool) cdp.AcceptResult
}

// Clock interface for time operations (allows testing).
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// MonitorConfig configures the Monitor.
type MonitorConfig struct {
	Policy Policy

	// Client answers verdicts and performs accept passes. Required.
	Client PageClient

	// Recovery runs recovery attempts. Defaults to a forced background
	// accept pass on Client.
	Recovery RecoveryExecutor

	// Prompts gates the upgrade prompt for non-entitled sessions.
	// If nil, stalls are only logged.
	Prompts *PromptGate

	// Interval is the tick period. Defaults to 1 second.
	Interval time.Duration

	Entitled bool

	// Enabled reports the auto-accept toggle. Ticks are skipped while it
	// returns false. Nil means always enabled.
	Enabled func() bool

	// OnEvent receives monitor events.
	OnEvent EventCallback

	Clock Clock
}

// Monitor polls page verdicts and drives the agent state machine.
type Monitor struct {
	client   PageClient
	recovery RecoveryExecutor
	prompts  *PromptGate
	enabled  func() bool
	onEvent  EventCallback
	clock    Clock

	// tickMu serializes ticks so transitions never interleave.
	tickMu sync.Mutex

	mu         sync.RWMutex
	policy     Policy
	interval   time.Duration
	entitled   bool
	state      AgentState
	retries    int
	reason     string
	ticks      int64
	clicks     int64
	blocked    int64
	lastTick   time.Time
	wasEnabled bool

	reset  chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a Monitor in the running state.
func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	enabled := cfg.Enabled
	if enabled == nil {
		enabled = func() bool { return true }
	}
	recovery := cfg.Recovery
	if recovery == nil {
		recovery = NewAcceptRecovery(cfg.Client)
	}
	return &Monitor{
		client:     cfg.Client,
		recovery:   recovery,
		prompts:    cfg.Prompts,
		enabled:    enabled,
		onEvent:    cfg.OnEvent,
		clock:      clock,
		policy:     cfg.Policy,
		interval:   interval,
		entitled:   cfg.Entitled,
		state:      StateRunning,
		wasEnabled: true,
		reset:      make(chan struct{}, 1),
	}, nil
}

// Start runs the tick loop until ctx ends or Stop is called.
// Calling Start on a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.done != nil {
		m.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	done := make(chan struct{})
	m.done = done
	m.mu.Unlock()

	log.SafeGo("controlplane.tickLoop", func() {
		defer close(done)
		m.loop(loopCtx)
	})
}

// Stop ends the tick loop and waits for the current tick to finish.
// Safe to call multiple times or before Start.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Monitor) loop(ctx context.Context) {
	timer := time.NewTimer(m.Interval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.reset:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timer.C:
			m.safeTick(ctx)
		}
		timer.Reset(m.Interval())
	}
}

// safeTick keeps a panicking tick from ending the loop.
func (m *Monitor) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(log.CatPoll, "Tick panicked", "panic", fmt.Sprint(r))
		}
	}()
	m.Tick(ctx)
}

// Interval returns the current tick period.
func (m *Monitor) Interval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.interval
}

// SetInterval changes the tick period. A running loop picks it up immediately.
func (m *Monitor) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	changed := m.interval != d
	m.interval = d
	m.mu.Unlock()
	if changed {
		select {
		case m.reset <- struct{}{}:
		default:
		}
	}
}

// SetEntitled updates recovery eligibility for subsequent ticks.
func (m *Monitor) SetEntitled(entitled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entitled = entitled
}

// SetPolicy replaces the stall handling policy.
func (m *Monitor) SetPolicy(p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy = p
	return nil
}

// Snapshot returns a copy of the current state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		State:         m.state,
		Entitled:      m.entitled,
		Enabled:       m.wasEnabled,
		RetryCount:    m.retries,
		MaxRecoveries: m.policy.MaxRecoveries,
		Reason:        m.reason,
		Ticks:         m.ticks,
		Clicks:        m.clicks,
		Blocked:       m.blocked,
		LastTickAt:    m.lastTick,
	}
}

// Tick evaluates one verdict and applies the resulting transition.
// Nothing raised by the page layer escapes a tick.
func (m *Monitor) Tick(ctx context.Context) {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	enabled := m.enabled()
	m.mu.Lock()
	m.wasEnabled = enabled
	m.mu.Unlock()
	if !enabled {
		return
	}

	ctx, span := tracing.Tracer("controlplane").Start(ctx, "poll.tick")
	defer span.End()

	verdict := m.client.QueryStuckState(ctx, true)

	m.mu.Lock()
	m.ticks++
	m.lastTick = m.clock.Now()
	m.reason = verdict.Reason
	m.mu.Unlock()

	span.SetAttributes(
		attribute.String("verdict", string(verdict.State)),
		attribute.String("reason", verdict.Reason),
	)

	if verdict.IsStalled() {
		m.onStalled(ctx, verdict)
	} else {
		m.onRunning(ctx)
	}
	span.SetAttributes(attribute.String("state", string(m.Snapshot().State)))
}

func (m *Monitor) onRunning(ctx context.Context) {
	m.mu.RLock()
	prev := m.state
	background := m.policy.Background
	m.mu.RUnlock()

	res := m.client.ExecuteAccept(ctx, background)
	m.recordClicks(res)

	// Recovered keeps its count. The budget is only restored when resuming
	// from stalled or an unsuccessful recovery.
	m.mu.Lock()
	next := prev
	switch {
	case prev == StateRecovering && res.Clicked > 0:
		next = StateRecovered
	case prev != StateRunning && prev != StateRecovered:
		next = StateRunning
		m.retries = 0
	}
	m.state = next
	m.mu.Unlock()

	m.transitioned(prev, next, "")
}

func (m *Monitor) onStalled(ctx context.Context, verdict classifier.StuckState) {
	m.mu.Lock()
	prev := m.state
	entitled := m.entitled
	maxRecoveries := m.policy.MaxRecoveries
	if prev == StateRunning || prev == StateRecovered || (!entitled && prev == StateRecovering) {
		m.state = StateStalled
	}
	next := m.state
	m.mu.Unlock()

	m.transitioned(prev, next, verdict.Reason)

	if !entitled {
		m.offerPrompt(ctx, verdict)
		return
	}

	m.mu.Lock()
	from := m.state
	if m.retries >= maxRecoveries {
		m.state = StateStalled
		m.mu.Unlock()
		if from != StateStalled {
			m.transitioned(from, StateStalled, "recovery budget exhausted")
			m.emit(NewEvent(EventRecoveryExhausted, m.clock.Now()).
				WithDetails(fmt.Sprintf("no recovery after %d attempts", maxRecoveries)))
		}
		log.Debug(log.CatPoll, "Recovery budget exhausted", "attempts", maxRecoveries)
		return
	}
	m.retries++
	attempt := m.retries
	m.state = StateRecovering
	m.mu.Unlock()

	m.transitioned(from, StateRecovering, verdict.Reason)
	m.emit(NewEvent(EventRecoveryStarted, m.clock.Now()).
		WithAttempt(attempt).
		WithDetails(fmt.Sprintf("stalled: %s", verdict.Reason)))

	ctx, span := tracing.Tracer("controlplane").Start(ctx, "recovery.attempt",
		trace.WithAttributes(attribute.Int("attempt", attempt)))
	res, err := m.recovery.ExecuteRecovery(ctx, attempt)
	tracing.End(span, err)
	if err != nil {
		log.ErrorErr(log.CatPoll, "Recovery attempt failed", err, "attempt", attempt)
		return
	}
	m.recordClicks(res)
}

func (m *Monitor) offerPrompt(ctx context.Context, verdict classifier.StuckState) {
	if m.prompts == nil {
		return
	}
	switch m.prompts.Offer(ctx, verdict) {
	case PromptShown:
		m.emit(NewEvent(EventPromptShown, m.clock.Now()).WithDetails(verdict.Reason))
	case PromptSuppressed:
		m.emit(NewEvent(EventPromptSuppressed, m.clock.Now()).WithDetails("cooldown"))
	}
}

func (m *Monitor) recordClicks(res cdp.AcceptResult) {
	if res.Clicked == 0 && res.Blocked == 0 {
		return
	}
	m.mu.Lock()
	m.clicks += int64(res.Clicked)
	m.blocked += int64(res.Blocked)
	m.mu.Unlock()
	if res.Clicked > 0 {
		m.emit(NewEvent(EventClicked, m.clock.Now()).
			WithDetails(fmt.Sprintf("%d clicked %v", res.Clicked, res.Labels)))
	}
}

func (m *Monitor) transitioned(from, to AgentState, reason string) {
	if from == to {
		return
	}
	log.Info(log.CatPoll, "State changed", "from", from, "to", to, "reason", reason)
	m.emit(NewEvent(EventStateChanged, m.clock.Now()).WithTransition(from, to).WithDetails(reason))
}

func (m *Monitor) emit(e Event) {
	if m.onEvent != nil {
		m.onEvent(e)
	}
}
