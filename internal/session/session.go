// Package session assembles one running autoaccept instance: the debugging
// client, the polling monitor, the native command loop and persisted state.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zjrosen/autoaccept/internal/cdp"
	"github.com/zjrosen/autoaccept/internal/classifier"
	"github.com/zjrosen/autoaccept/internal/config"
	"github.com/zjrosen/autoaccept/internal/controlplane"
	"github.com/zjrosen/autoaccept/internal/editor"
	"github.com/zjrosen/autoaccept/internal/entitlement"
	"github.com/zjrosen/autoaccept/internal/infrastructure/sqlite"
	"github.com/zjrosen/autoaccept/internal/log"
)

// storeTimeout bounds reads of persisted state made from inside a tick.
const storeTimeout = 500 * time.Millisecond

// Options configures a Session.
type Options struct {
	Config  config.Config
	Profile editor.Profile

	// Store persists toggle, stats, dismissal and the instance lock.
	// Nil runs without persistence.
	Store *sqlite.DB

	// Verifier resolves entitlement at Start and again after the upgrade
	// notice is shown. Nil keeps the configured flag.
	Verifier *entitlement.Verifier

	// Prompter shows the upgrade notice. Nil only logs stalls.
	Prompter controlplane.Prompter

	// Runner invokes native editor commands. Required for profiles with
	// native commands, ignored otherwise.
	Runner editor.CommandRunner

	// OnEvent receives monitor events after the session has handled them.
	OnEvent controlplane.EventCallback

	Clock controlplane.Clock
}

// Session is one running instance.
type Session struct {
	cfg     config.Config
	profile editor.Profile
	store   *sqlite.DB
	clock   controlplane.Clock
	onEvent controlplane.EventCallback

	gate     *entitlement.Gate
	verifier *entitlement.Verifier
	client   *cdp.Client
	monitor  *controlplane.Monitor
	prompts  *controlplane.PromptGate
	native   *editor.NativeLoop
	guard    *instanceGuard
	banned   []string

	enabled atomic.Bool

	// upgradeWatch is set while a post-prompt re-verification is running.
	upgradeWatch atomic.Bool
	upgradeWG    sync.WaitGroup

	statsMu      sync.Mutex
	savedClicks  int64
	savedBlocked int64

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	runCtx  context.Context
}

// New wires a Session from opts. Nothing runs until Start.
func New(ctx context.Context, opts Options) (*Session, error) {
	cfg := opts.Config
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	if opts.Profile.Name == "" {
		p, err := editor.Lookup(cfg.Editor)
		if err != nil {
			return nil, err
		}
		opts.Profile = p
	}
	if opts.Profile.HasNative() && opts.Runner == nil {
		return nil, fmt.Errorf("editor %s: %w", opts.Profile.Name, editor.ErrNoRunner)
	}

	s := &Session{
		cfg:      cfg,
		profile:  opts.Profile,
		store:    opts.Store,
		clock:    clock,
		onEvent:  opts.OnEvent,
		verifier: opts.Verifier,
		gate:     entitlement.NewGate(cfg.Entitlement.Entitled, cfg.Poll.Interval, cfg.Poll.FreeInterval),
	}

	enabled := cfg.Enabled
	if s.store != nil {
		var err error
		enabled, err = s.store.Settings().Enabled(ctx, cfg.Enabled)
		if err != nil {
			return nil, err
		}
	}
	s.enabled.Store(enabled)

	banned, err := ResolveBanned(ctx, s.store, cfg.BannedCommands)
	if err != nil {
		return nil, err
	}
	s.banned = banned

	if s.profile.CDP {
		if err := s.wireCDP(opts.Prompter); err != nil {
			return nil, err
		}
	}
	if s.profile.HasNative() {
		if s.profile.InstanceLock && s.store != nil {
			s.guard = newInstanceGuard(s.store.Lock(), clock)
		}
		s.native = editor.NewNativeLoop(opts.Runner, s.profile.NativeCommands, cfg.Poll.NativeInterval, s.allowNative)
	}

	s.gate.Subscribe(s.applyEntitlement)
	return s, nil
}

func (s *Session) wireCDP(prompter controlplane.Prompter) error {
	script, err := classifier.Script(ClassifierOptions(s.cfg, s.banned))
	if err != nil {
		return err
	}
	limits := s.gate.Limits()
	s.client = cdp.NewClient(cdp.Options{
		Host:                s.cfg.CDP.Host,
		Ports:               s.cfg.CDP.Ports(),
		DiscoveryTimeout:    s.cfg.CDP.DiscoveryTimeout,
		ConnectTimeout:      s.cfg.CDP.ConnectTimeout,
		CommandTimeout:      s.cfg.CDP.CommandTimeout,
		RediscoveryInterval: s.cfg.CDP.RediscoveryInterval,
		Script:              script,
		Entitled:            s.gate.Entitled(),
	})

	var dismissals controlplane.DismissalStore
	if s.store != nil {
		dismissals = s.store.Settings()
	}
	s.prompts = controlplane.NewPromptGate(prompter, dismissals, s.cfg.Prompt.Cooldown, s.clock)

	s.monitor, err = controlplane.NewMonitor(controlplane.MonitorConfig{
		Policy:   s.policy(),
		Client:   s.client,
		Prompts:  s.prompts,
		Interval: limits.PollInterval,
		Entitled: s.gate.Entitled(),
		Enabled:  s.Enabled,
		OnEvent:  s.handleEvent,
		Clock:    s.clock,
	})
	return err
}

func (s *Session) policy() controlplane.Policy {
	p := controlplane.DefaultPolicy()
	p.MaxRecoveries = s.cfg.Recovery.MaxAttempts
	if s.cfg.Prompt.Cooldown > 0 {
		p.PromptCooldown = s.cfg.Prompt.Cooldown
	}
	p.Background = s.cfg.CDP.BackgroundMode
	return p
}

// ClassifierOptions maps configuration onto the in-page script options.
func ClassifierOptions(cfg config.Config, banned []string) classifier.Options {
	b := cfg.Classifier.Buttons
	return classifier.Options{
		Buttons: classifier.Buttons{
			AcceptAll:  b.AcceptAll,
			Accept:     b.Accept,
			RunCommand: b.RunCommand,
			Run:        b.Run,
			Apply:      b.Apply,
			Execute:    b.Execute,
			Resume:     b.Resume,
			TryAgain:   b.TryAgain,
		},
		StuckThreshold:      cfg.Classifier.StuckThreshold,
		InactivityThreshold: cfg.Classifier.InactivityThreshold,
		ButtonDecay:         cfg.Classifier.ButtonDecay,
		BannedCommands:      banned,
	}
}

// applyEntitlement pushes the flag and its limits into every component.
func (s *Session) applyEntitlement(entitled bool) {
	limits := s.gate.Limits()
	if s.client != nil {
		s.client.SetEntitled(entitled)
	}
	if s.monitor != nil {
		s.monitor.SetEntitled(entitled)
		s.monitor.SetInterval(limits.PollInterval)
	}
	log.Debug(log.CatLicense, "Limits applied", "entitled", entitled,
		"maxConnections", limits.MaxConnections, "interval", limits.PollInterval)
}

// Start resolves entitlement and begins polling. It reports whether any
// debuggable page was reachable; native-only profiles always report true.
func (s *Session) Start(ctx context.Context) bool {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return true
	}
	s.started = true
	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.resolveEntitlement(ctx)
	if s.store != nil {
		if err := s.store.Stats().SessionStarted(ctx, s.clock.Now()); err != nil {
			log.ErrorErr(log.CatDB, "Failed to record session", err)
		}
	}

	reachable := true
	if s.client != nil {
		reachable = s.client.Start(ctx)
		if !reachable {
			log.Warn(log.CatCDP, "No debuggable pages found", "host", s.cfg.CDP.Host,
				"ports", fmt.Sprintf("%d-%d", s.cfg.CDP.PortStart, s.cfg.CDP.PortEnd))
		}
		s.monitor.Start(ctx)
	}
	if s.native != nil {
		s.native.Start(ctx)
	}
	log.Info(log.CatPoll, "Session started", "editor", s.profile.Name,
		"entitled", s.gate.Entitled(), "enabled", s.enabled.Load())
	return reachable
}

func (s *Session) resolveEntitlement(ctx context.Context) {
	s.mu.Lock()
	forced := s.cfg.Entitlement.Entitled
	s.mu.Unlock()
	if forced || s.verifier == nil || s.store == nil {
		return
	}
	userID, err := s.store.Settings().UserID(ctx)
	if err != nil {
		log.ErrorErr(log.CatLicense, "Failed to load user id", err)
		return
	}
	s.gate.Set(s.verifier.Verify(ctx, userID))
}

// watchForUpgrade re-verifies in the background after the upgrade notice so
// a purchase made while running lifts the limits without a restart.
func (s *Session) watchForUpgrade() {
	s.mu.Lock()
	ctx := s.runCtx
	interval := s.cfg.Entitlement.UpgradePollInterval
	attempts := s.cfg.Entitlement.UpgradePollAttempts
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil || s.verifier == nil || s.store == nil {
		return
	}
	if interval <= 0 || attempts <= 0 || s.gate.Entitled() {
		return
	}
	if !s.upgradeWatch.CompareAndSwap(false, true) {
		return
	}

	s.upgradeWG.Add(1)
	log.SafeGo("session.watchForUpgrade", func() {
		defer s.upgradeWG.Done()
		defer s.upgradeWatch.Store(false)

		userID, err := s.store.Settings().UserID(ctx)
		if err != nil {
			log.ErrorErr(log.CatLicense, "Failed to load user id", err)
			return
		}
		log.Debug(log.CatLicense, "Watching for upgrade", "interval", interval, "attempts", attempts)
		if s.verifier.WaitForUpgrade(ctx, userID, interval, attempts) {
			log.Info(log.CatLicense, "Upgrade detected")
			s.SetEntitled(true)
		}
	})
}

// Stop halts every loop, persists stats and releases the instance lock.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.upgradeWG.Wait()
	if s.monitor != nil {
		s.monitor.Stop()
	}
	if s.native != nil {
		s.native.Stop()
	}
	if s.client != nil {
		s.client.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.flushStats(ctx)
	if s.guard != nil {
		s.guard.release(ctx)
	}
	log.Info(log.CatPoll, "Session stopped")
}

// Enabled reports the toggle, re-reading the persisted flag so a toggle made
// from another process takes effect on the next tick.
func (s *Session) Enabled() bool {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		on, err := s.store.Settings().Enabled(ctx, s.enabled.Load())
		if err != nil {
			log.Debug(log.CatDB, "Reading toggle failed", "error", err)
		} else {
			s.observeEnabled(on)
		}
	}
	return s.enabled.Load()
}

func (s *Session) observeEnabled(on bool) {
	was := s.enabled.Swap(on)
	if was == on {
		return
	}
	log.Info(log.CatPoll, "Auto-accept toggled", "enabled", on)
	if on && s.prompts != nil {
		s.prompts.Reset()
	}
}

// SetEnabled sets and persists the toggle.
func (s *Session) SetEnabled(ctx context.Context, on bool) error {
	if s.store != nil {
		if err := s.store.Settings().SetEnabled(ctx, on); err != nil {
			return err
		}
	}
	s.observeEnabled(on)
	return nil
}

// Toggle flips the toggle and returns the new value.
func (s *Session) Toggle(ctx context.Context) (bool, error) {
	on := !s.Enabled()
	return on, s.SetEnabled(ctx, on)
}

// SetEntitled overrides the entitlement flag.
func (s *Session) SetEntitled(entitled bool) { s.gate.Set(entitled) }

// Gate exposes the entitlement gate.
func (s *Session) Gate() *entitlement.Gate { return s.gate }

// Banned returns the active banned command patterns.
func (s *Session) Banned() []string { return append([]string{}, s.banned...) }

// ApplyConfig propagates the settings that may change while running.
func (s *Session) ApplyConfig(cfg config.Config) {
	s.mu.Lock()
	s.cfg.Poll.Interval = cfg.Poll.Interval
	s.cfg.Recovery = cfg.Recovery
	s.cfg.Prompt = cfg.Prompt
	s.cfg.CDP.BackgroundMode = cfg.CDP.BackgroundMode
	wasForced := s.cfg.Entitlement.Entitled
	s.cfg.Entitlement.Entitled = cfg.Entitlement.Entitled
	s.cfg.Entitlement.UpgradePollInterval = cfg.Entitlement.UpgradePollInterval
	s.cfg.Entitlement.UpgradePollAttempts = cfg.Entitlement.UpgradePollAttempts
	policy := s.policy()
	s.mu.Unlock()

	switch {
	case cfg.Entitlement.Entitled:
		s.gate.Set(true)
	case s.verifier == nil:
		s.gate.Set(false)
	case wasForced:
		// Override lifted: fall back to what the license endpoint says.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		s.resolveEntitlement(ctx)
		cancel()
	}
	s.gate.SetInterval(cfg.Poll.Interval)
	if s.monitor != nil {
		if err := s.monitor.SetPolicy(policy); err != nil {
			log.ErrorErr(log.CatConfig, "Rejected recovery policy", err)
		}
	}
	log.Info(log.CatConfig, "Configuration applied", "interval", cfg.Poll.Interval,
		"maxRecoveries", cfg.Recovery.MaxAttempts, "background", cfg.CDP.BackgroundMode)
}

// DismissPrompt records that the user dismissed the upgrade notice.
func (s *Session) DismissPrompt(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Settings().SetLastDismissedAt(ctx, s.clock.Now())
}

// Status returns what the status line should show.
func (s *Session) Status() controlplane.Indicator {
	s.mu.Lock()
	background := s.cfg.CDP.BackgroundMode
	s.mu.Unlock()
	ind := controlplane.Indicator{
		CDP:        s.profile.CDP,
		Background: background,
	}
	if s.monitor != nil {
		ind.Snapshot = s.monitor.Snapshot()
		ind.Snapshot.Enabled = s.enabled.Load()
	} else {
		ind.Snapshot = controlplane.Snapshot{
			State:    controlplane.StateRunning,
			Entitled: s.gate.Entitled(),
			Enabled:  s.enabled.Load(),
		}
	}
	if s.client != nil {
		ind.Connections = s.client.ConnectionCount()
	}
	if s.guard != nil {
		ind.Paused = s.guard.paused()
	}
	return ind
}

// Pages lists the connected pages.
func (s *Session) Pages() []cdp.PageInfo {
	if s.client == nil {
		return nil
	}
	return s.client.Pages()
}

// NativeExecuted returns how many native commands succeeded.
func (s *Session) NativeExecuted() int64 {
	if s.native == nil {
		return 0
	}
	return s.native.Executed()
}

// allowNative gates each native tick on the toggle and the instance lock.
func (s *Session) allowNative(ctx context.Context) bool {
	if !s.Enabled() {
		return false
	}
	if s.guard == nil || s.gate.Entitled() {
		return true
	}
	return s.guard.hold(ctx)
}

func (s *Session) handleEvent(e controlplane.Event) {
	switch e.Type {
	case controlplane.EventClicked:
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		s.flushStats(ctx)
		cancel()
	case controlplane.EventPromptShown:
		s.watchForUpgrade()
	}
	if s.onEvent != nil {
		s.onEvent(e)
	}
}

// flushStats persists monitor counters not yet written.
func (s *Session) flushStats(ctx context.Context) {
	if s.store == nil || s.monitor == nil {
		return
	}
	snap := s.monitor.Snapshot()

	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	clicks := snap.Clicks - s.savedClicks
	blocked := snap.Blocked - s.savedBlocked
	if err := s.store.Stats().Add(ctx, clicks, blocked); err != nil {
		log.ErrorErr(log.CatDB, "Failed to save stats", err)
		return
	}
	s.savedClicks, s.savedBlocked = snap.Clicks, snap.Blocked
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
