// Package classifier holds the in-page script that finds accept-like buttons,
// clicks them, and reports whether the agent UI looks stuck.
//
// The script runs inside the editor page. Go code never inspects its state
// directly; it renders the script once per connection and then evaluates the
// small expressions below, decoding their by-value results.
package classifier

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

//go:embed classifier.js
var source string

const configPlaceholder = "__AUTOACCEPT_CONFIG__"

// Global names the script installs on window.
const (
	APIGlobal      = "window.__autoAcceptCDP"
	StopGlobal     = "window.__autoAcceptStop"
	StateGlobal    = "window.__autoAcceptState"
	ObserverGlobal = "window.__autoAcceptObserverSet"
)

// Buttons toggles individual inclusion phrases.
type Buttons struct {
	AcceptAll  bool
	Accept     bool
	RunCommand bool
	Run        bool
	Apply      bool
	Execute    bool
	Resume     bool
	TryAgain   bool
}

// AllButtons enables every phrase.
func AllButtons() Buttons {
	return Buttons{true, true, true, true, true, true, true, true}
}

// Options configures the rendered script.
type Options struct {
	Buttons             Buttons
	StuckThreshold      time.Duration
	InactivityThreshold time.Duration
	ButtonDecay         time.Duration
	BannedCommands      []string
}

// DefaultOptions returns the thresholds the script is tuned for.
func DefaultOptions() Options {
	return Options{
		Buttons:             AllButtons(),
		StuckThreshold:      3 * time.Second,
		InactivityThreshold: 10 * time.Second,
		ButtonDecay:         30 * time.Second,
	}
}

type scriptConfig struct {
	EnableAcceptAll       bool     `json:"enableAcceptAll"`
	EnableAccept          bool     `json:"enableAccept"`
	EnableRunCommand      bool     `json:"enableRunCommand"`
	EnableRun             bool     `json:"enableRun"`
	EnableApply           bool     `json:"enableApply"`
	EnableExecute         bool     `json:"enableExecute"`
	EnableResume          bool     `json:"enableResume"`
	EnableTryAgain        bool     `json:"enableTryAgain"`
	StuckThresholdMs      int64    `json:"stuckThresholdMs"`
	InactivityThresholdMs int64    `json:"inactivityThresholdMs"`
	ButtonDecayMs         int64    `json:"buttonDecayMs"`
	BannedCommands        []string `json:"bannedCommands"`
}

// Script renders the classifier with opts baked in.
func Script(opts Options) (string, error) {
	banned := opts.BannedCommands
	if banned == nil {
		banned = []string{}
	}
	cfg := scriptConfig{
		EnableAcceptAll:       opts.Buttons.AcceptAll,
		EnableAccept:          opts.Buttons.Accept,
		EnableRunCommand:      opts.Buttons.RunCommand,
		EnableRun:             opts.Buttons.Run,
		EnableApply:           opts.Buttons.Apply,
		EnableExecute:         opts.Buttons.Execute,
		EnableResume:          opts.Buttons.Resume,
		EnableTryAgain:        opts.Buttons.TryAgain,
		StuckThresholdMs:      opts.StuckThreshold.Milliseconds(),
		InactivityThresholdMs: opts.InactivityThreshold.Milliseconds(),
		ButtonDecayMs:         opts.ButtonDecay.Milliseconds(),
		BannedCommands:        banned,
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encoding classifier config: %w", err)
	}
	return strings.Replace(source, configPlaceholder, string(raw), 1), nil
}

func call(method, arg, fallback string) string {
	return fmt.Sprintf("%s ? %s.%s(%s) : %s", APIGlobal, APIGlobal, method, arg, fallback)
}

// ForceClickExpr clicks the first actionable element.
func ForceClickExpr(background bool) string {
	return call("forceClick", strconv.FormatBool(background), "{ clicked: false }")
}

// StuckStateExpr classifies the page.
func StuckStateExpr(enabled bool) string {
	return call("getStuckState", strconv.FormatBool(enabled), "{ state: 'unknown' }")
}

// FindButtonsExpr lists actionable element labels.
func FindButtonsExpr(background bool) string {
	return call("findButtons", strconv.FormatBool(background), "[]")
}

// DiagnosticsExpr snapshots the page-side state.
func DiagnosticsExpr() string {
	return call("getDiagnostics", "", "{ error: 'not loaded' }")
}

// StatsExpr reads click counters.
func StatsExpr() string {
	return call("getStats", "", "{ clicks: 0, blocked: 0 }")
}

// StopExpr detaches the mutation observer if the script is loaded.
func StopExpr() string {
	return fmt.Sprintf("%s ? %s() : false", StopGlobal, StopGlobal)
}

// Verdict is the page-level classification.
type Verdict string

const (
	Running Verdict = "running"
	Stalled Verdict = "stalled"
	Unknown Verdict = "unknown"
)

// Reasons reported with a verdict.
const (
	ReasonDisabled        = "auto_accept_disabled"
	ReasonNoPendingAction = "no_pending_action"
	ReasonButtonTimeout   = "button_timeout"
	ReasonInactivity      = "inactivity_with_button"
	ReasonNominal         = "nominal"
)

// StuckState is the result of getStuckState.
type StuckState struct {
	State    Verdict `json:"state"`
	Reason   string  `json:"reason,omitempty"`
	Duration int64   `json:"duration,omitempty"` // milliseconds
}

// IsStalled reports whether the verdict is stalled.
func (s StuckState) IsStalled() bool { return s.State == Stalled }

// PendingFor returns how long the oldest button has been pending.
func (s StuckState) PendingFor() time.Duration {
	return time.Duration(s.Duration) * time.Millisecond
}

// ClickResult is the result of forceClick.
type ClickResult struct {
	Clicked bool   `json:"clicked"`
	Text    string `json:"text,omitempty"`
	Total   int    `json:"total,omitempty"`
	Found   int    `json:"found,omitempty"`
	Blocked bool   `json:"blocked,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// Stats are the page-side counters.
type Stats struct {
	Clicks  int `json:"clicks"`
	Blocked int `json:"blocked"`
}

// Diagnostics is the getDiagnostics snapshot.
type Diagnostics struct {
	ClickCount         int    `json:"clickCount"`
	BlockedCount       int    `json:"blockedCount"`
	LastActionTime     int64  `json:"lastActionTime"`
	LastUIChange       int64  `json:"lastUiChange"`
	SessionHasAccepted bool   `json:"sessionHasAccepted"`
	InputBoxVisible    bool   `json:"inputBoxVisible"`
	PendingCount       int    `json:"pendingCount"`
	Observer           bool   `json:"observer"`
	Error              string `json:"error,omitempty"`
}
