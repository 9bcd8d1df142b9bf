package controlplane

import (
	"context"
	"sync"
	"time"

	"github.com/zjrosen/autoaccept/internal/classifier"
	"github.com/zjrosen/autoaccept/internal/log"
)

// Prompter surfaces the upgrade notice to the user. It must not block.
type Prompter interface {
	ShowUpgrade(ctx context.Context, verdict classifier.StuckState)
}

// DismissalStore remembers when the upgrade notice was last dismissed.
type DismissalStore interface {
	LastDismissedAt(ctx context.Context) (time.Time, error)
}

// PromptOutcome is the result of PromptGate.Offer.
type PromptOutcome int

const (
	// PromptLatched means the notice was already offered this session.
	PromptLatched PromptOutcome = iota
	// PromptSuppressed means the cooldown since the last dismissal has not elapsed.
	PromptSuppressed
	// PromptShown means the Prompter was called.
	PromptShown
)

// PromptGate decides whether a stall shows the upgrade notice. The notice is
// offered at most once per session, and only when Cooldown has passed since
// the last dismissal. A suppressed offer still consumes the session's turn.
type PromptGate struct {
	prompter Prompter
	store    DismissalStore
	cooldown time.Duration
	clock    Clock

	mu    sync.Mutex
	shown bool
}

// NewPromptGate creates a PromptGate. store may be nil (never dismissed).
func NewPromptGate(prompter Prompter, store DismissalStore, cooldown time.Duration, clock Clock) *PromptGate {
	if clock == nil {
		clock = realClock{}
	}
	return &PromptGate{prompter: prompter, store: store, cooldown: cooldown, clock: clock}
}

// Offer applies the latch and the cooldown and calls the Prompter if both allow.
func (g *PromptGate) Offer(ctx context.Context, verdict classifier.StuckState) PromptOutcome {
	g.mu.Lock()
	if g.shown {
		g.mu.Unlock()
		return PromptLatched
	}
	g.shown = true
	g.mu.Unlock()

	if g.store != nil {
		last, err := g.store.LastDismissedAt(ctx)
		if err != nil {
			log.Debug(log.CatPoll, "Reading prompt dismissal failed", "error", err)
		} else if !last.IsZero() && g.clock.Now().Sub(last) < g.cooldown {
			log.Debug(log.CatPoll, "Upgrade prompt in cooldown", "dismissed", last)
			return PromptSuppressed
		}
	}

	if g.prompter != nil {
		g.prompter.ShowUpgrade(ctx, verdict)
	}
	return PromptShown
}

// Reset clears the session latch. Called when the session is reactivated.
func (g *PromptGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shown = false
}
