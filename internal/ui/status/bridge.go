package status

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/autoaccept/internal/classifier"
	"github.com/zjrosen/autoaccept/internal/controlplane"
	"github.com/zjrosen/autoaccept/internal/log"
)

// Bridge forwards session callbacks into a program. It implements
// controlplane.Prompter and is usable as an EventCallback before a program is
// attached; messages sent before Attach are dropped. Messages sent after
// Attach but before the program runs are delivered once it does.
type Bridge struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

// Attach routes subsequent messages to p.
func (b *Bridge) Attach(p *tea.Program) {
	b.attach(p.Send)
}

func (b *Bridge) attach(send func(tea.Msg)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send = send
}

func (b *Bridge) forward(msg tea.Msg) {
	b.mu.RLock()
	send := b.send
	b.mu.RUnlock()
	if send == nil {
		return
	}
	// Program.Send blocks until the event loop reads it; ticks must not.
	log.SafeGo("status.forward", func() { send(msg) })
}

// OnEvent forwards a monitor event.
func (b *Bridge) OnEvent(e controlplane.Event) {
	b.forward(EventMsg{Event: e})
}

// ShowUpgrade forwards the upgrade notice.
func (b *Bridge) ShowUpgrade(_ context.Context, verdict classifier.StuckState) {
	b.forward(UpgradeMsg{Verdict: verdict})
}
