// Package entitlement resolves and distributes the session's tier flag.
package entitlement

import (
	"sync"
	"time"

	"github.com/zjrosen/autoaccept/internal/log"
)

// Limits are the capabilities implied by the tier flag.
type Limits struct {
	// MaxConnections is 0 for unbounded.
	MaxConnections int
	PollInterval   time.Duration
	Recovery       bool
}

// Gate holds the entitlement flag and notifies subscribers when it changes.
type Gate struct {
	mu           sync.RWMutex
	entitled     bool
	interval     time.Duration
	freeInterval time.Duration
	subs         []func(bool)
}

// NewGate creates a Gate. interval applies when entitled, freeInterval otherwise.
func NewGate(entitled bool, interval, freeInterval time.Duration) *Gate {
	return &Gate{entitled: entitled, interval: interval, freeInterval: freeInterval}
}

// Entitled reports the current flag.
func (g *Gate) Entitled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.entitled
}

// Limits returns the capabilities for the current flag.
func (g *Gate) Limits() Limits {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.entitled {
		return Limits{MaxConnections: 0, PollInterval: g.interval, Recovery: true}
	}
	return Limits{MaxConnections: 1, PollInterval: g.freeInterval, Recovery: false}
}

// Subscribe registers fn and calls it immediately with the current flag.
func (g *Gate) Subscribe(fn func(entitled bool)) {
	g.mu.Lock()
	g.subs = append(g.subs, fn)
	current := g.entitled
	g.mu.Unlock()
	fn(current)
}

// Set updates the flag and re-propagates it to subscribers when it changed.
func (g *Gate) Set(entitled bool) {
	g.mu.Lock()
	if g.entitled == entitled {
		g.mu.Unlock()
		return
	}
	g.entitled = entitled
	subs := append([]func(bool){}, g.subs...)
	g.mu.Unlock()

	log.Info(log.CatLicense, "Entitlement updated", "entitled", entitled)
	for _, fn := range subs {
		fn(entitled)
	}
}

// SetInterval changes the entitled poll interval and re-propagates the current flag.
func (g *Gate) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	g.mu.Lock()
	if g.interval == interval {
		g.mu.Unlock()
		return
	}
	g.interval = interval
	current := g.entitled
	subs := append([]func(bool){}, g.subs...)
	g.mu.Unlock()

	for _, fn := range subs {
		fn(current)
	}
}
