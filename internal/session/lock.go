package session

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/autoaccept/internal/controlplane"
	"github.com/zjrosen/autoaccept/internal/infrastructure/sqlite"
	"github.com/zjrosen/autoaccept/internal/log"
)

// LockStaleAfter is how long a holder may miss heartbeats before another
// instance takes over.
const LockStaleAfter = 10 * time.Second

// instanceGuard keeps this process's lease on the single-instance lock.
type instanceGuard struct {
	repo  *sqlite.LockRepository
	clock controlplane.Clock
	id    string
	pid   int

	locked atomic.Bool
	held   atomic.Bool
}

func newInstanceGuard(repo *sqlite.LockRepository, clock controlplane.Clock) *instanceGuard {
	return &instanceGuard{repo: repo, clock: clock, id: uuid.NewString(), pid: os.Getpid()}
}

// hold takes or refreshes the lease and reports whether this instance owns it.
func (g *instanceGuard) hold(ctx context.Context) bool {
	ok, holder, err := g.repo.Acquire(ctx, g.id, g.pid, g.clock.Now(), LockStaleAfter)
	if err != nil {
		log.Debug(log.CatDB, "Instance lock failed", "error", err)
		return !g.locked.Load() && g.held.Load()
	}
	if g.locked.Swap(!ok) != !ok {
		if ok {
			log.Info(log.CatEditor, "Instance lock acquired")
		} else {
			log.Info(log.CatEditor, "Another instance is active, pausing", "pid", holder.PID)
		}
	}
	g.held.Store(ok)
	return ok
}

func (g *instanceGuard) paused() bool { return g.locked.Load() }

func (g *instanceGuard) release(ctx context.Context) {
	if !g.held.Load() {
		return
	}
	if err := g.repo.Release(ctx, g.id); err != nil {
		log.ErrorErr(log.CatDB, "Failed to release instance lock", err)
	}
	g.held.Store(false)
}
