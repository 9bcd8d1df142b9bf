package controlplane

import (
	"context"

	"github.com/zjrosen/autoaccept/internal/cdp"
	"github.com/zjrosen/autoaccept/internal/log"
)

// RecoveryExecutor performs one recovery attempt for a stalled session.
type RecoveryExecutor interface {
	// ExecuteRecovery runs attempt number attempt (1-based).
	ExecuteRecovery(ctx context.Context, attempt int) (cdp.AcceptResult, error)
}

// acceptRecovery retries the accept pass with the relaxed visibility check.
// Every attempt performs the same action; attempt is only logged.
type acceptRecovery struct {
	client PageClient
}

// NewAcceptRecovery returns the stock RecoveryExecutor.
func NewAcceptRecovery(client PageClient) RecoveryExecutor {
	return &acceptRecovery{client: client}
}

func (r *acceptRecovery) ExecuteRecovery(ctx context.Context, attempt int) (cdp.AcceptResult, error) {
	log.Info(log.CatPoll, "Recovery attempt", "attempt", attempt)
	res := r.client.ExecuteAccept(ctx, true)
	if res.Clicked > 0 {
		log.Info(log.CatPoll, "Recovery clicked", "attempt", attempt, "labels", res.Labels)
	}
	return res, nil
}
