package controlplane

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/autoaccept/internal/mocks"
)

func TestPromptGate_ShownOncePerSession(t *testing.T) {
	prompter := mocks.NewMockPrompter(t)
	prompter.EXPECT().ShowUpgrade(mock.Anything, stalled).Return().Once()
	store := mocks.NewMockDismissalStore(t)
	store.EXPECT().LastDismissedAt(mock.Anything).Return(time.Time{}, nil).Once()

	g := NewPromptGate(prompter, store, 24*time.Hour, newMockClock(time.Now()))
	require.Equal(t, PromptShown, g.Offer(context.Background(), stalled))
	require.Equal(t, PromptLatched, g.Offer(context.Background(), stalled))
}

func TestPromptGate_Cooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		dismissed time.Time
		want      PromptOutcome
	}{
		{"never dismissed", time.Time{}, PromptShown},
		{"dismissed an hour ago", now.Add(-time.Hour), PromptSuppressed},
		{"dismissed just under a day ago", now.Add(-24*time.Hour + time.Minute), PromptSuppressed},
		{"dismissed over a day ago", now.Add(-25 * time.Hour), PromptShown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompter := mocks.NewMockPrompter(t)
			if tt.want == PromptShown {
				prompter.EXPECT().ShowUpgrade(mock.Anything, stalled).Return().Once()
			}
			store := mocks.NewMockDismissalStore(t)
			store.EXPECT().LastDismissedAt(mock.Anything).Return(tt.dismissed, nil).Once()

			g := NewPromptGate(prompter, store, 24*time.Hour, newMockClock(now))
			require.Equal(t, tt.want, g.Offer(context.Background(), stalled))
		})
	}
}

func TestPromptGate_SuppressedStillLatches(t *testing.T) {
	clock := newMockClock(time.Now())
	prompter := mocks.NewMockPrompter(t)
	store := mocks.NewMockDismissalStore(t)
	store.EXPECT().LastDismissedAt(mock.Anything).Return(clock.Now().Add(-time.Hour), nil).Once()

	g := NewPromptGate(prompter, store, 24*time.Hour, clock)
	require.Equal(t, PromptSuppressed, g.Offer(context.Background(), stalled))

	clock.Advance(48 * time.Hour)
	require.Equal(t, PromptLatched, g.Offer(context.Background(), stalled))

	g.Reset()
	store.EXPECT().LastDismissedAt(mock.Anything).Return(time.Time{}, nil).Once()
	prompter.EXPECT().ShowUpgrade(mock.Anything, stalled).Return().Once()
	require.Equal(t, PromptShown, g.Offer(context.Background(), stalled))
}

func TestPromptGate_StoreErrorShowsPrompt(t *testing.T) {
	prompter := mocks.NewMockPrompter(t)
	prompter.EXPECT().ShowUpgrade(mock.Anything, stalled).Return().Once()
	store := mocks.NewMockDismissalStore(t)
	store.EXPECT().LastDismissedAt(mock.Anything).Return(time.Time{}, errors.New("database is locked")).Once()

	g := NewPromptGate(prompter, store, 24*time.Hour, nil)
	require.Equal(t, PromptShown, g.Offer(context.Background(), stalled))
}
