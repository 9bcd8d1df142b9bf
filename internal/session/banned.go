package session

import (
	"context"

	"github.com/zjrosen/autoaccept/internal/infrastructure/sqlite"
	"github.com/zjrosen/autoaccept/internal/log"
	"github.com/zjrosen/autoaccept/internal/safety"
)

// ResolveBanned picks the active pattern list: a list customized through the
// CLI wins, then the config file, then the built-in defaults. Invalid regex
// patterns are kept (they match literally) and logged.
func ResolveBanned(ctx context.Context, store *sqlite.DB, configured []string) ([]string, error) {
	patterns := configured
	if store != nil {
		stored, custom, err := store.Banned().List(ctx)
		if err != nil {
			return nil, err
		}
		if custom {
			patterns = stored
		}
	}
	if patterns == nil {
		patterns = safety.DefaultBannedCommands()
	}
	for _, p := range patterns {
		if err := safety.Validate(p); err != nil {
			log.Warn(log.CatSafety, "Banned pattern matches literally", "error", err)
		}
	}
	return patterns, nil
}
