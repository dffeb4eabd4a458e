// Package maintenance provide one-shot tasks for the session history database
package maintenance

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/lobby/internal/config"
)

// Pruner deletes ended sessions.
type Pruner interface {
	PruneSessions(cutoff time.Time) (int64, error)
}

// Run checks if any maintenance flags are set and executes the corresponding tasks.
// Returns true if a maintenance task was executed (indicating the program should exit).
func Run(cfg *config.Config, store Pruner) bool {
	if cfg.Storage.PruneOlder == 0 {
		return false
	}

	cutoff := time.Now().Add(-cfg.Storage.PruneOlder)
	log.Info().Time("cutoff", cutoff).Msg("Pruning ended sessions...")

	count, err := store.PruneSessions(cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Failed to prune sessions")
	} else {
		log.Info().Int64("deleted", count).Msg("Prune finished")
	}

	return true
}
