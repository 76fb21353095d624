// Package jobs holds the background maintenance tasks of the service.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/omer3kale/SichrSpace-sub002/internal/auth"
)

// RunRetentionSweeper periodically deletes refresh token records that have
// been expired or revoked for longer than the retention window. It blocks
// until ctx is cancelled.
func RunRetentionSweeper(ctx context.Context, store *auth.RefreshTokenStore, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			deleted, err := store.PurgeExpired(sweepCtx, retention)
			cancel()
			if err != nil {
				log.Error().Err(err).Msg("refresh token retention sweep failed")
				continue
			}
			if deleted > 0 {
				log.Info().Int64("deleted", deleted).Msg("refresh token retention sweep")
			}
		}
	}
}
