package store

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically reclaims expired snapshot slots. Expiry is enforced
// lazily on every read, so the sweeper only bounds memory growth for
// tenants that stop pushing.
type Sweeper struct {
	store    *Store
	log      *zap.Logger
	interval time.Duration
}

func NewSweeper(store *Store, log *zap.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		log:      log.Named("queue.sweeper"),
		interval: interval,
	}
}

func (s *Sweeper) RunForever(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if removed := s.store.Sweep(); removed > 0 {
			s.log.Debug("reclaimed expired snapshots", zap.Int("removed", removed))
		}
	}
}
