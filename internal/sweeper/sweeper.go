// Package sweeper removes expired records and their cache shadows on a fixed
// schedule. A pass purges cache entries before the durable bulk delete, so a
// reader can never observe a durable miss followed by a stale cache hit.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/arhen/satset.io/internal/logger"
	"github.com/arhen/satset.io/internal/metrics"
)

type URLRepository interface {
	ListExpired(ctx context.Context, before time.Time) ([]string, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type CacheRepository interface {
	Delete(ctx context.Context, alias string) error
}

type Sweeper struct {
	urlRepo   URLRepository
	cacheRepo CacheRepository
	interval  time.Duration
	now       func() time.Time
}

func New(urlRepo URLRepository, cacheRepo CacheRepository, interval time.Duration) *Sweeper {
	return &Sweeper{
		urlRepo:   urlRepo,
		cacheRepo: cacheRepo,
		interval:  interval,
		now:       time.Now,
	}
}

// Run sweeps on every tick until ctx is cancelled. Failures are logged and
// retried on the next tick; there is no escalation beyond logging.
func (s *Sweeper) Run(ctx context.Context) {
	log := logger.Get()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Sweeper stopped")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				log.Error("Sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Sweep performs one pass: collect expired aliases, purge their cache
// entries, then bulk-delete the durable records matching the same predicate.
// Partial progress is safe: a cache entry that survives a failed pass is
// still revalidated against its expiry on every read.
func (s *Sweeper) Sweep(ctx context.Context) error {
	log := logger.Get()
	now := s.now()

	aliases, err := s.urlRepo.ListExpired(ctx, now)
	if err != nil {
		return err
	}
	if len(aliases) == 0 {
		return nil
	}

	for _, alias := range aliases {
		if err := s.cacheRepo.Delete(ctx, alias); err != nil {
			log.Warn("Failed to purge cache entry",
				slog.String("alias", alias),
				slog.String("error", err.Error()),
			)
		}
	}

	deleted, err := s.urlRepo.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}

	metrics.SweptAliases.Add(float64(deleted))
	log.Info("Sweep completed",
		slog.Int64("deleted", deleted),
		slog.Int("cache_purged", len(aliases)),
	)

	return nil
}
