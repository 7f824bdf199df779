package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arhen/satset.io/internal/domain"
	"github.com/arhen/satset.io/internal/logger"
	"github.com/arhen/satset.io/internal/metrics"
	"github.com/arhen/satset.io/pkg/generator"
	"github.com/arhen/satset.io/pkg/validator"
)

const (
	generatedAliasLength = 6
	fallbackAliasLength  = 7

	// createRetries bounds the duplicate-key backstop loop. The existence
	// check before insert is not atomic with the insert itself, so a
	// concurrent create can still win the race; the unique constraint is the
	// source of truth and a fresh alias is generated on each loss.
	createRetries = 3
)

type URLRepository interface {
	Create(ctx context.Context, url *domain.URL) error
	GetByAlias(ctx context.Context, alias string) (*domain.URL, error)
	Exists(ctx context.Context, alias string) (bool, error)
	IncrementClicks(ctx context.Context, alias string) error
	Delete(ctx context.Context, alias string) error
}

type CacheRepository interface {
	Get(ctx context.Context, alias string) (*domain.CacheEntry, error)
	Set(ctx context.Context, alias string, entry *domain.CacheEntry, ttl time.Duration) error
	Delete(ctx context.Context, alias string) error
}

type ShortenerService struct {
	urlRepo    URLRepository
	cacheRepo  CacheRepository
	expiryDays int
	cacheTTL   time.Duration
	now        func() time.Time
}

func NewShortenerService(urlRepo URLRepository, cacheRepo CacheRepository, expiryDays int, cacheTTL time.Duration) *ShortenerService {
	return &ShortenerService{
		urlRepo:    urlRepo,
		cacheRepo:  cacheRepo,
		expiryDays: expiryDays,
		cacheTTL:   cacheTTL,
		now:        time.Now,
	}
}

// Shorten creates a new mapping. A caller-supplied alias that turns out to be
// taken is silently replaced by a freshly generated one rather than rejected;
// the caller learns the final alias from the returned record.
func (s *ShortenerService) Shorten(ctx context.Context, req *domain.CreateURLRequest) (*domain.URL, error) {
	if !validator.IsValidURL(req.OriginalURL) {
		return nil, domain.ErrInvalidURL
	}

	alias := req.Alias
	if alias != "" {
		if !validator.IsValidAlias(alias) {
			return nil, domain.ErrInvalidAlias
		}

		taken, err := s.urlRepo.Exists(ctx, alias)
		if err != nil {
			return nil, fmt.Errorf("failed to check alias: %w", err)
		}
		if taken {
			alias, err = generator.EnsureUnique(ctx, s.urlRepo.Exists, fallbackAliasLength)
			if err != nil {
				return nil, err
			}
		}
	} else {
		var err error
		alias, err = generator.EnsureUnique(ctx, s.urlRepo.Exists, generatedAliasLength)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	url := &domain.URL{
		Alias:       alias,
		OriginalURL: req.OriginalURL,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(s.expiryDays) * 24 * time.Hour),
	}

	for attempt := 0; ; attempt++ {
		err := s.urlRepo.Create(ctx, url)
		if err == nil {
			break
		}

		if errors.Is(err, domain.ErrAliasTaken) && attempt < createRetries-1 {
			url.Alias, err = generator.EnsureUnique(ctx, s.urlRepo.Exists, fallbackAliasLength)
			if err != nil {
				return nil, err
			}
			continue
		}

		return nil, fmt.Errorf("failed to create short url: %w", err)
	}

	entry := &domain.CacheEntry{
		OriginalURL: url.OriginalURL,
		ExpiresAt:   url.ExpiresAt.UnixMilli(),
	}
	if err := s.cacheRepo.Set(ctx, url.Alias, entry, s.cacheTTL); err != nil {
		logger.FromContext(ctx).Warn("Failed to populate cache on create",
			slog.String("alias", url.Alias),
			slog.String("error", err.Error()),
		)
	}

	metrics.URLsCreated.Inc()

	return url, nil
}

// Resolve looks an alias up cache-aside: the fast store first, then the
// durable store on miss, repopulating the cache with the record's own expiry.
// Click counting is fire-and-forget and never blocks the response.
func (s *ShortenerService) Resolve(ctx context.Context, alias string) (*domain.RedirectResponse, error) {
	if !validator.IsValidAlias(alias) {
		return nil, domain.ErrNotFound
	}

	entry, err := s.cacheRepo.Get(ctx, alias)
	if err != nil {
		// A broken cache is not fatal; fall through to the durable store.
		logger.FromContext(ctx).Warn("Cache read failed",
			slog.String("alias", alias),
			slog.String("error", err.Error()),
		)
	}
	if entry != nil {
		metrics.CacheHits.Inc()
		s.countClick(alias)
		return &domain.RedirectResponse{OriginalURL: entry.OriginalURL, Alias: alias}, nil
	}

	metrics.CacheMisses.Inc()

	record, err := s.urlRepo.GetByAlias(ctx, alias)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get original url: %w", err)
	}

	if record.Expired(s.now()) || !validator.IsValidURL(record.OriginalURL) {
		// Lazy repair: the record is logically dead, remove it off the
		// request path and report not found.
		go func() {
			if err := s.urlRepo.Delete(context.Background(), alias); err != nil {
				logger.Get().Warn("Failed to delete expired record",
					slog.String("alias", alias),
					slog.String("error", err.Error()),
				)
			}
		}()
		return nil, domain.ErrNotFound
	}

	cached := &domain.CacheEntry{
		OriginalURL: record.OriginalURL,
		ExpiresAt:   record.ExpiresAt.UnixMilli(),
	}
	if err := s.cacheRepo.Set(ctx, alias, cached, s.cacheTTL); err != nil {
		logger.FromContext(ctx).Warn("Failed to repopulate cache",
			slog.String("alias", alias),
			slog.String("error", err.Error()),
		)
	}

	s.countClick(alias)

	return &domain.RedirectResponse{OriginalURL: record.OriginalURL, Alias: alias}, nil
}

// CheckAlias reports whether an alias is free to claim.
func (s *ShortenerService) CheckAlias(ctx context.Context, alias string) (*domain.CheckAliasResponse, error) {
	if !validator.IsValidAlias(alias) {
		return &domain.CheckAliasResponse{Available: false, Alias: alias, Reason: "Invalid format"}, nil
	}

	taken, err := s.urlRepo.Exists(ctx, alias)
	if err != nil {
		return nil, fmt.Errorf("failed to check alias: %w", err)
	}

	return &domain.CheckAliasResponse{Available: !taken, Alias: alias}, nil
}

// Stats returns the advisory click counter and the record timestamps.
func (s *ShortenerService) Stats(ctx context.Context, alias string) (*domain.URLStats, error) {
	record, err := s.urlRepo.GetByAlias(ctx, alias)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get url: %w", err)
	}

	if record.Expired(s.now()) {
		return nil, domain.ErrNotFound
	}

	return &domain.URLStats{
		Alias:      record.Alias,
		ClickCount: record.ClickCount,
		CreatedAt:  record.CreatedAt.UnixMilli(),
		ExpiresAt:  record.ExpiresAt.UnixMilli(),
	}, nil
}

func (s *ShortenerService) countClick(alias string) {
	go func() {
		if err := s.urlRepo.IncrementClicks(context.Background(), alias); err != nil {
			logger.Get().Debug("Click increment dropped",
				slog.String("alias", alias),
				slog.String("error", err.Error()),
			)
		}
	}()
}
