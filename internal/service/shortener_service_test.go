package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arhen/satset.io/internal/domain"
	"github.com/arhen/satset.io/tests/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestService(urlRepo *mocks.MockURLRepository, cacheRepo *mocks.MockCacheRepository) *ShortenerService {
	return NewShortenerService(urlRepo, cacheRepo, 90, time.Hour)
}

func TestShorten_GeneratedAlias(t *testing.T) {
	mockURLRepo := new(mocks.MockURLRepository)
	mockCacheRepo := new(mocks.MockCacheRepository)
	svc := newTestService(mockURLRepo, mockCacheRepo)
	ctx := context.Background()

	mockURLRepo.On("Exists", ctx, mock.AnythingOfType("string")).Return(false, nil)
	mockURLRepo.On("Create", ctx, mock.MatchedBy(func(url *domain.URL) bool {
		return url.OriginalURL == "https://example.com" &&
			len(url.Alias) == 6 &&
			url.ExpiresAt.After(url.CreatedAt)
	})).Return(nil).Once()
	mockCacheRepo.On("Set", ctx, mock.AnythingOfType("string"), mock.AnythingOfType("*domain.CacheEntry"), time.Hour).
		Return(nil).Once()

	result, err := svc.Shorten(ctx, &domain.CreateURLRequest{OriginalURL: "https://example.com"})

	assert.NoError(t, err)
	assert.Len(t, result.Alias, 6)
	assert.Equal(t, "https://example.com", result.OriginalURL)
	mockURLRepo.AssertExpectations(t)
	mockCacheRepo.AssertExpectations(t)
}

func TestShorten_CallerAliasKept(t *testing.T) {
	mockURLRepo := new(mocks.MockURLRepository)
	mockCacheRepo := new(mocks.MockCacheRepository)
	svc := newTestService(mockURLRepo, mockCacheRepo)
	ctx := context.Background()

	mockURLRepo.On("Exists", ctx, "mylink").Return(false, nil).Once()
	mockURLRepo.On("Create", ctx, mock.MatchedBy(func(url *domain.URL) bool {
		return url.Alias == "mylink"
	})).Return(nil).Once()
	mockCacheRepo.On("Set", ctx, "mylink", mock.AnythingOfType("*domain.CacheEntry"), time.Hour).
		Return(nil).Once()

	result, err := svc.Shorten(ctx, &domain.CreateURLRequest{
		OriginalURL: "https://example.com",
		Alias:       "mylink",
	})

	assert.NoError(t, err)
	assert.Equal(t, "mylink", result.Alias)
	mockURLRepo.AssertExpectations(t)
}

func TestShorten_CallerAliasTaken_SilentFallback(t *testing.T) {
	mockURLRepo := new(mocks.MockURLRepository)
	mockCacheRepo := new(mocks.MockCacheRepository)
	svc := newTestService(mockURLRepo, mockCacheRepo)
	ctx := context.Background()

	mockURLRepo.On("Exists", ctx, "existing").Return(true, nil).Once()
	mockURLRepo.On("Exists", ctx, mock.AnythingOfType("string")).Return(false, nil)
	mockURLRepo.On("Create", ctx, mock.AnythingOfType("*domain.URL")).Return(nil).Once()
	mockCacheRepo.On("Set", ctx, mock.AnythingOfType("string"), mock.AnythingOfType("*domain.CacheEntry"), time.Hour).
		Return(nil).Once()

	result, err := svc.Shorten(ctx, &domain.CreateURLRequest{
		OriginalURL: "https://example.com",
		Alias:       "existing",
	})

	assert.NoError(t, err, "a taken caller alias is replaced, never rejected")
	assert.NotEqual(t, "existing", result.Alias)
	assert.Len(t, result.Alias, 7, "fallback generation starts one character longer")
	mockURLRepo.AssertExpectations(t)
}

func TestShorten_DuplicateKeyBackstop(t *testing.T) {
	mockURLRepo := new(mocks.MockURLRepository)
	mockCacheRepo := new(mocks.MockCacheRepository)
	svc := newTestService(mockURLRepo, mockCacheRepo)
	ctx := context.Background()

	mockURLRepo.On("Exists", ctx, mock.AnythingOfType("string")).Return(false, nil)
	// A concurrent create can win between the existence check and the insert.
	mockURLRepo.On("Create", ctx, mock.AnythingOfType("*domain.URL")).
		Return(domain.ErrAliasTaken).Once()
	mockURLRepo.On("Create", ctx, mock.AnythingOfType("*domain.URL")).
		Return(nil).Once()
	mockCacheRepo.On("Set", ctx, mock.AnythingOfType("string"), mock.AnythingOfType("*domain.CacheEntry"), time.Hour).
		Return(nil).Once()

	result, err := svc.Shorten(ctx, &domain.CreateURLRequest{OriginalURL: "https://example.com"})

	assert.NoError(t, err)
	assert.Len(t, result.Alias, 7)
	mockURLRepo.AssertNumberOfCalls(t, "Create", 2)
}

func TestShorten_InvalidURL(t *testing.T) {
	mockURLRepo := new(mocks.MockURLRepository)
	mockCacheRepo := new(mocks.MockCacheRepository)
	svc := newTestService(mockURLRepo, mockCacheRepo)

	for _, url := range []string{"http://example.com", "https://localhost/", "https://192.168.1.1/", "not-a-url"} {
		result, err := svc.Shorten(context.Background(), &domain.CreateURLRequest{OriginalURL: url})

		assert.ErrorIs(t, err, domain.ErrInvalidURL, "url: %s", url)
		assert.Nil(t, result)
	}

	mockURLRepo.AssertNotCalled(t, "Create")
}

func TestShorten_InvalidAlias(t *testing.T) {
	mockURLRepo := new(mocks.MockURLRepository)
	mockCacheRepo := new(mocks.MockCacheRepository)
	svc := newTestService(mockURLRepo, mockCacheRepo)

	result, err := svc.Shorten(context.Background(), &domain.CreateURLRequest{
		OriginalURL: "https://example.com",
		Alias:       "bad-alias",
	})

	assert.ErrorIs(t, err, domain.ErrInvalidAlias)
	assert.Nil(t, result)
	mockURLRepo.AssertNotCalled(t, "Create")
}

func TestShorten_GeneratorExhausted(t *testing.T) {
	mockURLRepo := new(mocks.MockURLRepository)
	mockCacheRepo := new(mocks.MockCacheRepository)
	svc := newTestService(mockURLRepo, mockCacheRepo)
	ctx := context.Background()

	mockURLRepo.On("Exists", ctx, mock.AnythingOfType("string")).Return(true, nil)

	result, err := svc.Shorten(ctx, &domain.CreateURLRequest{OriginalURL: "https://example.com"})

	assert.ErrorIs(t, err, domain.ErrAliasSpaceExhausted)
	assert.Nil(t, result)
	mockURLRepo.AssertNotCalled(t, "Create")
}

func TestResolve_CacheHit(t *testing.T) {
	mockURLRepo := new(mocks.MockURLRepository)
	mockCacheRepo := new(mocks.MockCacheRepository)
	svc := newTestService(mockURLRepo, mockCacheRepo)
	ctx := context.Background()

	entry := &domain.CacheEntry{
		OriginalURL: "https://example.com",
		ExpiresAt:   time.Now().Add(time.Hour).UnixMilli(),
	}

	mockCacheRepo.On("Get", ctx, "abc123").Return(entry, nil).Once()
	mockURLRepo.On("IncrementClicks", mock.Anything, "abc123").Return(nil).Maybe()

	result, err := svc.Resolve(ctx, "abc123")

	assert.NoError(t, err)
	assert.Equal(t, "https://example.com", result.OriginalURL)
	assert.Equal(t, "abc123", result.Alias)
	mockURLRepo.AssertNotCalled(t, "GetByAlias")
}

func TestResolve_CacheMiss_RepopulatesFromDurable(t *testing.T) {
	mockURLRepo := new(mocks.MockURLRepository)
	mockCacheRepo := new(mocks.MockCacheRepository)
	svc := newTestService(mockURLRepo, mockCacheRepo)
	ctx := context.Background()

	record := &domain.URL{
		Alias:       "abc123",
		OriginalURL: "https://example.com",
		CreatedAt:   time.Now().Add(-time.Hour),
		ExpiresAt:   time.Now().Add(48 * time.Hour),
	}

	mockCacheRepo.On("Get", ctx, "abc123").Return(nil, nil).Once()
	mockURLRepo.On("GetByAlias", ctx, "abc123").Return(record, nil).Once()
	// The repopulated entry carries the record's own expiry, not the cache TTL.
	mockCacheRepo.On("Set", ctx, "abc123", mock.MatchedBy(func(entry *domain.CacheEntry) bool {
		return entry.ExpiresAt == record.ExpiresAt.UnixMilli()
	}), time.Hour).Return(nil).Once()
	mockURLRepo.On("IncrementClicks", mock.Anything, "abc123").Return(nil).Maybe()

	result, err := svc.Resolve(ctx, "abc123")

	assert.NoError(t, err)
	assert.Equal(t, "https://example.com", result.OriginalURL)
	mockCacheRepo.AssertExpectations(t)
	mockURLRepo.AssertExpectations(t)
}

func TestResolve_CacheError_FallsThroughToDurable(t *testing.T) {
	mockURLRepo := new(mocks.MockURLRepository)
	mockCacheRepo := new(mocks.MockCacheRepository)
	svc := newTestService(mockURLRepo, mockCacheRepo)
	ctx := context.Background()

	record := &domain.URL{
		Alias:       "abc123",
		OriginalURL: "https://example.com",
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(48 * time.Hour),
	}

	mockCacheRepo.On("Get", ctx, "abc123").Return(nil, errors.New("connection refused")).Once()
	mockURLRepo.On("GetByAlias", ctx, "abc123").Return(record, nil).Once()
	mockCacheRepo.On("Set", ctx, "abc123", mock.AnythingOfType("*domain.CacheEntry"), time.Hour).
		Return(nil).Once()
	mockURLRepo.On("IncrementClicks", mock.Anything, "abc123").Return(nil).Maybe()

	result, err := svc.Resolve(ctx, "abc123")

	assert.NoError(t, err)
	assert.Equal(t, "https://example.com", result.OriginalURL)
}

func TestResolve_NotFound(t *testing.T) {
	mockURLRepo := new(mocks.MockURLRepository)
	mockCacheRepo := new(mocks.MockCacheRepository)
	svc := newTestService(mockURLRepo, mockCacheRepo)
	ctx := context.Background()

	mockCacheRepo.On("Get", ctx, "missing").Return(nil, nil).Once()
	mockURLRepo.On("GetByAlias", ctx, "missing").Return(nil, domain.ErrNotFound).Once()

	result, err := svc.Resolve(ctx, "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, result)
}

func TestResolve_ExpiredRecord_LazyDelete(t *testing.T) {
	mockURLRepo := new(mocks.MockURLRepository)
	mockCacheRepo := new(mocks.MockCacheRepository)
	svc := newTestService(mockURLRepo, mockCacheRepo)
	ctx := context.Background()

	record := &domain.URL{
		Alias:       "stale1",
		OriginalURL: "https://example.com",
		CreatedAt:   time.Now().Add(-48 * time.Hour),
		ExpiresAt:   time.Now().Add(-time.Hour),
	}

	mockCacheRepo.On("Get", ctx, "stale1").Return(nil, nil).Once()
	mockURLRepo.On("GetByAlias", ctx, "stale1").Return(record, nil).Once()
	mockURLRepo.On("Delete", mock.Anything, "stale1").Return(nil).Maybe()

	result, err := svc.Resolve(ctx, "stale1")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, result)

	time.Sleep(50 * time.Millisecond)
	mockURLRepo.AssertCalled(t, "Delete", mock.Anything, "stale1")
}

func TestResolve_InvalidAliasShapeIsNotFound(t *testing.T) {
	mockURLRepo := new(mocks.MockURLRepository)
	mockCacheRepo := new(mocks.MockCacheRepository)
	svc := newTestService(mockURLRepo, mockCacheRepo)

	result, err := svc.Resolve(context.Background(), "not-an-alias!")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, result)
	mockCacheRepo.AssertNotCalled(t, "Get")
}

func TestCheckAlias(t *testing.T) {
	mockURLRepo := new(mocks.MockURLRepository)
	mockCacheRepo := new(mocks.MockCacheRepository)
	svc := newTestService(mockURLRepo, mockCacheRepo)
	ctx := context.Background()

	mockURLRepo.On("Exists", ctx, "free123").Return(false, nil).Once()
	mockURLRepo.On("Exists", ctx, "taken1").Return(true, nil).Once()

	free, err := svc.CheckAlias(ctx, "free123")
	assert.NoError(t, err)
	assert.True(t, free.Available)

	taken, err := svc.CheckAlias(ctx, "taken1")
	assert.NoError(t, err)
	assert.False(t, taken.Available)

	invalid, err := svc.CheckAlias(ctx, "bad alias")
	assert.NoError(t, err)
	assert.False(t, invalid.Available)
	assert.Equal(t, "Invalid format", invalid.Reason)
	mockURLRepo.AssertNumberOfCalls(t, "Exists", 2)
}

func TestStats(t *testing.T) {
	mockURLRepo := new(mocks.MockURLRepository)
	mockCacheRepo := new(mocks.MockCacheRepository)
	svc := newTestService(mockURLRepo, mockCacheRepo)
	ctx := context.Background()

	record := &domain.URL{
		Alias:       "abc123",
		OriginalURL: "https://example.com",
		ClickCount:  42,
		CreatedAt:   time.Now().Add(-time.Hour),
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	mockURLRepo.On("GetByAlias", ctx, "abc123").Return(record, nil).Once()

	stats, err := svc.Stats(ctx, "abc123")

	assert.NoError(t, err)
	assert.Equal(t, int64(42), stats.ClickCount)
	assert.Equal(t, record.ExpiresAt.UnixMilli(), stats.ExpiresAt)
}

func TestStats_ExpiredIsNotFound(t *testing.T) {
	mockURLRepo := new(mocks.MockURLRepository)
	mockCacheRepo := new(mocks.MockCacheRepository)
	svc := newTestService(mockURLRepo, mockCacheRepo)
	ctx := context.Background()

	record := &domain.URL{
		Alias:       "stale1",
		OriginalURL: "https://example.com",
		CreatedAt:   time.Now().Add(-48 * time.Hour),
		ExpiresAt:   time.Now().Add(-time.Hour),
	}

	mockURLRepo.On("GetByAlias", ctx, "stale1").Return(record, nil).Once()

	stats, err := svc.Stats(ctx, "stale1")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, stats)
}
