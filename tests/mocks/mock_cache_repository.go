package mocks

import (
	"context"
	"time"

	"github.com/arhen/satset.io/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, alias string) (*domain.CacheEntry, error) {
	args := m.Called(ctx, alias)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CacheEntry), args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, alias string, entry *domain.CacheEntry, ttl time.Duration) error {
	args := m.Called(ctx, alias, entry, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, alias string) error {
	args := m.Called(ctx, alias)
	return args.Error(0)
}
