package mocks

import (
	"context"

	"github.com/arhen/satset.io/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockShortenerService struct {
	mock.Mock
}

func (m *MockShortenerService) Shorten(ctx context.Context, req *domain.CreateURLRequest) (*domain.URL, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.URL), args.Error(1)
}

func (m *MockShortenerService) Resolve(ctx context.Context, alias string) (*domain.RedirectResponse, error) {
	args := m.Called(ctx, alias)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RedirectResponse), args.Error(1)
}

func (m *MockShortenerService) CheckAlias(ctx context.Context, alias string) (*domain.CheckAliasResponse, error) {
	args := m.Called(ctx, alias)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckAliasResponse), args.Error(1)
}

func (m *MockShortenerService) Stats(ctx context.Context, alias string) (*domain.URLStats, error) {
	args := m.Called(ctx, alias)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.URLStats), args.Error(1)
}
