package fetch

import (
	"context"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/schema"
	"github.com/stretchr/testify/mock"
)

// MockFetcher is a mock implementation of Fetcher for testing.
type MockFetcher struct {
	mock.Mock
}

var _ contract.Fetcher = &MockFetcher{} // Compile-time check

// Fetch implements the Fetcher interface.
func (m *MockFetcher) Fetch(ctx context.Context, key schema.SeriesKey) (contract.Payload, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(contract.Payload), args.Error(1)
}

// Strategy implements the Fetcher interface.
func (m *MockFetcher) Strategy() schema.FetchStrategy {
	args := m.Called()
	return args.Get(0).(schema.FetchStrategy)
}
