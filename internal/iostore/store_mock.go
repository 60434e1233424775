package iostore

import (
	"context"
	"time"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/schema"
	"github.com/stretchr/testify/mock"
)

// MockPointStore is a mock implementation of PointStore for testing.
type MockPointStore struct {
	mock.Mock
}

var _ contract.PointStore = &MockPointStore{} // Compile-time check

// EnsureUnit implements the PointStore interface.
func (m *MockPointStore) EnsureUnit(ctx context.Context, index string) error {
	args := m.Called(ctx, index)
	return args.Error(0)
}

// Save implements the PointStore interface.
func (m *MockPointStore) Save(ctx context.Context, index string, points []schema.Point) (schema.SaveResult, error) {
	args := m.Called(ctx, index, points)
	return args.Get(0).(schema.SaveResult), args.Error(1)
}

// Load implements the PointStore interface.
func (m *MockPointStore) Load(ctx context.Context, index string, start, end *time.Time) ([]schema.Point, error) {
	args := m.Called(ctx, index, start, end)
	points, _ := args.Get(0).([]schema.Point)
	return points, args.Error(1)
}

// GetStatus implements the PointStore interface.
func (m *MockPointStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close implements the PointStore interface.
func (m *MockPointStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockRunStore is a mock implementation of RunStore for testing.
type MockRunStore struct {
	mock.Mock
}

var _ contract.RunStore = &MockRunStore{} // Compile-time check

// RecordRun implements the RunStore interface.
func (m *MockRunStore) RecordRun(ctx context.Context, run schema.IngestRun) (int64, error) {
	args := m.Called(ctx, run)
	return args.Get(0).(int64), args.Error(1)
}

// ListRuns implements the RunStore interface.
func (m *MockRunStore) ListRuns(ctx context.Context, limit int) ([]schema.IngestRun, error) {
	args := m.Called(ctx, limit)
	runs, _ := args.Get(0).([]schema.IngestRun)
	return runs, args.Error(1)
}

// GetStatus implements the RunStore interface.
func (m *MockRunStore) GetStatus(ctx context.Context) (schema.RunStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.RunStatus), args.Error(1)
}

// Close implements the RunStore interface.
func (m *MockRunStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
