package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"medparse/internal/port"
)

// MockBatchExtractor is a mock implementation of port.BatchExtractor.
type MockBatchExtractor struct {
	mock.Mock
}

func (m *MockBatchExtractor) ExtractBatch(ctx context.Context, docs []port.ExtractInput) ([]port.ExtractResult, error) {
	args := m.Called(ctx, docs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.ExtractResult), args.Error(1)
}
