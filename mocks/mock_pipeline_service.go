package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"medparse/internal/service"
)

// MockPipelineService is a mock implementation of service.PipelineService.
type MockPipelineService struct {
	mock.Mock
}

func (m *MockPipelineService) Convert(ctx context.Context, docs []service.ConvertInput) ([]service.DocumentResult, error) {
	args := m.Called(ctx, docs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.DocumentResult), args.Error(1)
}
