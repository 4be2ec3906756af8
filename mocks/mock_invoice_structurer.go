package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"medparse/internal/domain"
)

// MockInvoiceStructurer is a mock implementation of port.InvoiceStructurer.
type MockInvoiceStructurer struct {
	mock.Mock
}

func (m *MockInvoiceStructurer) StructureText(ctx context.Context, text string) (*domain.Invoice, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}
