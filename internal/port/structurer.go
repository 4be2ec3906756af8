package port

import (
	"context"

	"medparse/internal/domain"
)

// InvoiceStructurer turns flattened invoice text into the structured
// invoice schema via a language model.
type InvoiceStructurer interface {
	StructureText(ctx context.Context, text string) (*domain.Invoice, error)
}
