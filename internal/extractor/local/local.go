// Package local is the placeholder for a self-hosted extraction backend
// that replaces the online API with a direct call to a locally running
// extraction instance. Not implemented yet.
package local

import (
	"context"

	"medparse/internal/domain"
	"medparse/internal/port"
)

// Extractor implements port.BatchExtractor for a self-hosted extraction
// instance. Every call currently fails with domain.ErrNotImplemented.
type Extractor struct{}

// NewExtractor creates the local extraction backend.
func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) ExtractBatch(ctx context.Context, docs []port.ExtractInput) ([]port.ExtractResult, error) {
	return nil, domain.ErrNotImplemented
}
