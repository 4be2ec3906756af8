package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"medparse/internal/config"
	"medparse/internal/domain"
	"medparse/internal/port"
)

// ConvertInput is one uploaded document submitted for conversion.
type ConvertInput struct {
	FileName  string
	FileBytes []byte
}

// DocumentResult is the per-document outcome of a conversion. Exactly one
// of Invoice/Err is set.
type DocumentResult struct {
	FileName string
	Invoice  *domain.Invoice
	Err      error
}

// PipelineService defines the conversion pipeline contract: PDFs in,
// structured invoices (or per-document errors) out, output order matching
// input order.
type PipelineService interface {
	Convert(ctx context.Context, docs []ConvertInput) ([]DocumentResult, error)
}

type pipelineService struct {
	extractor  port.BatchExtractor
	structurer port.InvoiceStructurer
	cfg        config.PipelineConfig
}

// NewPipelineService creates a new PipelineService implementation.
func NewPipelineService(
	extractor port.BatchExtractor,
	structurer port.InvoiceStructurer,
	cfg config.PipelineConfig,
) PipelineService {
	return &pipelineService{
		extractor:  extractor,
		structurer: structurer,
		cfg:        cfg,
	}
}

// Convert runs the full pipeline over one batch: validate every input,
// extract the batch, then structure each extracted document concurrently.
// Any invalid input fails the whole submission before a single network
// call is made. A document whose extraction failed short-circuits to an
// error result without a structuring call; siblings are unaffected.
func (s *pipelineService) Convert(ctx context.Context, docs []ConvertInput) ([]DocumentResult, error) {
	if len(docs) == 0 {
		return nil, domain.ErrNoFiles
	}
	if err := s.validate(docs); err != nil {
		return nil, err
	}

	inputs := make([]port.ExtractInput, len(docs))
	for i, doc := range docs {
		inputs[i] = port.ExtractInput{FileName: doc.FileName, FileBytes: doc.FileBytes}
	}

	log.Printf("pipelineService.Convert: extracting batch of %d documents", len(docs))
	extracted, err := s.extractor.ExtractBatch(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if len(extracted) != len(docs) {
		return nil, fmt.Errorf("extractor returned %d results for %d documents", len(extracted), len(docs))
	}

	concurrency := s.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]DocumentResult, len(docs))
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for i := range docs {
		results[i] = DocumentResult{FileName: docs[i].FileName}

		if extracted[i].Err != nil {
			results[i].Err = extracted[i].Err
			continue
		}

		sem <- struct{}{} // acquire
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			defer func() { <-sem }() // release

			invoice, err := s.structurer.StructureText(ctx, text)
			if err != nil {
				log.Printf("pipelineService.Convert: structuring %q failed: %v", results[i].FileName, err)
				results[i].Err = err
				return
			}
			results[i].Invoice = invoice
		}(i, extracted[i].Text)
	}

	wg.Wait()
	log.Printf("pipelineService.Convert: batch of %d documents resolved", len(docs))
	return results, nil
}

// validate checks every input before any side effect: non-empty name,
// recognized file type, size bound.
func (s *pipelineService) validate(docs []ConvertInput) error {
	maxBytes := s.cfg.MaxFileSizeMB * 1024 * 1024
	for _, doc := range docs {
		if strings.TrimSpace(doc.FileName) == "" {
			return domain.ErrMissingFileName
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(doc.FileName), "."))
		if _, ok := domain.AllowedExtensions[ext]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, doc.FileName)
		}
		if maxBytes > 0 && int64(len(doc.FileBytes)) > maxBytes {
			return fmt.Errorf("%w: %s", domain.ErrFileTooLarge, doc.FileName)
		}
	}
	return nil
}
