package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"medparse/internal/config"
	"medparse/internal/domain"
	"medparse/internal/port"
	"medparse/internal/service"
	"medparse/mocks"
)

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{Concurrency: 2, MaxFileSizeMB: 20}
}

func invoiceWithAmount(v float64) *domain.Invoice {
	return &domain.Invoice{TotalAmount: &v}
}

func TestConvert_OrderPreserved(t *testing.T) {
	extractor := new(mocks.MockBatchExtractor)
	structurer := new(mocks.MockInvoiceStructurer)
	svc := service.NewPipelineService(extractor, structurer, testPipelineConfig())

	docs := []service.ConvertInput{
		{FileName: "a.pdf", FileBytes: []byte("%PDF-a")},
		{FileName: "b.pdf", FileBytes: []byte("%PDF-b")},
		{FileName: "c.pdf", FileBytes: []byte("%PDF-c")},
	}

	extractor.On("ExtractBatch", mock.Anything, mock.Anything).Return([]port.ExtractResult{
		{FileName: "a.pdf", Text: "text-a"},
		{FileName: "b.pdf", Text: "text-b"},
		{FileName: "c.pdf", Text: "text-c"},
	}, nil)
	structurer.On("StructureText", mock.Anything, "text-a").Return(invoiceWithAmount(10), nil)
	structurer.On("StructureText", mock.Anything, "text-b").Return(invoiceWithAmount(20), nil)
	structurer.On("StructureText", mock.Anything, "text-c").Return(invoiceWithAmount(30), nil)

	results, err := svc.Convert(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, want := range []float64{10, 20, 30} {
		assert.Equal(t, docs[i].FileName, results[i].FileName)
		require.NoError(t, results[i].Err)
		require.NotNil(t, results[i].Invoice)
		assert.Equal(t, want, *results[i].Invoice.TotalAmount)
	}
	extractor.AssertExpectations(t)
	structurer.AssertExpectations(t)
}

func TestConvert_FailedExtractionSkipsStructuring(t *testing.T) {
	extractor := new(mocks.MockBatchExtractor)
	structurer := new(mocks.MockInvoiceStructurer)
	svc := service.NewPipelineService(extractor, structurer, testPipelineConfig())

	failed := &domain.ExtractionFailedError{FileName: "bad.pdf", Message: "corrupt file"}
	extractor.On("ExtractBatch", mock.Anything, mock.Anything).Return([]port.ExtractResult{
		{FileName: "good.pdf", Text: "text-good"},
		{FileName: "bad.pdf", Err: failed},
	}, nil)
	// Exactly one structuring call: the failed document never reaches the model.
	structurer.On("StructureText", mock.Anything, "text-good").Return(invoiceWithAmount(80), nil).Once()

	results, err := svc.Convert(context.Background(), []service.ConvertInput{
		{FileName: "good.pdf", FileBytes: []byte("%PDF-1")},
		{FileName: "bad.pdf", FileBytes: []byte("%PDF-2")},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.NoError(t, results[0].Err)
	assert.Equal(t, 80.0, *results[0].Invoice.TotalAmount)

	var exErr *domain.ExtractionFailedError
	require.True(t, errors.As(results[1].Err, &exErr))
	assert.Nil(t, results[1].Invoice)
	structurer.AssertExpectations(t)
}

func TestConvert_StructuringErrorCapturedPerDocument(t *testing.T) {
	extractor := new(mocks.MockBatchExtractor)
	structurer := new(mocks.MockInvoiceStructurer)
	svc := service.NewPipelineService(extractor, structurer, testPipelineConfig())

	extractor.On("ExtractBatch", mock.Anything, mock.Anything).Return([]port.ExtractResult{
		{FileName: "a.pdf", Text: "text-a"},
		{FileName: "b.pdf", Text: "text-b"},
	}, nil)
	parseErr := &domain.ResponseParseError{Err: errors.New("invalid json"), Raw: "抱歉"}
	structurer.On("StructureText", mock.Anything, "text-a").Return(nil, parseErr)
	structurer.On("StructureText", mock.Anything, "text-b").Return(invoiceWithAmount(20), nil)

	results, err := svc.Convert(context.Background(), []service.ConvertInput{
		{FileName: "a.pdf", FileBytes: []byte("%PDF-a")},
		{FileName: "b.pdf", FileBytes: []byte("%PDF-b")},
	})
	require.NoError(t, err)

	var gotParse *domain.ResponseParseError
	require.True(t, errors.As(results[0].Err, &gotParse))
	require.NoError(t, results[1].Err)
	assert.Equal(t, 20.0, *results[1].Invoice.TotalAmount)
}

func TestConvert_EmptyBatch(t *testing.T) {
	extractor := new(mocks.MockBatchExtractor)
	structurer := new(mocks.MockInvoiceStructurer)
	svc := service.NewPipelineService(extractor, structurer, testPipelineConfig())

	_, err := svc.Convert(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNoFiles)
	extractor.AssertNotCalled(t, "ExtractBatch", mock.Anything, mock.Anything)
}

func TestConvert_RejectsUnsupportedFileTypeBeforeExtraction(t *testing.T) {
	extractor := new(mocks.MockBatchExtractor)
	structurer := new(mocks.MockInvoiceStructurer)
	svc := service.NewPipelineService(extractor, structurer, testPipelineConfig())

	_, err := svc.Convert(context.Background(), []service.ConvertInput{
		{FileName: "ok.pdf", FileBytes: []byte("%PDF-1")},
		{FileName: "notes.docx", FileBytes: []byte("PK")},
	})

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	assert.Contains(t, err.Error(), "notes.docx")
	// Validation failure means zero side effects.
	extractor.AssertNotCalled(t, "ExtractBatch", mock.Anything, mock.Anything)
}

func TestConvert_RejectsMissingFileName(t *testing.T) {
	extractor := new(mocks.MockBatchExtractor)
	structurer := new(mocks.MockInvoiceStructurer)
	svc := service.NewPipelineService(extractor, structurer, testPipelineConfig())

	_, err := svc.Convert(context.Background(), []service.ConvertInput{
		{FileName: "   ", FileBytes: []byte("%PDF-1")},
	})
	assert.ErrorIs(t, err, domain.ErrMissingFileName)
	extractor.AssertNotCalled(t, "ExtractBatch", mock.Anything, mock.Anything)
}

func TestConvert_RejectsOversizedFile(t *testing.T) {
	extractor := new(mocks.MockBatchExtractor)
	structurer := new(mocks.MockInvoiceStructurer)
	svc := service.NewPipelineService(extractor, structurer, config.PipelineConfig{
		Concurrency:   2,
		MaxFileSizeMB: 1,
	})

	big := make([]byte, 2*1024*1024)
	_, err := svc.Convert(context.Background(), []service.ConvertInput{
		{FileName: "big.pdf", FileBytes: big},
	})
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
	extractor.AssertNotCalled(t, "ExtractBatch", mock.Anything, mock.Anything)
}

func TestConvert_BatchErrorPropagated(t *testing.T) {
	extractor := new(mocks.MockBatchExtractor)
	structurer := new(mocks.MockInvoiceStructurer)
	svc := service.NewPipelineService(extractor, structurer, testPipelineConfig())

	pollErr := &domain.PollTimeoutError{BatchID: "batch-001", Waited: 0}
	extractor.On("ExtractBatch", mock.Anything, mock.Anything).Return(nil, pollErr)

	results, err := svc.Convert(context.Background(), []service.ConvertInput{
		{FileName: "a.pdf", FileBytes: []byte("%PDF-a")},
	})

	var gotPoll *domain.PollTimeoutError
	require.True(t, errors.As(err, &gotPoll))
	assert.Nil(t, results)
	structurer.AssertNotCalled(t, "StructureText", mock.Anything, mock.Anything)
}
