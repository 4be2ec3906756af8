package port

import "context"

// ExtractInput is one document submitted for text extraction.
type ExtractInput struct {
	FileName  string
	FileBytes []byte
}

// ExtractResult is the per-document outcome of a batch extraction. Exactly
// one of Text/Err is meaningful: Err carries a document-level failure
// (extraction reported failed, or the result bundle was unusable).
type ExtractResult struct {
	FileName string
	Text     string
	Err      error
}

// BatchExtractor turns a batch of documents into flattened text, one
// result per input in input order. Batch-level failures (slot request,
// upload, poll timeout) are returned as the error; per-document failures
// ride inside the corresponding ExtractResult.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, docs []ExtractInput) ([]ExtractResult, error)
}
