package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoFiles             = errors.New("no files submitted")
	ErrMissingFileName     = errors.New("file name is required")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrNotImplemented      = errors.New("local extraction backend is not implemented")
)

// UploadSlotError indicates the batch slot request was rejected by the
// extraction service. It aborts the whole submission.
type UploadSlotError struct {
	Code    int
	Message string
}

func (e *UploadSlotError) Error() string {
	return fmt.Sprintf("extraction slot request rejected (code %d): %s", e.Code, e.Message)
}

// TransferError indicates a raw byte upload to a presigned target failed.
type TransferError struct {
	FileName   string
	StatusCode int
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("upload of %q failed with status %d", e.FileName, e.StatusCode)
}

// PollTimeoutError indicates the poll deadline elapsed before every entry
// in the batch reached a terminal state. No partial result is usable at
// that point, so it aborts the whole submission.
type PollTimeoutError struct {
	BatchID string
	Waited  time.Duration
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("batch %s not resolved within %s", e.BatchID, e.Waited)
}

// ExtractionFailedError indicates the extraction service reported a
// terminal "failed" state for one document. Sibling documents proceed.
type ExtractionFailedError struct {
	FileName string
	Message  string
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("extraction of %q failed: %s", e.FileName, e.Message)
}

// BundleFormatError indicates a result bundle was unreadable or held no
// extractable content.
type BundleFormatError struct {
	FileName string
	Reason   string
}

func (e *BundleFormatError) Error() string {
	return fmt.Sprintf("result bundle for %q unusable: %s", e.FileName, e.Reason)
}

// StructuringCallError indicates the language-model request itself failed.
type StructuringCallError struct {
	Err error
}

func (e *StructuringCallError) Error() string {
	return fmt.Sprintf("structuring call failed: %v", e.Err)
}

func (e *StructuringCallError) Unwrap() error { return e.Err }

// ResponseParseError indicates the model reply was not a valid JSON object
// after fence stripping. Raw carries the unmodified reply for diagnostics.
type ResponseParseError struct {
	Err error
	Raw string
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("model reply is not valid JSON: %v (raw: %s)", e.Err, truncate(e.Raw, 500))
}

func (e *ResponseParseError) Unwrap() error { return e.Err }

// SchemaValidationError indicates the reply JSON carried a value of the
// wrong type for a schema field. Values are never coerced.
type SchemaValidationError struct {
	Field string
	Alias string
	Value string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("field %s (%s) has invalid value %s", e.Field, e.Alias, e.Value)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
