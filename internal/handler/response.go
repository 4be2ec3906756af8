package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"medparse/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapBatchError translates batch-level pipeline errors to HTTP status
// codes and error codes. Document-level errors never reach here; they
// ride inside the per-document result slots of a 200 response.
func MapBatchError(err error) (status int, code, msg string) {
	var slotErr *domain.UploadSlotError
	var transferErr *domain.TransferError
	var pollErr *domain.PollTimeoutError

	switch {
	case errors.Is(err, domain.ErrNoFiles):
		return http.StatusBadRequest, "NO_FILES", "no files submitted"
	case errors.Is(err, domain.ErrMissingFileName):
		return http.StatusBadRequest, "MISSING_FILE_NAME", "every file must have a name"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: pdf"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrNotImplemented):
		return http.StatusNotImplemented, "NOT_IMPLEMENTED", "extraction backend is not implemented"
	case errors.As(err, &pollErr):
		return http.StatusGatewayTimeout, "POLL_TIMEOUT", pollErr.Error()
	case errors.As(err, &slotErr):
		return http.StatusBadGateway, "UPLOAD_SLOT_REJECTED", slotErr.Error()
	case errors.As(err, &transferErr):
		return http.StatusBadGateway, "UPLOAD_FAILED", transferErr.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}

// HandleError logs and responds to a batch-level error.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapBatchError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("handler.HandleError: %v", err)
	}
	RespondError(c, status, code, msg)
}

// DocumentErrorCode classifies a document-level error for serialization.
func DocumentErrorCode(err error) string {
	var extractionErr *domain.ExtractionFailedError
	var bundleErr *domain.BundleFormatError
	var callErr *domain.StructuringCallError
	var parseErr *domain.ResponseParseError
	var schemaErr *domain.SchemaValidationError

	switch {
	case errors.As(err, &extractionErr):
		return "EXTRACTION_FAILED"
	case errors.As(err, &bundleErr):
		return "BUNDLE_FORMAT"
	case errors.As(err, &callErr):
		return "STRUCTURING_CALL_FAILED"
	case errors.As(err, &parseErr):
		return "RESPONSE_PARSE_FAILED"
	case errors.As(err, &schemaErr):
		return "SCHEMA_VALIDATION_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}
