package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"medparse/internal/domain"
	"medparse/internal/service"
	"medparse/internal/xlsxexport"
)

// ConvertHandler handles invoice conversion endpoints.
type ConvertHandler struct {
	pipeline service.PipelineService
}

// NewConvertHandler creates a new ConvertHandler.
func NewConvertHandler(pipeline service.PipelineService) *ConvertHandler {
	return &ConvertHandler{pipeline: pipeline}
}

// ConvertResult is the per-document slot in the conversion response.
// Data carries the invoice serialized with its Chinese alias field names;
// Error is set instead when that document failed.
type ConvertResult struct {
	Filename string          `json:"filename"`
	Data     *domain.Invoice `json:"data,omitempty"`
	Error    *APIError       `json:"error,omitempty"`
}

// ConvertResponse is the body of a successful conversion call.
type ConvertResponse struct {
	Results []ConvertResult `json:"results"`
}

// Convert handles POST /api/v1/convert
// @Summary Convert medical invoice PDFs
// @Description Accepts one or more PDF files, extracts their text remotely and structures each into the invoice schema
// @Tags convert
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "PDF files to convert"
// @Success 200 {object} APIResponse{data=ConvertResponse} "Per-document results in submission order"
// @Failure 400 {object} APIResponse "Missing or invalid files"
// @Failure 502 {object} APIResponse "Extraction service rejected the batch"
// @Failure 504 {object} APIResponse "Batch did not resolve before the poll deadline"
// @Router /convert [post]
func (h *ConvertHandler) Convert(c *gin.Context) {
	docs, ok := h.readFiles(c)
	if !ok {
		return
	}

	results, err := h.pipeline.Convert(c.Request.Context(), docs)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, buildConvertResponse(results))
}

// Export handles POST /api/v1/convert/export
// @Summary Convert medical invoice PDFs to a spreadsheet
// @Description Runs the same pipeline as /convert and returns the batch as an XLSX workbook
// @Tags convert
// @Accept multipart/form-data
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param files formData file true "PDF files to convert"
// @Success 200 {file} binary "Workbook with one row per document"
// @Router /convert/export [post]
func (h *ConvertHandler) Export(c *gin.Context) {
	docs, ok := h.readFiles(c)
	if !ok {
		return
	}

	results, err := h.pipeline.Convert(c.Request.Context(), docs)
	if err != nil {
		HandleError(c, err)
		return
	}

	workbook, err := xlsxexport.Write(results)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := fmt.Sprintf("invoices-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}

// readFiles pulls every uploaded file out of the multipart form. It only
// rejects a structurally broken request here; file-level validation is
// the pipeline's job so the whole-batch policy lives in one place.
func (h *ConvertHandler) readFiles(c *gin.Context) ([]service.ConvertInput, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FORM", "multipart form is required")
		return nil, false
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		RespondError(c, http.StatusBadRequest, "NO_FILES", "files field is required")
		return nil, false
	}

	docs := make([]service.ConvertInput, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not open uploaded file "+header.Filename)
			return nil, false
		}
		data, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not read uploaded file "+header.Filename)
			return nil, false
		}
		docs = append(docs, service.ConvertInput{FileName: header.Filename, FileBytes: data})
	}
	return docs, true
}

func buildConvertResponse(results []service.DocumentResult) ConvertResponse {
	out := ConvertResponse{Results: make([]ConvertResult, 0, len(results))}
	for _, res := range results {
		item := ConvertResult{Filename: res.FileName}
		if res.Err != nil {
			item.Error = &APIError{Code: DocumentErrorCode(res.Err), Message: res.Err.Error()}
		} else {
			item.Data = res.Invoice
		}
		out.Results = append(out.Results, item)
	}
	return out
}
