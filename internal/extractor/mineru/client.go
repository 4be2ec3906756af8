package mineru

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"medparse/internal/config"
	"medparse/internal/domain"
	"medparse/internal/port"
)

const (
	apiBaseURL      = "https://mineru.net/api/v4"
	slotRequestPath = "/file-urls/batch"
	batchStatusPath = "/extract-results/batch/"

	// fan-out bound for per-entry bundle downloads
	maxBundleFetches = 4
)

// Client implements port.BatchExtractor against the MinerU online API.
//
// The protocol has three phases: request one upload slot per document,
// PUT the raw bytes to each slot, then poll the batch status until every
// entry is terminal or the poll deadline elapses.
type Client struct {
	baseURL      string
	token        string
	pollInterval time.Duration
	pollTimeout  time.Duration
	client       *http.Client
}

// NewClient creates a MinerU extraction client from config.
func NewClient(cfg *config.MinerUConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = apiBaseURL
	}
	return newClient(cfg, base)
}

// NewClientWithEndpoint creates a client pointing at a custom API base URL (for testing).
func NewClientWithEndpoint(cfg *config.MinerUConfig, baseURL string) *Client {
	return newClient(cfg, baseURL)
}

func newClient(cfg *config.MinerUConfig, baseURL string) *Client {
	interval := cfg.PollInterval()
	if interval <= 0 {
		interval = 5 * time.Second
	}
	deadline := cfg.PollTimeout()
	if deadline <= 0 {
		deadline = 5 * time.Minute
	}
	reqTimeout := time.Duration(cfg.RequestTimeoutSecs) * time.Second
	if reqTimeout == 0 {
		reqTimeout = 60 * time.Second
	}
	return &Client{
		baseURL:      baseURL,
		token:        cfg.Token,
		pollInterval: interval,
		pollTimeout:  deadline,
		client:       &http.Client{Timeout: reqTimeout},
	}
}

// ExtractBatch submits docs as one batch and returns one result per input
// in input order. Slot, upload, and poll-deadline failures abort the whole
// batch; a document whose remote processing fails gets its error recorded
// in its own result slot while siblings proceed.
func (c *Client) ExtractBatch(ctx context.Context, docs []port.ExtractInput) ([]port.ExtractResult, error) {
	if len(docs) == 0 {
		return nil, domain.ErrNoFiles
	}

	batchID, uploadURLs, dataIDs, err := c.requestSlots(ctx, docs)
	if err != nil {
		return nil, err
	}
	log.Printf("mineru.ExtractBatch: batch %s allocated with %d upload slots", batchID, len(uploadURLs))

	for i, doc := range docs {
		if err := c.upload(ctx, uploadURLs[i], doc); err != nil {
			return nil, err
		}
	}

	entries, err := c.pollBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	return c.resolveBatch(ctx, docs, dataIDs, entries), nil
}

// slotRequestFile is one document reference in the slot request body.
type slotRequestFile struct {
	Name   string `json:"name"`
	DataID string `json:"data_id"`
}

type slotRequestBody struct {
	Files    []slotRequestFile `json:"files"`
	IsOCR    bool              `json:"is_ocr"`
	Language string            `json:"language"`
}

type slotResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		BatchID  string   `json:"batch_id"`
		FileURLs []string `json:"file_urls"`
	} `json:"data"`
}

// requestSlots performs the phase-1 slot request. A fresh correlation
// token is issued per document; results are matched back by token (or
// filename), never by position in the poll response.
func (c *Client) requestSlots(ctx context.Context, docs []port.ExtractInput) (string, []string, []string, error) {
	body := slotRequestBody{
		Files:    make([]slotRequestFile, 0, len(docs)),
		IsOCR:    true,
		Language: "ch",
	}
	dataIDs := make([]string, len(docs))
	for i, doc := range docs {
		dataIDs[i] = uuid.New().String()
		body.Files = append(body.Files, slotRequestFile{Name: doc.FileName, DataID: dataIDs[i]})
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", nil, nil, fmt.Errorf("marshaling slot request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+slotRequestPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", nil, nil, fmt.Errorf("creating slot request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", nil, nil, fmt.Errorf("calling slot request endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, nil, fmt.Errorf("reading slot response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, nil, &domain.UploadSlotError{Code: resp.StatusCode, Message: string(respBody)}
	}

	var parsed slotResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", nil, nil, fmt.Errorf("unmarshaling slot response: %w", err)
	}
	if parsed.Code != 0 {
		return "", nil, nil, &domain.UploadSlotError{Code: parsed.Code, Message: parsed.Msg}
	}
	if parsed.Data.BatchID == "" || len(parsed.Data.FileURLs) != len(docs) {
		return "", nil, nil, &domain.UploadSlotError{
			Code:    parsed.Code,
			Message: fmt.Sprintf("malformed slot response: %d upload urls for %d files", len(parsed.Data.FileURLs), len(docs)),
		}
	}

	return parsed.Data.BatchID, parsed.Data.FileURLs, dataIDs, nil
}

// upload performs the phase-2 raw byte transfer. The request carries no
// Content-Type header: the service auto-detects the media type and starts
// processing on receipt. The first failed upload aborts the batch.
func (c *Client) upload(ctx context.Context, url string, doc port.ExtractInput) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(doc.FileBytes))
	if err != nil {
		return fmt.Errorf("creating upload request for %q: %w", doc.FileName, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("uploading %q: %w", doc.FileName, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.TransferError{FileName: doc.FileName, StatusCode: resp.StatusCode}
	}
	return nil
}

// batchEntry is the per-document status record in the poll response.
type batchEntry struct {
	FileName    string     `json:"file_name"`
	DataID      string     `json:"data_id"`
	State       string     `json:"state"`
	ErrMsg      string     `json:"err_msg"`
	FullZipURL  string     `json:"full_zip_url"`
	Markdown    string     `json:"markdown"`
	ContentList []lineItem `json:"content_list"`
}

type batchStatusResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		// Some API versions report only a batch-level state.
		State         string       `json:"state"`
		ExtractResult []batchEntry `json:"extract_result"`
	} `json:"data"`
}

// pollBatch performs the phase-3 status poll at a fixed interval until
// every entry is terminal. Exceeding the wall-clock deadline fails the
// whole batch: unresolved entries cannot be told apart from future
// successes, so no partial result is surfaced.
func (c *Client) pollBatch(ctx context.Context, batchID string) ([]batchEntry, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(c.pollTimeout)
	defer deadline.Stop()

	for {
		entries, resolved, err := c.fetchBatchStatus(ctx, batchID)
		if err != nil {
			return nil, err
		}
		if resolved {
			return entries, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("polling batch %s: %w", batchID, ctx.Err())
		case <-deadline.C:
			log.Printf("mineru.pollBatch: batch %s timed out after %s", batchID, c.pollTimeout)
			return nil, &domain.PollTimeoutError{BatchID: batchID, Waited: c.pollTimeout}
		case <-ticker.C:
		}
	}
}

// fetchBatchStatus fetches the batch status once. resolved is true when
// every entry's own state is terminal. When entries carry no state field
// but the batch does, the batch-level state is applied to every entry —
// without this, the poll loop would never terminate against older API
// versions. A terminal batch-level state with an empty entry list also
// resolves: the missing entries surface as per-document errors instead of
// spinning the poll into its deadline.
func (c *Client) fetchBatchStatus(ctx context.Context, batchID string) ([]batchEntry, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+batchStatusPath+batchID, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating batch status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetching batch %s status: %w", batchID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("reading batch status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("batch status request failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed batchStatusResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, false, fmt.Errorf("unmarshaling batch status: %w", err)
	}
	if parsed.Code != 0 {
		return nil, false, fmt.Errorf("batch status rejected (code %d): %s", parsed.Code, parsed.Msg)
	}

	entries := parsed.Data.ExtractResult
	for i := range entries {
		if entries[i].State == "" {
			entries[i].State = parsed.Data.State
		}
	}

	if len(entries) == 0 {
		return entries, parseEntryState(parsed.Data.State).terminal(), nil
	}
	for i := range entries {
		if !parseEntryState(entries[i].State).terminal() {
			return entries, false, nil
		}
	}
	return entries, true, nil
}

// resolveBatch maps terminal entries back to the submitted documents and
// decodes each done entry's content. Matching is by correlation token
// first, then filename — the service does not guarantee that result order
// matches submission order.
func (c *Client) resolveBatch(ctx context.Context, docs []port.ExtractInput, dataIDs []string, entries []batchEntry) []port.ExtractResult {
	byDataID := make(map[string]*batchEntry, len(entries))
	byName := make(map[string]*batchEntry, len(entries))
	for i := range entries {
		if entries[i].DataID != "" {
			byDataID[entries[i].DataID] = &entries[i]
		}
		if _, dup := byName[entries[i].FileName]; !dup {
			byName[entries[i].FileName] = &entries[i]
		}
	}

	results := make([]port.ExtractResult, len(docs))
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxBundleFetches)

	for i, doc := range docs {
		results[i] = port.ExtractResult{FileName: doc.FileName}

		entry, ok := byDataID[dataIDs[i]]
		if !ok {
			entry, ok = byName[doc.FileName]
		}
		if !ok {
			results[i].Err = &domain.ExtractionFailedError{FileName: doc.FileName, Message: "no result entry returned for document"}
			continue
		}

		if parseEntryState(entry.State) == stateFailed {
			msg := entry.ErrMsg
			if msg == "" {
				msg = "remote processing failed"
			}
			results[i].Err = &domain.ExtractionFailedError{FileName: doc.FileName, Message: msg}
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int, name string, entry *batchEntry) {
			defer wg.Done()
			defer func() { <-sem }()

			text, err := c.resolveEntry(ctx, name, entry)
			if err != nil {
				log.Printf("mineru.resolveBatch: decoding result for %q failed: %v", name, err)
				results[i].Err = err
				return
			}
			results[i].Text = text
		}(i, doc.FileName, entry)
	}

	wg.Wait()
	return results
}
