package zhipu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"medparse/internal/config"
	"medparse/internal/domain"
	"medparse/internal/structurer"
)

const (
	apiBaseURL      = "https://open.bigmodel.cn/api/paas/v4"
	completionsPath = "/chat/completions"
)

// Client implements port.InvoiceStructurer using the Zhipu GLM chat
// completions API. Calls are client-side rate limited to respect the
// provider's request quota.
type Client struct {
	apiKey      string
	model       string
	temperature float64
	endpoint    string
	limiter     *rate.Limiter
	client      *http.Client
}

// NewClient creates a GLM-based invoice structurer from config.
func NewClient(cfg *config.ZhipuConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = apiBaseURL
	}
	return newClient(cfg, base)
}

// NewClientWithEndpoint creates a client pointing at a custom API base URL (for testing).
func NewClientWithEndpoint(cfg *config.ZhipuConfig, baseURL string) *Client {
	return newClient(cfg, baseURL)
}

func newClient(cfg *config.ZhipuConfig, baseURL string) *Client {
	model := cfg.Model
	if model == "" {
		model = "glm-4-flash"
	}
	// Zero is a valid temperature; only a negative value means unset.
	temperature := cfg.Temperature
	if temperature < 0 {
		temperature = 0.1
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	limit := rate.Limit(cfg.RequestsPerSec)
	if limit <= 0 {
		limit = rate.Inf
	}
	return &Client{
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: temperature,
		endpoint:    baseURL + completionsPath,
		limiter:     rate.NewLimiter(limit, 1),
		client:      &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// chatResponse models the GLM chat completions response.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// StructureText sends the flattened invoice text to the model and
// normalizes the reply into the invoice schema.
func (c *Client) StructureText(ctx context.Context, text string) (*domain.Invoice, error) {
	if c.apiKey == "" {
		return nil, &domain.StructuringCallError{Err: fmt.Errorf("zhipu api key is not configured")}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.StructuringCallError{Err: fmt.Errorf("waiting for rate limiter: %w", err)}
	}

	prompt := structurer.BuildInvoicePrompt(text)
	log.Printf("zhipu.StructureText: calling %s, prompt length %d chars", c.model, len(prompt))

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &domain.StructuringCallError{Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, &domain.StructuringCallError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.StructuringCallError{Err: fmt.Errorf("calling zhipu API: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.StructuringCallError{Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.StructuringCallError{Err: fmt.Errorf("zhipu API error (status %d): %s", resp.StatusCode, string(respBody))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &domain.StructuringCallError{Err: fmt.Errorf("unmarshaling response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &domain.StructuringCallError{Err: fmt.Errorf("empty response from API: no choices")}
	}

	return structurer.ParseInvoiceReply(parsed.Choices[0].Message.Content)
}
