package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Backend error kinds. The router treats all of them as fallback-worthy;
// they stay distinguishable for diagnostics and metrics labels.
const (
	ErrKindUnreachable = "unreachable"
	ErrKindTimeout     = "timeout"
	ErrKindBadResponse = "bad_response"
)

// BackendError is a typed failure from a single backend attempt. It
// always carries the endpoint and the upstream detail so double-failure
// messages can name both backends.
type BackendError struct {
	Kind     string
	Endpoint string
	Detail   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s %s: %s", e.Endpoint, e.Kind, e.Detail)
}

// GenerateResult is a successful generation from one backend.
type GenerateResult struct {
	Text      string
	Tokens    int
	LatencyMs int64
}

// GenerateParams are the effective request parameters after defaults
// have been applied.
type GenerateParams struct {
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// Defaults applied when the caller leaves options unset.
const (
	DefaultModel       = "mistral"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
)

// BackendClient talks to a single LLM serving endpoint. One instance is
// created per attempt so the endpoint can come straight from config.
type BackendClient struct {
	endpoint       string
	generateClient *http.Client
	healthClient   *http.Client
}

// NewBackendClient creates a client for one backend endpoint with
// distinct budgets for generation and health probes — generation is
// expected to be slow, probes are not.
func NewBackendClient(endpoint string, generateTimeout, healthTimeout time.Duration) *BackendClient {
	return &BackendClient{
		endpoint:       endpoint,
		generateClient: &http.Client{Timeout: generateTimeout},
		healthClient:   &http.Client{Timeout: healthTimeout},
	}
}

// Endpoint returns the base URL this client targets.
func (c *BackendClient) Endpoint() string {
	return c.endpoint
}

// HealthCheck performs a lightweight GET against the backend's health
// endpoint. Used by monitoring only — the prompt path never pre-checks
// health, it just calls Generate and treats any error as failure.
func (c *BackendClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/health", nil)
	if err != nil {
		return &BackendError{Kind: ErrKindUnreachable, Endpoint: c.endpoint, Detail: err.Error()}
	}

	resp, err := c.healthClient.Do(req)
	if err != nil {
		return c.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &BackendError{
			Kind:     ErrKindBadResponse,
			Endpoint: c.endpoint,
			Detail:   fmt.Sprintf("health returned %d: %s", resp.StatusCode, bytes.TrimSpace(body)),
		}
	}

	return nil
}

// generateRequest is the wire format of the generation endpoint.
type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	System      string  `json:"system"`
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// generateResponse covers both token-count field spellings seen in the
// wild (Ollama reports eval_count, others report tokens).
type generateResponse struct {
	Response  string `json:"response"`
	EvalCount int    `json:"eval_count"`
	Tokens    int    `json:"tokens"`
}

// Generate sends one prompt to the backend and returns the generated
// text. Every failure surfaces as a *BackendError so the router can
// decide whether fallback is worthwhile.
func (c *BackendClient) Generate(ctx context.Context, prompt string, params GenerateParams) (*GenerateResult, error) {
	start := time.Now()

	payload := generateRequest{
		Model:       params.Model,
		Prompt:      prompt,
		System:      params.SystemPrompt,
		Stream:      false,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	}
	if payload.Model == "" {
		payload.Model = DefaultModel
	}
	if payload.Temperature == 0 {
		payload.Temperature = DefaultTemperature
	}
	if payload.MaxTokens == 0 {
		payload.MaxTokens = DefaultMaxTokens
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &BackendError{Kind: ErrKindBadResponse, Endpoint: c.endpoint, Detail: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, &BackendError{Kind: ErrKindUnreachable, Endpoint: c.endpoint, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.generateClient.Do(req)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &BackendError{
			Kind:     ErrKindBadResponse,
			Endpoint: c.endpoint,
			Detail:   fmt.Sprintf("status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody)),
		}
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &BackendError{Kind: ErrKindBadResponse, Endpoint: c.endpoint, Detail: "unparseable body: " + err.Error()}
	}

	tokens := parsed.EvalCount
	if tokens == 0 {
		tokens = parsed.Tokens
	}

	return &GenerateResult{
		Text:      parsed.Response,
		Tokens:    tokens,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// transportError classifies a transport failure as timeout or
// unreachable.
func (c *BackendClient) transportError(err error) *BackendError {
	kind := ErrKindUnreachable
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = ErrKindTimeout
	} else if errors.Is(err, context.DeadlineExceeded) {
		kind = ErrKindTimeout
	}
	return &BackendError{Kind: kind, Endpoint: c.endpoint, Detail: err.Error()}
}
