package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"llmgate/internal/logging"
	"llmgate/internal/models"

	"github.com/google/uuid"
)

// ErrEmptyPrompt is returned before any backend call when the prompt is
// missing. It produces no log records and no metrics.
var ErrEmptyPrompt = errors.New("prompt must not be empty")

// AllBackendsError reports that the primary and the fallback backend
// both failed. Both underlying errors are preserved for diagnosis.
type AllBackendsError struct {
	Primary  error
	Fallback error
}

func (e *AllBackendsError) Error() string {
	return fmt.Sprintf("all backends unavailable: primary: %v; fallback: %v", e.Primary, e.Fallback)
}

// backendCaller is the slice of BackendClient the router needs. Tests
// inject fakes through the client factory.
type backendCaller interface {
	Endpoint() string
	Generate(ctx context.Context, prompt string, params GenerateParams) (*GenerateResult, error)
}

// LLMService routes prompts to the configured primary backend and
// falls back to the alternate one when the primary fails. Each backend
// is attempted at most once per prompt.
type LLMService struct {
	configService *ConfigService
	callLogger    *CallLogger
	metricsStore  *MetricsService
	metrics       *Metrics

	generateTimeout time.Duration
	healthTimeout   time.Duration

	newClient func(endpoint string) backendCaller
}

// NewLLMService creates a new LLM routing service.
func NewLLMService(configService *ConfigService, callLogger *CallLogger, metricsStore *MetricsService, metrics *Metrics, generateTimeout, healthTimeout time.Duration) *LLMService {
	s := &LLMService{
		configService:   configService,
		callLogger:      callLogger,
		metricsStore:    metricsStore,
		metrics:         metrics,
		generateTimeout: generateTimeout,
		healthTimeout:   healthTimeout,
	}
	s.newClient = func(endpoint string) backendCaller {
		return NewBackendClient(endpoint, s.generateTimeout, s.healthTimeout)
	}
	return s
}

// SendPrompt routes one prompt. On primary failure the alternate
// backend is tried once; when that succeeds the active endpoint is
// persisted so subsequent requests skip the known-bad primary until an
// operator switches modes (sticky fallback).
func (s *LLMService) SendPrompt(ctx context.Context, prompt string, opts models.PromptOptions) (*models.PromptResult, error) {
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	requestID := uuid.NewString()
	start := time.Now()

	cfg, err := s.configService.GetConfig(ctx, false)
	if err != nil {
		return nil, err
	}

	primaryEndpoint := cfg.PrimaryEndpoint()
	// The alternate is whichever configured endpoint the primary is not.
	// Resolved against the endpoint, not the mode, so a sticky fallback
	// never retries the same backend twice.
	alternateEndpoint := cfg.CloudEndpoint
	if primaryEndpoint == cfg.CloudEndpoint {
		alternateEndpoint = cfg.LocalEndpoint
	}

	params := GenerateParams{
		Model:        opts.Model,
		SystemPrompt: opts.SystemPrompt,
		Temperature:  opts.Temperature,
		MaxTokens:    opts.MaxTokens,
	}
	if params.SystemPrompt == "" {
		params.SystemPrompt = cfg.SystemPrompt
	}

	// Primary attempt. The source reflects the backend actually tried,
	// which after a sticky fallback may differ from the active mode.
	primarySource := models.SourceLocal
	if primaryEndpoint == cfg.CloudEndpoint {
		primarySource = models.SourceCloud
	}
	result, primaryErr := s.newClient(primaryEndpoint).Generate(ctx, prompt, params)
	if primaryErr == nil {
		logging.WithRequest(requestID, primarySource).Info("prompt served",
			"tokens", result.Tokens, "latency_ms", result.LatencyMs)
		return s.finish(ctx, cfg.LogsEnabled, prompt, opts, primarySource, primarySource, result), nil
	}

	s.recordFailure(ctx, cfg.LogsEnabled, prompt, opts, primarySource, primaryErr, time.Since(start))
	log.Printf("⚠️  [LLM] Primary backend (%s) failed, trying fallback: %v", primarySource, primaryErr)

	// Single fallback attempt against the alternate backend.
	result, fallbackErr := s.newClient(alternateEndpoint).Generate(ctx, prompt, params)
	if fallbackErr != nil {
		s.recordFailure(ctx, cfg.LogsEnabled, prompt, opts, models.SourceFallback, fallbackErr, time.Since(start))
		s.metricsStore.Record(ctx, primarySource, false, 0, time.Since(start).Milliseconds())

		finalErr := &AllBackendsError{Primary: primaryErr, Fallback: fallbackErr}
		logging.WithRequest(requestID, models.SourceFallback).Error("all backends failed",
			"primary_error", primaryErr.Error(), "fallback_error", fallbackErr.Error())
		return &models.PromptResult{
			Success:        false,
			Source:         models.SourceFallback,
			ResponseTimeMs: time.Since(start).Milliseconds(),
			Error:          finalErr.Error(),
		}, finalErr
	}

	// Persist the working endpoint so the next request goes straight
	// there. The mode itself is only changed by an explicit switch.
	if err := s.configService.SetActiveEndpoint(ctx, alternateEndpoint); err != nil {
		log.Printf("⚠️  [LLM] Failed to persist fallback endpoint: %v", err)
	}
	if s.metrics != nil {
		s.metrics.RecordFallback()
	}

	logging.WithRequest(requestID, models.SourceFallback).Info("prompt served by fallback",
		"endpoint", alternateEndpoint, "tokens", result.Tokens, "latency_ms", result.LatencyMs)

	// The audit record says "fallback", the daily split is credited to
	// the backend that actually answered.
	fallbackSource := models.SourceCloud
	if alternateEndpoint == cfg.LocalEndpoint {
		fallbackSource = models.SourceLocal
	}
	return s.finish(ctx, cfg.LogsEnabled, prompt, opts, models.SourceFallback, fallbackSource, result), nil
}

// finish logs and counts a successful generation and builds the result.
// source tags the audit trail and may be "fallback"; servedBy is the
// backend that produced the answer and drives the daily local/cloud
// split.
func (s *LLMService) finish(ctx context.Context, logsEnabled bool, prompt string, opts models.PromptOptions, source, servedBy string, result *GenerateResult) *models.PromptResult {
	if logsEnabled {
		s.callLogger.Log(ctx, &models.CallRecord{
			Prompt:         prompt,
			Response:       result.Text,
			Source:         source,
			RequesterID:    opts.RequesterID,
			TokensUsed:     result.Tokens,
			ResponseTimeMs: result.LatencyMs,
			Status:         models.StatusSuccess,
		})
	}

	s.metricsStore.Record(ctx, servedBy, true, result.Tokens, result.LatencyMs)
	if s.metrics != nil {
		s.metrics.RecordPrompt(source, models.StatusSuccess, float64(result.LatencyMs)/1000, result.Tokens)
	}

	return &models.PromptResult{
		Success:        true,
		Text:           result.Text,
		Source:         source,
		Tokens:         result.Tokens,
		ResponseTimeMs: result.LatencyMs,
	}
}

// recordFailure writes the audit record and counters for one failed
// backend attempt. Daily metrics are folded in once per prompt by the
// caller, not per attempt.
func (s *LLMService) recordFailure(ctx context.Context, logsEnabled bool, prompt string, opts models.PromptOptions, source string, attemptErr error, elapsed time.Duration) {
	if logsEnabled {
		s.callLogger.Log(ctx, &models.CallRecord{
			Prompt:         prompt,
			Source:         source,
			RequesterID:    opts.RequesterID,
			ResponseTimeMs: elapsed.Milliseconds(),
			Status:         models.StatusError,
			ErrorMessage:   attemptErr.Error(),
		})
	}

	if s.metrics != nil {
		var be *BackendError
		if errors.As(attemptErr, &be) {
			s.metrics.RecordBackendError(be.Kind)
		}
		s.metrics.RecordPrompt(source, models.StatusError, elapsed.Seconds(), 0)
	}
}

// TestConnection probes a single backend by mode. Used by the system
// API, never by the prompt path.
func (s *LLMService) TestConnection(ctx context.Context, mode string) (*models.BackendStatus, error) {
	if !models.ValidMode(mode) {
		return nil, fmt.Errorf("invalid execution mode: %q", mode)
	}

	cfg, err := s.configService.GetConfig(ctx, false)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.EndpointForMode(mode)
	status := &models.BackendStatus{Mode: mode, Endpoint: endpoint, CheckedAt: time.Now()}
	if endpoint == "" {
		status.Error = "endpoint not configured"
		return status, nil
	}

	start := time.Now()
	client := NewBackendClient(endpoint, s.generateTimeout, s.healthTimeout)
	if err := client.HealthCheck(ctx); err != nil {
		status.Error = err.Error()
	} else {
		status.Healthy = true
	}
	status.LatencyMs = time.Since(start).Milliseconds()

	return status, nil
}
