package models

import "time"

// Request sources recorded in logs and metrics.
const (
	SourceLocal    = "local"
	SourceCloud    = "cloud"
	SourceFallback = "fallback"
)

// Call statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// PromptOptions carries optional per-request overrides for an LLM call.
type PromptOptions struct {
	RequesterID  *int    `json:"userId,omitempty"`
	Model        string  `json:"model,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"maxTokens,omitempty"`
	SystemPrompt string  `json:"systemPrompt,omitempty"` // overrides the configured base prompt
}

// PromptResult is what the router returns to the HTTP layer.
type PromptResult struct {
	Success        bool   `json:"success"`
	Text           string `json:"text,omitempty"`
	Source         string `json:"source"` // "local", "cloud" or "fallback"
	Tokens         int    `json:"tokens,omitempty"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
	Error          string `json:"error,omitempty"`
}

// CallRecord is one immutable audit entry per attempted backend call.
type CallRecord struct {
	ID             string    `json:"id"` // uuid
	Prompt         string    `json:"prompt"`
	Response       string    `json:"response,omitempty"`
	Source         string    `json:"source"`
	RequesterID    *int      `json:"user_id,omitempty"`
	TokensUsed     int       `json:"tokens_used"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	Status         string    `json:"status"` // "success" or "error"
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
