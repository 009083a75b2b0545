package models

import "time"

// DailyMetrics aggregates LLM usage for one calendar day. A row is
// created lazily on the first call of a day and updated in place after
// every subsequent call.
//
// Invariants after every update:
//
//	TotalRequests == SuccessfulRequests + FailedRequests
//	TotalRequests == LocalRequests + CloudRequests
type DailyMetrics struct {
	ID                 int       `json:"id"`
	Date               string    `json:"date"` // YYYY-MM-DD, unique
	TotalRequests      int       `json:"total_requests"`
	TotalTokens        int       `json:"total_tokens"`
	SuccessfulRequests int       `json:"successful_requests"`
	FailedRequests     int       `json:"failed_requests"`
	LocalRequests      int       `json:"local_requests"`
	CloudRequests      int       `json:"cloud_requests"`
	AvgResponseTimeMs  float64   `json:"avg_response_time_ms"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// BackendStatus is the monitoring snapshot for one backend endpoint.
type BackendStatus struct {
	Mode      string    `json:"mode"` // "local" or "cloud"
	Endpoint  string    `json:"endpoint"`
	Healthy   bool      `json:"healthy"`
	LatencyMs int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
