package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"llmgate/internal/database"
	"llmgate/internal/models"
)

// MetricsService accumulates per-day usage counters. Updates are
// best-effort: a failed write is logged and never aborts the prompt
// that triggered it.
type MetricsService struct {
	db  *database.DB
	now func() time.Time
}

// NewMetricsService creates a new metrics service.
func NewMetricsService(db *database.DB) *MetricsService {
	return &MetricsService{db: db, now: time.Now}
}

// Record finds or creates today's row and folds one call into it. The
// whole read-modify-write happens inside a single UPSERT statement so
// concurrent requests cannot lose updates; the running average uses the
// incremental rule avg += (latency - avg) / newTotal.
func (s *MetricsService) Record(ctx context.Context, source string, success bool, tokens int, latencyMs int64) {
	date := s.now().Format("2006-01-02")

	successInc, failedInc := 1, 0
	if !success {
		successInc, failedInc = 0, 1
	}
	// source names the backend that handled the attempt; callers resolve
	// fallback-served prompts to the backend that answered before
	// recording, so the daily split stays honest.
	localInc, cloudInc := 0, 1
	if source == models.SourceLocal {
		localInc, cloudInc = 1, 0
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_metrics (
			date, total_requests, total_tokens, successful_requests, failed_requests,
			local_requests, cloud_requests, avg_response_time_ms, updated_at
		) VALUES (?, 1, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(date) DO UPDATE SET
			total_requests = total_requests + 1,
			total_tokens = total_tokens + excluded.total_tokens,
			successful_requests = successful_requests + excluded.successful_requests,
			failed_requests = failed_requests + excluded.failed_requests,
			local_requests = local_requests + excluded.local_requests,
			cloud_requests = cloud_requests + excluded.cloud_requests,
			avg_response_time_ms = avg_response_time_ms
				+ (excluded.avg_response_time_ms - avg_response_time_ms) / (total_requests + 1),
			updated_at = CURRENT_TIMESTAMP
	`, date, tokens, successInc, failedInc, localInc, cloudInc, float64(latencyMs))
	if err != nil {
		log.Printf("⚠️  [METRICS] Failed to record daily metrics: %v", err)
	}
}

const metricsColumns = `id, date, total_requests, total_tokens, successful_requests, failed_requests, local_requests, cloud_requests, avg_response_time_ms, updated_at`

// Today returns the current day's snapshot, or a zero row when no call
// has been recorded yet.
func (s *MetricsService) Today(ctx context.Context) (*models.DailyMetrics, error) {
	date := s.now().Format("2006-01-02")

	rows, err := s.Range(ctx, date, date)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &models.DailyMetrics{Date: date}, nil
	}
	return &rows[0], nil
}

// Range returns daily rows between from and to inclusive (YYYY-MM-DD),
// newest first.
func (s *MetricsService) Range(ctx context.Context, from, to string) ([]models.DailyMetrics, error) {
	if to == "" {
		to = s.now().Format("2006-01-02")
	}
	if from == "" {
		from = s.now().AddDate(0, 0, -30).Format("2006-01-02")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+metricsColumns+`
		FROM daily_metrics
		WHERE date >= ? AND date <= ?
		ORDER BY date DESC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily metrics: %w", err)
	}
	defer rows.Close()

	var result []models.DailyMetrics
	for rows.Next() {
		var m models.DailyMetrics
		if err := rows.Scan(&m.ID, &m.Date, &m.TotalRequests, &m.TotalTokens,
			&m.SuccessfulRequests, &m.FailedRequests, &m.LocalRequests,
			&m.CloudRequests, &m.AvgResponseTimeMs, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan daily metrics: %w", err)
		}
		result = append(result, m)
	}

	return result, rows.Err()
}
