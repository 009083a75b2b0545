package services

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"llmgate/internal/models"
)

func TestMetricsRecordRunningAverage(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMetricsService(db)

	ctx := context.Background()
	for _, latency := range []int64{100, 200, 300} {
		svc.Record(ctx, models.SourceLocal, true, 10, latency)
	}

	today, err := svc.Today(ctx)
	if err != nil {
		t.Fatalf("Today failed: %v", err)
	}

	if today.TotalRequests != 3 {
		t.Errorf("Expected 3 requests, got %d", today.TotalRequests)
	}
	if math.Abs(today.AvgResponseTimeMs-200) > 0.001 {
		t.Errorf("Expected running average 200, got %f", today.AvgResponseTimeMs)
	}
	if today.TotalTokens != 30 {
		t.Errorf("Expected 30 tokens, got %d", today.TotalTokens)
	}
}

func TestMetricsRecordCounters(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMetricsService(db)

	ctx := context.Background()
	svc.Record(ctx, models.SourceLocal, true, 5, 100)
	svc.Record(ctx, models.SourceCloud, true, 5, 100)
	svc.Record(ctx, models.SourceCloud, true, 5, 100)
	svc.Record(ctx, models.SourceLocal, false, 0, 50)

	today, err := svc.Today(ctx)
	if err != nil {
		t.Fatalf("Today failed: %v", err)
	}

	if today.TotalRequests != 4 {
		t.Errorf("Expected 4 total requests, got %d", today.TotalRequests)
	}
	if today.SuccessfulRequests+today.FailedRequests != today.TotalRequests {
		t.Errorf("Success %d + failed %d != total %d",
			today.SuccessfulRequests, today.FailedRequests, today.TotalRequests)
	}
	if today.LocalRequests+today.CloudRequests != today.TotalRequests {
		t.Errorf("Local %d + cloud %d != total %d",
			today.LocalRequests, today.CloudRequests, today.TotalRequests)
	}
	if today.SuccessfulRequests != 3 || today.FailedRequests != 1 {
		t.Errorf("Expected 3 successful / 1 failed, got %d / %d",
			today.SuccessfulRequests, today.FailedRequests)
	}
	if today.LocalRequests != 2 || today.CloudRequests != 2 {
		t.Errorf("Expected 2 local / 2 cloud, got %d / %d",
			today.LocalRequests, today.CloudRequests)
	}
}

func TestMetricsRecordConcurrent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMetricsService(db)
	ctx := context.Background()

	// The whole fold is a single UPSERT, so parallel calls for the same
	// day must not lose updates.
	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		source := models.SourceLocal
		if i%2 == 1 {
			source = models.SourceCloud
		}
		success := i%4 != 0

		wg.Add(1)
		go func(source string, success bool) {
			defer wg.Done()
			svc.Record(ctx, source, success, 1, 100)
		}(source, success)
	}
	wg.Wait()

	today, err := svc.Today(ctx)
	if err != nil {
		t.Fatalf("Today failed: %v", err)
	}

	if today.TotalRequests != n {
		t.Errorf("Expected %d total requests, got %d", n, today.TotalRequests)
	}
	if today.SuccessfulRequests+today.FailedRequests != today.TotalRequests {
		t.Errorf("Success %d + failed %d != total %d",
			today.SuccessfulRequests, today.FailedRequests, today.TotalRequests)
	}
	if today.LocalRequests+today.CloudRequests != today.TotalRequests {
		t.Errorf("Local %d + cloud %d != total %d",
			today.LocalRequests, today.CloudRequests, today.TotalRequests)
	}
	if today.LocalRequests != n/2 || today.CloudRequests != n/2 {
		t.Errorf("Expected %d local / %d cloud, got %d / %d",
			n/2, n/2, today.LocalRequests, today.CloudRequests)
	}
	if today.TotalTokens != n {
		t.Errorf("Expected %d tokens, got %d", n, today.TotalTokens)
	}
}

func TestMetricsTodayEmpty(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMetricsService(db)

	today, err := svc.Today(context.Background())
	if err != nil {
		t.Fatalf("Today failed: %v", err)
	}
	if today.TotalRequests != 0 {
		t.Errorf("Expected zero row, got %+v", today)
	}
	if today.Date == "" {
		t.Error("Zero row should still carry today's date")
	}
}

func TestMetricsRangeNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMetricsService(db)
	ctx := context.Background()

	day := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		d := day.AddDate(0, 0, i)
		svc.now = func() time.Time { return d }
		svc.Record(ctx, models.SourceLocal, true, 1, 100)
	}

	rows, err := svc.Range(ctx, "2026-08-28", "2026-08-30")
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[0].Date != "2026-08-30" || rows[2].Date != "2026-08-28" {
		t.Errorf("Expected newest first, got %s .. %s", rows[0].Date, rows[2].Date)
	}

	// A narrower window only returns the days inside it.
	rows, err = svc.Range(ctx, "2026-08-29", "2026-08-29")
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Date != "2026-08-29" {
		t.Errorf("Expected single day 2026-08-29, got %+v", rows)
	}
}
