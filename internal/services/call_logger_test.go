package services

import (
	"context"
	"testing"
	"time"

	"llmgate/internal/models"
)

func TestCallLoggerLogAndRecent(t *testing.T) {
	db := setupTestDB(t)
	logger := NewCallLogger(db)
	ctx := context.Background()

	userID := 7
	record := &models.CallRecord{
		Prompt:         "hello",
		Response:       "world",
		Source:         models.SourceLocal,
		RequesterID:    &userID,
		TokensUsed:     5,
		ResponseTimeMs: 120,
		Status:         models.StatusSuccess,
	}
	logger.Log(ctx, record)

	if record.ID == "" {
		t.Fatal("Log should assign an id")
	}

	records, err := logger.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	got := records[0]
	if got.ID != record.ID || got.Prompt != "hello" || got.Response != "world" {
		t.Errorf("Unexpected record: %+v", got)
	}
	if got.RequesterID == nil || *got.RequesterID != 7 {
		t.Errorf("Requester id not preserved: %+v", got.RequesterID)
	}
	if got.Status != models.StatusSuccess || got.TokensUsed != 5 {
		t.Errorf("Unexpected record fields: %+v", got)
	}
}

func TestCallLoggerRecentOrderAndLimit(t *testing.T) {
	db := setupTestDB(t)
	logger := NewCallLogger(db)
	ctx := context.Background()

	// Insert with explicit timestamps so the ordering is deterministic.
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := db.Exec(`
			INSERT INTO llm_logs (id, prompt, source, status, created_at)
			VALUES (?, ?, 'local', 'success', ?)
		`, string(rune('a'+i)), "p", base.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("Failed to insert record: %v", err)
		}
	}

	records, err := logger.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected limit of 3, got %d", len(records))
	}
	if records[0].ID != "e" || records[2].ID != "c" {
		t.Errorf("Expected newest first, got %s .. %s", records[0].ID, records[2].ID)
	}

	// Out-of-range limits fall back to the default.
	records, err = logger.Recent(ctx, -1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 5 {
		t.Errorf("Expected all 5 records under default limit, got %d", len(records))
	}
}

func TestCallLoggerPrune(t *testing.T) {
	db := setupTestDB(t)
	logger := NewCallLogger(db)
	ctx := context.Background()

	old := time.Now().Add(-40 * 24 * time.Hour)
	recent := time.Now().Add(-time.Hour)
	for i, ts := range []time.Time{old, old, recent} {
		_, err := db.Exec(`
			INSERT INTO llm_logs (id, prompt, source, status, created_at)
			VALUES (?, 'p', 'local', 'success', ?)
		`, string(rune('a'+i)), ts)
		if err != nil {
			t.Fatalf("Failed to insert record: %v", err)
		}
	}

	deleted, err := logger.Prune(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 pruned records, got %d", deleted)
	}

	records, err := logger.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 surviving record, got %d", len(records))
	}
}
