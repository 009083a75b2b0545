package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"llmgate/internal/database"
	"llmgate/internal/models"

	"github.com/google/uuid"
)

// CallLogger writes the append-only audit trail of LLM calls. Logging
// must never break the prompt path: every failure is caught here.
type CallLogger struct {
	db *database.DB
}

// NewCallLogger creates a new call logger.
func NewCallLogger(db *database.DB) *CallLogger {
	return &CallLogger{db: db}
}

// Log appends one record. The record id is assigned here so callers
// never have to care about identity.
func (l *CallLogger) Log(ctx context.Context, record *models.CallRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO llm_logs (id, prompt, response, source, user_id, tokens_used, response_time_ms, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.Prompt, record.Response, record.Source, nullableInt(record.RequesterID),
		record.TokensUsed, record.ResponseTimeMs, record.Status, record.ErrorMessage)
	if err != nil {
		log.Printf("⚠️  [CALL-LOG] Failed to write call record: %v", err)
	}
}

// Recent returns the newest records, newest first.
func (l *CallLogger) Recent(ctx context.Context, limit int) ([]models.CallRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, prompt, response, source, user_id, tokens_used, response_time_ms, status, error_message, created_at
		FROM llm_logs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query call records: %w", err)
	}
	defer rows.Close()

	var records []models.CallRecord
	for rows.Next() {
		var r models.CallRecord
		var response, errMsg sql.NullString
		var userID sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Prompt, &response, &r.Source, &userID,
			&r.TokensUsed, &r.ResponseTimeMs, &r.Status, &errMsg, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan call record: %w", err)
		}
		if response.Valid {
			r.Response = response.String
		}
		if errMsg.Valid {
			r.ErrorMessage = errMsg.String
		}
		if userID.Valid {
			v := int(userID.Int64)
			r.RequesterID = &v
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Prune deletes records older than the retention window and returns
// how many were removed.
func (l *CallLogger) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	res, err := l.db.ExecContext(ctx, `DELETE FROM llm_logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune call records: %w", err)
	}

	deleted, _ := res.RowsAffected()
	return deleted, nil
}
