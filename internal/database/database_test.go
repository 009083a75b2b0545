package database

import "testing"

func TestNewAndInitialize(t *testing.T) {
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// Initialize is idempotent so restarts never fail on existing tables.
	if err := db.Initialize(); err != nil {
		t.Fatalf("Second Initialize failed: %v", err)
	}

	for _, table := range []string{"system_config", "llm_logs", "daily_metrics"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not created: %v", table, err)
		}
	}
}

func TestNewInvalidPath(t *testing.T) {
	if _, err := New("/nonexistent-dir/sub/llmgate.db"); err == nil {
		t.Error("Expected error for unwritable path")
	}
}
