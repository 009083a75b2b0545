package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBackends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backends.yaml")
	content := `mode: cloud
local_endpoint: http://127.0.0.1:8000
cloud_endpoint: https://api.example.com
system_prompt: "You are a helpful assistant."
logs_enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	bf, err := LoadBackends(path)
	if err != nil {
		t.Fatalf("LoadBackends failed: %v", err)
	}

	if bf.Mode != "cloud" {
		t.Errorf("Expected cloud mode, got %q", bf.Mode)
	}
	if bf.LocalEndpoint != "http://127.0.0.1:8000" {
		t.Errorf("Unexpected local endpoint: %q", bf.LocalEndpoint)
	}
	if bf.CloudEndpoint != "https://api.example.com" {
		t.Errorf("Unexpected cloud endpoint: %q", bf.CloudEndpoint)
	}
	if bf.LogsEnabled == nil || *bf.LogsEnabled {
		t.Errorf("Expected logs_enabled false, got %v", bf.LogsEnabled)
	}
}

func TestLoadBackendsPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backends.yaml")
	if err := os.WriteFile(path, []byte("local_endpoint: http://localhost:8000\n"), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	bf, err := LoadBackends(path)
	if err != nil {
		t.Fatalf("LoadBackends failed: %v", err)
	}
	if bf.LogsEnabled != nil {
		t.Error("Unset logs_enabled must stay nil so seeding leaves it untouched")
	}
	if bf.Mode != "" {
		t.Errorf("Unset mode should be empty, got %q", bf.Mode)
	}
}

func TestLoadBackendsMissingFile(t *testing.T) {
	if _, err := LoadBackends(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadBackendsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backends.yaml")
	if err := os.WriteFile(path, []byte("mode: [unclosed"), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := LoadBackends(path); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	os.Unsetenv("PORT")
	os.Unsetenv("CONFIG_CACHE_TTL")

	cfg := Load()
	if cfg.Port != "3001" {
		t.Errorf("Expected default port 3001, got %q", cfg.Port)
	}
	if cfg.ConfigCacheTTL.Seconds() != 30 {
		t.Errorf("Expected default 30s cache TTL, got %v", cfg.ConfigCacheTTL)
	}
	if cfg.PromptRatePerMinute != 60 {
		t.Errorf("Expected default prompt rate 60, got %d", cfg.PromptRatePerMinute)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("CONFIG_CACHE_TTL", "10s")
	t.Setenv("PROMPT_RATE_PER_MINUTE", "5")

	cfg := Load()
	if cfg.Port != "9999" {
		t.Errorf("Expected overridden port, got %q", cfg.Port)
	}
	if cfg.ConfigCacheTTL.Seconds() != 10 {
		t.Errorf("Expected 10s cache TTL, got %v", cfg.ConfigCacheTTL)
	}
	if cfg.PromptRatePerMinute != 5 {
		t.Errorf("Expected prompt rate 5, got %d", cfg.PromptRatePerMinute)
	}
}
