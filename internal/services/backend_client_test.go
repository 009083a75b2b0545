package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBackendClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("Unexpected method %q", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewBackendClient(server.URL, time.Second, time.Second)
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}

func TestBackendClientHealthCheckBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewBackendClient(server.URL, time.Second, time.Second)
	err := client.HealthCheck(context.Background())

	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("Expected BackendError, got %v", err)
	}
	if be.Kind != ErrKindBadResponse {
		t.Errorf("Expected bad_response kind, got %q", be.Kind)
	}
}

func TestBackendClientGenerate(t *testing.T) {
	var received generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"response":   "generated text",
			"eval_count": 42,
		})
	}))
	defer server.Close()

	client := NewBackendClient(server.URL, time.Second, time.Second)
	result, err := client.Generate(context.Background(), "write a haiku", GenerateParams{
		SystemPrompt: "be terse",
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if result.Text != "generated text" {
		t.Errorf("Unexpected text: %q", result.Text)
	}
	if result.Tokens != 42 {
		t.Errorf("Expected 42 tokens, got %d", result.Tokens)
	}

	// Defaults fill the fields the caller left unset.
	if received.Model != DefaultModel {
		t.Errorf("Expected default model, got %q", received.Model)
	}
	if received.Temperature != DefaultTemperature {
		t.Errorf("Expected default temperature, got %f", received.Temperature)
	}
	if received.MaxTokens != DefaultMaxTokens {
		t.Errorf("Expected default max tokens, got %d", received.MaxTokens)
	}
	if received.System != "be terse" {
		t.Errorf("Expected system prompt passthrough, got %q", received.System)
	}
	if received.Stream {
		t.Error("Streaming must be disabled")
	}
}

func TestBackendClientGenerateTokensFallbackField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"response": "text",
			"tokens":   17,
		})
	}))
	defer server.Close()

	client := NewBackendClient(server.URL, time.Second, time.Second)
	result, err := client.Generate(context.Background(), "hi", GenerateParams{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Tokens != 17 {
		t.Errorf("Expected tokens field fallback, got %d", result.Tokens)
	}
}

func TestBackendClientGenerateErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		endpoint func(t *testing.T) (string, func())
		wantKind string
	}{
		{
			name: "http error status",
			endpoint: func(t *testing.T) (string, func()) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					http.Error(w, "model not loaded", http.StatusInternalServerError)
				}))
				return server.URL, server.Close
			},
			wantKind: ErrKindBadResponse,
		},
		{
			name: "unparseable body",
			endpoint: func(t *testing.T) (string, func()) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte("not json"))
				}))
				return server.URL, server.Close
			},
			wantKind: ErrKindBadResponse,
		},
		{
			name: "connection refused",
			endpoint: func(t *testing.T) (string, func()) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
				url := server.URL
				server.Close()
				return url, func() {}
			},
			wantKind: ErrKindUnreachable,
		},
		{
			name: "timeout",
			endpoint: func(t *testing.T) (string, func()) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					time.Sleep(200 * time.Millisecond)
				}))
				return server.URL, server.Close
			},
			wantKind: ErrKindTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, cleanup := tt.endpoint(t)
			defer cleanup()

			client := NewBackendClient(url, 50*time.Millisecond, 50*time.Millisecond)
			_, err := client.Generate(context.Background(), "hi", GenerateParams{})

			var be *BackendError
			if !errors.As(err, &be) {
				t.Fatalf("Expected BackendError, got %v", err)
			}
			if be.Kind != tt.wantKind {
				t.Errorf("Expected kind %q, got %q (%s)", tt.wantKind, be.Kind, be.Detail)
			}
			if be.Endpoint != url {
				t.Errorf("Error should carry the endpoint, got %q", be.Endpoint)
			}
		})
	}
}
