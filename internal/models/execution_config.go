package models

import "time"

// Backend modes. The active mode selects which endpoint is primary.
const (
	ModeLocal = "local"
	ModeCloud = "cloud"
)

// ExecutionConfig is the singleton system configuration row. It decides
// which LLM backend serves prompts and carries the defaults applied to
// every request.
type ExecutionConfig struct {
	ID             int       `json:"id"`
	ActiveMode     string    `json:"active_mode"` // "local" or "cloud"
	LocalEndpoint  string    `json:"local_endpoint"`
	CloudEndpoint  string    `json:"cloud_endpoint"`
	ActiveEndpoint string    `json:"active_endpoint"` // updated on fallback, sticky until mode switch
	SystemPrompt   string    `json:"system_prompt"`
	LogsEnabled    bool      `json:"logs_enabled"`
	UpdatedBy      *int      `json:"updated_by,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PrimaryEndpoint resolves the endpoint that should be tried first.
// ActiveEndpoint takes precedence so a sticky fallback keeps routing
// around a known-bad primary until the next explicit mode switch.
func (c *ExecutionConfig) PrimaryEndpoint() string {
	if c.ActiveEndpoint != "" {
		return c.ActiveEndpoint
	}
	if c.ActiveMode == ModeCloud {
		return c.CloudEndpoint
	}
	return c.LocalEndpoint
}

// AlternateEndpoint resolves the fallback target for the current mode.
func (c *ExecutionConfig) AlternateEndpoint() string {
	if c.ActiveMode == ModeCloud {
		return c.LocalEndpoint
	}
	return c.CloudEndpoint
}

// EndpointForMode returns the configured endpoint for a mode.
func (c *ExecutionConfig) EndpointForMode(mode string) string {
	if mode == ModeCloud {
		return c.CloudEndpoint
	}
	return c.LocalEndpoint
}

// ConfigUpdate carries a partial configuration change. Nil fields are
// left untouched.
type ConfigUpdate struct {
	ActiveMode     *string `json:"active_mode,omitempty"`
	LocalEndpoint  *string `json:"local_endpoint,omitempty"`
	CloudEndpoint  *string `json:"cloud_endpoint,omitempty"`
	ActiveEndpoint *string `json:"active_endpoint,omitempty"`
	SystemPrompt   *string `json:"system_prompt,omitempty"`
	LogsEnabled    *bool   `json:"logs_enabled,omitempty"`
}

// ValidMode reports whether mode is one of the two supported backends.
func ValidMode(mode string) bool {
	return mode == ModeLocal || mode == ModeCloud
}
