package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BackendsFile holds the first-boot defaults for the execution config.
// The file is optional; when present it seeds the system_config row and
// is re-applied on change (hot-reload).
type BackendsFile struct {
	Mode          string `yaml:"mode"` // "local" or "cloud"
	LocalEndpoint string `yaml:"local_endpoint"`
	CloudEndpoint string `yaml:"cloud_endpoint"`
	SystemPrompt  string `yaml:"system_prompt"`
	LogsEnabled   *bool  `yaml:"logs_enabled"`
}

// LoadBackends reads and parses the backends YAML file.
func LoadBackends(filePath string) (*BackendsFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read backends file: %w", err)
	}

	var bf BackendsFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("failed to parse backends YAML: %w", err)
	}

	return &bf, nil
}
