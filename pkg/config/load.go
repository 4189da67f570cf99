package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the default configuration path.
const EnvConfigPath = "FBUG_CONFIG"

// DefaultPath returns $FBUG_CONFIG, or config.yaml under the user config
// directory (e.g. $XDG_CONFIG_HOME/fbug/config.yaml).
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config dir: %w", err)
	}
	return filepath.Join(dir, "fbug", "config.yaml"), nil
}

// Load reads and validates a device configuration file.
func Load(path string) (*Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device config: %w", err)
	}
	dev, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return dev, nil
}

// Parse decodes a YAML device document, back-fills trigger endpoints from
// their transitions and validates the result.
func Parse(data []byte) (*Device, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse device config: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("failed to parse device config: empty document")
	}

	var dev Device
	if err := decode(raw, &dev); err != nil {
		return nil, fmt.Errorf("failed to decode device config: %w", err)
	}

	for i := range dev.Transitions {
		dev.Transitions[i].BackfillTriggers()
	}

	if err := Validate(&dev); err != nil {
		return nil, err
	}
	return &dev, nil
}
