package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	url := strings.TrimSpace(cfg.Bridge.URL)
	if url == "" {
		return nil, fmt.Errorf("bridge.url must not be empty")
	}
	if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		return nil, fmt.Errorf("bridge.url must use ws:// or wss://")
	}
	if cfg.Bridge.ReconnectAttempts < 0 {
		return nil, fmt.Errorf("bridge.reconnect_attempts must be >= 0")
	}

	name := strings.ToLower(strings.TrimSpace(cfg.Provider.Name))
	if name == "" {
		return nil, fmt.Errorf("provider.name must not be empty")
	}
	if name != "openai" && name != "local" {
		return nil, fmt.Errorf("provider.name must be one of: openai, local")
	}
	if name == "local" && cfg.Provider.EnvFile != "" {
		warnings = append(warnings, Warning{
			Message: "provider.env_file is ignored when provider.name=local",
		})
	}

	return warnings, nil
}
