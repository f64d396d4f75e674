package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default values for Config.
const (
	DefaultMaxIterations         = 20
	DefaultIterationPauseSeconds = 3
	DefaultAgentCommand          = "claude"
)

// DefaultLimits returns limits with sensible default values.
func DefaultLimits() Limits {
	return Limits{
		MaxIterations:         DefaultMaxIterations,
		IterationPauseSeconds: DefaultIterationPauseSeconds,
	}
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Limits: DefaultLimits(),
		Agent: AgentConfig{
			Command: DefaultAgentCommand,
		},
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Load reads and parses .minder/config.yaml from the given base path.
// A missing file yields defaults; any field not set keeps its default.
func Load(basePath string) (*Config, error) {
	configPath := filepath.Join(basePath, ".minder", "config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that all config values are valid.
func Validate(cfg *Config) error {
	if cfg.Limits.MaxIterations <= 0 {
		return ValidationError{Field: "limits.max_iterations", Message: "must be positive"}
	}
	if cfg.Limits.IterationPauseSeconds < 0 {
		return ValidationError{Field: "limits.iteration_pause_seconds", Message: "must not be negative"}
	}
	if cfg.Agent.Command == "" {
		return ValidationError{Field: "agent.command", Message: "required field is empty"}
	}
	return nil
}
