// Package config loads medidesk settings from YAML over built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/moolen/medidesk/internal/delegation"
	"github.com/moolen/medidesk/internal/logging"
)

// Backend providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderScenario  = "scenario"
)

// Environment variables consulted when no api_key is configured.
const (
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// Config holds all configuration for the application
type Config struct {
	// LogLevel is the default logging level (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// PackageLogLevels overrides LogLevel per logger name ("delegation", "session.*").
	PackageLogLevels map[string]string `yaml:"package_log_levels"`

	Backend BackendConfig `yaml:"backend"`
	Session SessionConfig `yaml:"session"`
	Server  ServerConfig  `yaml:"server"`
	Tracing TracingConfig `yaml:"tracing"`
}

// BackendConfig selects the coordinator model.
type BackendConfig struct {
	// Provider is gemini, anthropic or scenario.
	Provider string `yaml:"provider"`
	// Model defaults per provider when empty.
	Model string `yaml:"model"`
	// APIKey falls back to the provider's environment variable.
	APIKey string `yaml:"api_key"`
	// ScenarioPath is the YAML script for the scenario provider. Empty uses
	// the built-in triage scenario.
	ScenarioPath string `yaml:"scenario_path"`
}

// SessionConfig tunes conversation behavior.
type SessionConfig struct {
	// ResponseDelay is how long a specialist appears to work.
	ResponseDelay time.Duration `yaml:"response_delay"`
	// AuditLog is a JSONL file receiving session events. Empty disables it.
	AuditLog string `yaml:"audit_log"`
}

// ServerConfig configures `medidesk serve`.
type ServerConfig struct {
	Port int `yaml:"port"`
	// MaxSessions bounds the session store. The least recently used session
	// is closed when it is full.
	MaxSessions     int           `yaml:"max_sessions"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	TLSCAPath   string `yaml:"tls_ca_path"`
	TLSInsecure bool   `yaml:"tls_insecure"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		LogLevel: "info",
		Backend: BackendConfig{
			Provider: ProviderGemini,
		},
		Session: SessionConfig{
			ResponseDelay: 1500 * time.Millisecond,
		},
		Server: ServerConfig{
			Port:            8080,
			MaxSessions:     256,
			ShutdownTimeout: 30 * time.Second,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if err := logging.ValidateLevel(c.LogLevel); err != nil {
		return NewConfigError(fmt.Sprintf("log_level: %v", err))
	}
	for pkg, lvl := range c.PackageLogLevels {
		if err := logging.ValidateLevel(lvl); err != nil {
			return NewConfigError(fmt.Sprintf("package_log_levels[%s]: %v", pkg, err))
		}
	}

	switch c.Backend.Provider {
	case ProviderGemini, ProviderAnthropic, ProviderScenario:
	default:
		return NewConfigError(fmt.Sprintf("backend.provider must be one of %s, %s, %s; got %q",
			ProviderGemini, ProviderAnthropic, ProviderScenario, c.Backend.Provider))
	}

	if c.Session.ResponseDelay < 0 {
		return NewConfigError("session.response_delay must not be negative")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return NewConfigError("server.port must be between 1 and 65535")
	}
	if c.Server.MaxSessions < 1 {
		return NewConfigError("server.max_sessions must be at least 1")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return NewConfigError("server.shutdown_timeout must be positive")
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return NewConfigError("tracing.endpoint must be set when tracing is enabled")
	}
	return nil
}

// EffectiveModel returns the configured model or the provider default.
func (c *Config) EffectiveModel() string {
	if c.Backend.Model != "" {
		return c.Backend.Model
	}
	switch c.Backend.Provider {
	case ProviderAnthropic:
		return delegation.DefaultAnthropicModel
	case ProviderScenario:
		return "scenario"
	default:
		return delegation.DefaultModel
	}
}

// APIKey returns the configured key, or the provider's environment variable
// read through getenv. The scenario provider needs no key and returns
// "offline" so sessions can be unlocked.
func (c *Config) APIKey(getenv func(string) string) string {
	if key := strings.TrimSpace(c.Backend.APIKey); key != "" {
		return key
	}
	switch c.Backend.Provider {
	case ProviderGemini:
		return strings.TrimSpace(getenv(EnvGeminiAPIKey))
	case ProviderAnthropic:
		return strings.TrimSpace(getenv(EnvAnthropicAPIKey))
	default:
		return "offline"
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return e.message
}
