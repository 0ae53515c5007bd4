package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "medidesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ProviderGemini, cfg.Backend.Provider)
	assert.Equal(t, 1500*time.Millisecond, cfg.Session.ResponseDelay)
	assert.Equal(t, "gemini-2.5-flash", cfg.EffectiveModel())
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
package_log_levels:
  delegation: warn
backend:
  provider: anthropic
  api_key: sk-test
session:
  response_delay: 250ms
  audit_log: /tmp/audit.jsonl
server:
  port: 9090
tracing:
  enabled: true
  endpoint: otel:4317
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, map[string]string{"delegation": "warn"}, cfg.PackageLogLevels)
	assert.Equal(t, ProviderAnthropic, cfg.Backend.Provider)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.EffectiveModel())
	assert.Equal(t, 250*time.Millisecond, cfg.Session.ResponseDelay)
	assert.Equal(t, "/tmp/audit.jsonl", cfg.Session.AuditLog)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Tracing.Enabled)

	// Untouched keys keep defaults.
	assert.Equal(t, 256, cfg.Server.MaxSessions)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "bad yaml", content: "backend: [", wantErr: "failed to load config"},
		{name: "bad provider", content: "backend:\n  provider: openai", wantErr: "backend.provider"},
		{name: "bad level", content: "log_level: loud", wantErr: "log_level"},
		{name: "bad package level", content: "package_log_levels:\n  session: loud", wantErr: "package_log_levels[session]"},
		{name: "negative delay", content: "session:\n  response_delay: -1s", wantErr: "response_delay"},
		{name: "bad duration", content: "session:\n  response_delay: soon", wantErr: "failed to parse config"},
		{name: "bad port", content: "server:\n  port: 70000", wantErr: "server.port"},
		{name: "no sessions", content: "server:\n  max_sessions: 0", wantErr: "max_sessions"},
		{name: "tracing without endpoint", content: "tracing:\n  enabled: true", wantErr: "tracing.endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ValidationErrorIsConfigError(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  port: 0"))
	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestAPIKey(t *testing.T) {
	env := map[string]string{
		EnvGeminiAPIKey:    " gem-key ",
		EnvAnthropicAPIKey: "ant-key",
	}
	getenv := func(k string) string { return env[k] }

	cfg := Defaults()
	assert.Equal(t, "gem-key", cfg.APIKey(getenv))

	cfg.Backend.Provider = ProviderAnthropic
	assert.Equal(t, "ant-key", cfg.APIKey(getenv))

	cfg.Backend.APIKey = "explicit"
	assert.Equal(t, "explicit", cfg.APIKey(getenv))

	cfg.Backend = BackendConfig{Provider: ProviderScenario}
	assert.Equal(t, "offline", cfg.APIKey(getenv))
	assert.Equal(t, "scenario", cfg.EffectiveModel())

	cfg.Backend = BackendConfig{Provider: ProviderGemini}
	assert.Empty(t, cfg.APIKey(func(string) string { return "" }))
}
