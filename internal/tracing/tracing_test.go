package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
		enabled bool
	}{
		{name: "disabled", cfg: Config{}},
		{name: "missing endpoint", cfg: Config{Enabled: true}, wantErr: "endpoint not configured"},
		{name: "plaintext", cfg: Config{Enabled: true, Endpoint: "localhost:4317"}, enabled: true},
		{name: "tls insecure", cfg: Config{Enabled: true, Endpoint: "localhost:4317", TLSInsecure: true}, enabled: true},
		{name: "missing ca", cfg: Config{Enabled: true, Endpoint: "localhost:4317", TLSCAPath: "/nonexistent/ca.crt"}, wantErr: "failed to read CA certificate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg, "test")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, p.Enabled())
			assert.NotNil(t, p.Tracer("medidesk/test"))
			require.NoError(t, p.Start(context.Background()))
			assert.Equal(t, "tracing", p.Name())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_ = p.Stop(ctx)
		})
	}
}

func TestNewProvider_InvalidCA(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.crt")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))

	_, err := NewProvider(Config{Enabled: true, Endpoint: "localhost:4317", TLSCAPath: path}, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no certificates found")
}
