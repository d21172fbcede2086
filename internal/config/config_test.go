package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "DATABASE_URL", "JWT_SECRET", "WEB_PORT", "PORT",
		"ZOOM_CLIENT_ID", "ZOOM_CLIENT_SECRET", "ZOOM_REVOKE_URL", "REVOKE_TIMEOUT",
		"REDIS_URL", "CORS_ORIGINS", "SCOPE_REFERENCE_CLEANUP",
		"AUTH_RATE_LIMIT_RPS", "AUTH_RATE_LIMIT_BURST",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.WebPort)
	assert.Equal(t, "50051", cfg.GRPCPort)
	assert.Equal(t, "https://zoom.us/oauth/revoke", cfg.Zoom.RevokeURL)
	assert.Equal(t, 10*time.Second, cfg.Zoom.RevokeTimeout)
	assert.False(t, cfg.ScopeReferenceCleanup)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "integrations.yaml")
	yml := `
web_port: "9090"
jwt_secret: from-file
zoom:
  client_id: file-id
  client_secret: file-secret
  revoke_timeout: 3s
cors_origins: ["https://app.example.com"]
scope_reference_cleanup: true
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	clearEnv(t)
	t.Setenv("ZOOM_CLIENT_ID", "env-id")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.WebPort)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "env-id", cfg.Zoom.ClientID)
	assert.Equal(t, "file-secret", cfg.Zoom.ClientSecret)
	assert.Equal(t, 3*time.Second, cfg.Zoom.RevokeTimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.True(t, cfg.ScopeReferenceCleanup)
}

func TestLoadBadEnv(t *testing.T) {
	tests := []struct {
		key, val string
	}{
		{"REVOKE_TIMEOUT", "soon"},
		{"SCOPE_REFERENCE_CLEANUP", "maybe"},
		{"AUTH_RATE_LIMIT_RPS", "fast"},
		{"AUTH_RATE_LIMIT_BURST", "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.EqualError(t, cfg.Validate(), "JWT_SECRET is required")

	cfg.JWTSecret = "x"
	cfg.DatabaseURL = ""
	assert.EqualError(t, cfg.Validate(), "DATABASE_URL is required")

	cfg.DatabaseURL = "postgres://x"
	cfg.Zoom.RevokeTimeout = 0
	assert.Error(t, cfg.Validate())
}
