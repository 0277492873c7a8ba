package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KEYLINE_CONFIG_PATH", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.APIArtifactListLimitMax)
	assert.Equal(t, 1209600, cfg.UserTokenTTL)
	assert.Equal(t, 0, cfg.MachineTokenTTL)
	assert.Equal(t, "https://pypi.org/simple", cfg.FallbackIndexURL)
	assert.Equal(t, 5, cfg.WebhookDeliveryAttempts)
	assert.True(t, cfg.AuditEnabled)
	assert.Equal(t, "default", cfg.Source("fallback_index_url"))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KEYLINE_CONFIG_PATH", dir)

	data := []byte("fallback_index_url: https://mirror.example.com/simple\napi_artifact_list_limit_max: 250\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://mirror.example.com/simple", cfg.FallbackIndexURL)
	assert.Equal(t, "file", cfg.Source("fallback_index_url"))
	assert.Equal(t, 250, cfg.APIArtifactListLimitMax)
	// Untouched attributes keep their defaults
	assert.Equal(t, 5, cfg.WebhookDeliveryAttempts)
	assert.Equal(t, "default", cfg.Source("webhook_delivery_attempts"))
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KEYLINE_CONFIG_PATH", dir)
	t.Setenv("KEYLINE_FALLBACK_INDEX_URL", "https://env.example.com/simple")
	t.Setenv("KEYLINE_AUDIT_ENABLED", "false")

	data := []byte("fallback_index_url: https://file.example.com/simple\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com/simple", cfg.FallbackIndexURL)
	assert.Equal(t, "environment", cfg.Source("fallback_index_url"))
	assert.False(t, cfg.AuditEnabled)
}

func TestLoadBadYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KEYLINE_CONFIG_PATH", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{not yaml"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*KeylineConfig)
		wantErr string
	}{
		{"valid defaults", func(c *KeylineConfig) {}, ""},
		{"valid CIDR proxy", func(c *KeylineConfig) { c.TrustedProxies = []string{"10.0.0.0/8"} }, ""},
		{"valid plain IP proxy", func(c *KeylineConfig) { c.TrustedProxies = []string{"10.1.2.3"} }, ""},
		{"bad proxy", func(c *KeylineConfig) { c.TrustedProxies = []string{"not-an-ip"} }, "trusted_proxies"},
		{"bad limit", func(c *KeylineConfig) { c.APIArtifactListLimitMax = 0 }, "api_artifact_list_limit_max"},
		{"bad attempts", func(c *KeylineConfig) { c.WebhookDeliveryAttempts = -1 }, "webhook_delivery_attempts"},
		{"bad fallback URL", func(c *KeylineConfig) { c.FallbackIndexURL = "not a url" }, "fallback_index_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIsTrustedProxy(t *testing.T) {
	cfg := newDefault()
	cfg.TrustedProxies = []string{"10.0.0.0/8", "192.168.1.5"}

	assert.True(t, cfg.IsTrustedProxy("10.1.2.3"))
	assert.True(t, cfg.IsTrustedProxy("192.168.1.5"))
	assert.False(t, cfg.IsTrustedProxy("172.16.0.1"))
	assert.False(t, cfg.IsTrustedProxy("garbage"))
}
