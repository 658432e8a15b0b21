package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvAppliesDefaults(t *testing.T) {
	t.Setenv("BREACHLEDGER_TOKEN_SECRET", strings.Repeat("s", 32))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Minute, cfg.Verification.CacheTTL)
	assert.Equal(t, "incident-events", cfg.Kafka.Topic)
	assert.Equal(t, 60, cfg.RateLimit.VerifyRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Empty(t, cfg.Database.URL)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
verification:
  token_secret: "`+strings.Repeat("f", 40)+`"
kafka:
  brokers: ["localhost:9092"]
organizations:
  - id: "8d0f5c36-6c57-4a6e-8a0e-0f6a1a4d6f11"
    name: "Acme GmbH"
`), 0o600))
	t.Setenv("BREACHLEDGER_VERIFY_CACHE_TTL", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Verification.CacheTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	require.Len(t, cfg.Organizations, 1)
	assert.Equal(t, "Acme GmbH", cfg.Organizations[0].Name)
}

func TestValidateRejectsShortTokenSecret(t *testing.T) {
	t.Setenv("BREACHLEDGER_TOKEN_SECRET", "short")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token_secret")
}

func TestValidateRejectsDevSigningKeyInProduction(t *testing.T) {
	t.Setenv("BREACHLEDGER_TOKEN_SECRET", strings.Repeat("s", 32))
	t.Setenv("BREACHLEDGER_ENV", "production")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "production")
}

func TestValidateRateLimit(t *testing.T) {
	t.Setenv("BREACHLEDGER_TOKEN_SECRET", strings.Repeat("s", 32))
	t.Setenv("BREACHLEDGER_RATELIMIT_WINDOW", "0s")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit")

	t.Setenv("BREACHLEDGER_RATELIMIT_DISABLED", "true")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.RateLimit.Disabled)
}
