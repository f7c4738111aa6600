// config_test.go - Defaults, file, env, and validation tests.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voile/internal/pricing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, int64(pricing.DefaultAdvanceFeeBps), cfg.Pricing.AdvanceFeeBps)
	assert.Equal(t, int64(pricing.DefaultAprBps), cfg.Pricing.DefaultAprBps)
	assert.Equal(t, int64(pricing.DefaultCooldownDays), cfg.Pricing.CooldownDays)
	assert.Equal(t, "chain.json", cfg.Chain.StatePath)
	assert.Equal(t, 10, cfg.Limits.RequestBurst)
	assert.Equal(t, 1, cfg.Limits.RequestsPerSecond)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
}

func TestLoadFromYAMLFile(t *testing.T) {
	content := []byte(`
server:
  host: "0.0.0.0"
  metrics_port: 9200
pricing:
  advance_fee_bps: 300
  default_apr_bps: 800
  cooldown_days: 7
chain:
  state_path: "/var/lib/voile/chain.json"
log:
  level: "debug"
  pretty: true
`)
	path := filepath.Join(t.TempDir(), "voiled.yaml")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9200, cfg.Server.MetricsPort)
	assert.Equal(t, int64(300), cfg.Pricing.AdvanceFeeBps)
	assert.Equal(t, int64(800), cfg.Pricing.DefaultAprBps)
	assert.Equal(t, int64(7), cfg.Pricing.CooldownDays)
	assert.Equal(t, "/var/lib/voile/chain.json", cfg.Chain.StatePath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VOILE_LOG_LEVEL", "warn")
	t.Setenv("VOILE_PRICING_COOLDOWN_DAYS", "30")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, int64(30), cfg.Pricing.CooldownDays)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	t.Run("fee bps over 10000", func(t *testing.T) {
		cfg := base()
		cfg.Pricing.AdvanceFeeBps = 10_001
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive apr", func(t *testing.T) {
		cfg := base()
		cfg.Pricing.DefaultAprBps = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("cooldown out of range", func(t *testing.T) {
		cfg := base()
		cfg.Pricing.CooldownDays = 366
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive limits", func(t *testing.T) {
		cfg := base()
		cfg.Limits.RequestBurst = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := base()
		cfg.Log.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})
}
