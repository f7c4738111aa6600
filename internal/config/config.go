// config.go - Daemon configuration.

// Package config loads the voiled daemon configuration from a YAML file
// and VOILE_-prefixed environment variables, with environment taking
// precedence.
package config

import (
	"fmt"
	"strings"

	"voile/internal/pricing"

	"github.com/spf13/viper"
)

// Config holds the full daemon configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Pricing PricingConfig `mapstructure:"pricing"`
	Chain   ChainConfig   `mapstructure:"chain"`
	Keys    KeysConfig    `mapstructure:"keys"`
	Limits  LimitsConfig  `mapstructure:"limits"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

// PricingConfig overrides the protocol rate defaults. Values are basis
// points; zero means "use the protocol default".
type PricingConfig struct {
	AdvanceFeeBps int64 `mapstructure:"advance_fee_bps"`
	DefaultAprBps int64 `mapstructure:"default_apr_bps"`
	CooldownDays  int64 `mapstructure:"cooldown_days"`
}

// ChainConfig points at the settlement chain state file used by the
// in-memory driver.
type ChainConfig struct {
	StatePath string `mapstructure:"state_path"`
}

// KeysConfig locates the Groth16 proving and verifying keys.
type KeysConfig struct {
	ProvingKeyPath   string `mapstructure:"proving_key_path"`
	VerifyingKeyPath string `mapstructure:"verifying_key_path"`
}

// LimitsConfig bounds per-account request throughput.
type LimitsConfig struct {
	RequestBurst      int `mapstructure:"request_burst"`
	RequestsPerSecond int `mapstructure:"requests_per_second"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // console output for dev sessions
}

// Load reads configuration from path (YAML) and the environment.
// Environment variables use the VOILE_ prefix with underscores for
// nesting: VOILE_CHAIN_STATE_PATH, VOILE_LOG_LEVEL, and so on.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("pricing.advance_fee_bps", pricing.DefaultAdvanceFeeBps)
	v.SetDefault("pricing.default_apr_bps", pricing.DefaultAprBps)
	v.SetDefault("pricing.cooldown_days", pricing.DefaultCooldownDays)
	v.SetDefault("chain.state_path", "chain.json")
	v.SetDefault("keys.proving_key_path", "claim.pk")
	v.SetDefault("keys.verifying_key_path", "claim.vk")
	v.SetDefault("limits.request_burst", 10)
	v.SetDefault("limits.requests_per_second", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("voiled")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/voile")
	}

	v.SetEnvPrefix("VOILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; env vars and defaults suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects rate parameters the protocol cannot price.
func (c *Config) Validate() error {
	if c.Pricing.AdvanceFeeBps < 0 || c.Pricing.AdvanceFeeBps > 10_000 {
		return fmt.Errorf("pricing.advance_fee_bps %d outside [0, 10000]", c.Pricing.AdvanceFeeBps)
	}
	if c.Pricing.DefaultAprBps <= 0 {
		return fmt.Errorf("pricing.default_apr_bps %d must be positive", c.Pricing.DefaultAprBps)
	}
	if !pricing.IsValidCooldown(c.Pricing.CooldownDays) {
		return fmt.Errorf("pricing.cooldown_days %d outside [%d, %d]",
			c.Pricing.CooldownDays, pricing.MinCooldownDays, pricing.MaxCooldownDays)
	}
	if c.Limits.RequestBurst <= 0 || c.Limits.RequestsPerSecond <= 0 {
		return fmt.Errorf("limits must be positive: burst %d, rate %d",
			c.Limits.RequestBurst, c.Limits.RequestsPerSecond)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
