// Package config loads and validates the runtime configuration from
// defaults, an optional YAML file, HASHSEEK_* environment variables,
// and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/shizukutanaka/hashseek/internal/candidate"
	"github.com/shizukutanaka/hashseek/internal/digest"
)

// Config is the full configuration for a search run.
type Config struct {
	Digest        string        `mapstructure:"digest"`
	Bits          int           `mapstructure:"bits"`
	List          bool          `mapstructure:"list"`
	Encoding      string        `mapstructure:"encoding"`
	Workers       int           `mapstructure:"workers"`
	LogLevel      string        `mapstructure:"log_level"`
	BlockSize     int           `mapstructure:"block_size"`
	StatsInterval time.Duration `mapstructure:"stats_interval"`
}

// flagBindings maps config keys to the flag names that override them.
var flagBindings = map[string]string{
	"digest":         "digest",
	"bits":           "bits",
	"list":           "list",
	"encoding":       "encoding",
	"workers":        "workers",
	"log_level":      "log-level",
	"block_size":     "block-size",
	"stats_interval": "stats-interval",
}

// Load builds the configuration. configPath may be empty; flags may
// be nil. Validation failures are configuration errors and must
// surface before any input is consumed.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HASHSEEK")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("digest", "md5")
	v.SetDefault("bits", 24)
	v.SetDefault("list", false)
	v.SetDefault("encoding", "binary")
	v.SetDefault("workers", 0) // 0 = one per logical CPU
	v.SetDefault("log_level", "info")
	v.SetDefault("block_size", 16384)
	v.SetDefault("stats_interval", "10s")
}

func validate(cfg *Config) error {
	if _, err := digest.Get(cfg.Digest); err != nil {
		return err
	}
	if cfg.Bits < 1 || cfg.Bits > 64 {
		return fmt.Errorf("invalid number of bits: %d (want 1..64)", cfg.Bits)
	}
	if _, err := candidate.ParseEncoding(cfg.Encoding); err != nil {
		return err
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	if cfg.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive")
	}
	if cfg.StatsInterval < 0 {
		return fmt.Errorf("stats_interval cannot be negative")
	}
	return nil
}
