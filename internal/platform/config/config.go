// Package config loads service configuration from YAML files with
// environment variable overrides.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/flowgrid/flowgrid/internal/platform/logger"
)

// Config holds all configuration for the flowgrid process.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logger  logger.Config `mapstructure:"logger"`
}

// EngineConfig holds execution defaults applied to workflows that do not
// set their own.
type EngineConfig struct {
	EnableParallelExecution bool `mapstructure:"enable_parallel_execution" envconfig:"ENGINE_PARALLEL"`
	MaxParallelExecutions   int  `mapstructure:"max_parallel_executions" envconfig:"ENGINE_MAX_PARALLEL"`
	DefaultRetryWaitMs      int  `mapstructure:"default_retry_wait_ms" envconfig:"ENGINE_RETRY_WAIT_MS"`
}

// WebhookConfig holds the listener settings for webhook triggers.
type WebhookConfig struct {
	Addr string `mapstructure:"addr" envconfig:"WEBHOOK_ADDR"`
}

// MetricsConfig holds the prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" envconfig:"METRICS_ENABLED"`
	Addr    string `mapstructure:"addr" envconfig:"METRICS_ADDR"`
}

// Load reads configuration from the given YAML file (optional) and applies
// environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("engine.enable_parallel_execution", true)
	v.SetDefault("engine.max_parallel_executions", 0)
	v.SetDefault("engine.default_retry_wait_ms", 1000)
	v.SetDefault("webhook.addr", ":8081")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %q: %w", path, err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := envconfig.Process("FLOWGRID", &cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}
	return &cfg, nil
}
