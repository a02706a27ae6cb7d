// Package config loads and validates the engine configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/siglab/settlement/internal/types"
)

// Config represents the complete configuration for the settlement engine.
type Config struct {
	Engine   types.Params   `yaml:"engine"`
	API      APIConfig      `yaml:"api"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
	Treasury TreasuryConfig `yaml:"treasury"`
	Admins   []string       `yaml:"admins"`
}

// APIConfig holds API server configuration.
type APIConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	JWTSecret   string        `yaml:"jwt_secret"`
	RateLimit   float64       `yaml:"rate_limit"`
	RateBurst   int           `yaml:"rate_burst"`
	CORSOrigins []string      `yaml:"cors_origins"`
	Timeout     time.Duration `yaml:"timeout"`
}

// MetricsConfig holds metrics server configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// TreasuryConfig holds treasury bootstrap configuration.
type TreasuryConfig struct {
	MinReserveRatioBps uint16 `yaml:"min_reserve_ratio_bps"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("API_HOST"); host != "" {
		c.API.Host = host
	}
	if port := os.Getenv("API_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.API.Port)
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.API.JWTSecret = secret
	}
	if port := os.Getenv("METRICS_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.Metrics.Port)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if admins := os.Getenv("ADMIN_ACCOUNTS"); admins != "" {
		c.Admins = strings.Split(admins, ",")
	}
}

// Validate validates the configuration and applies defaults.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	if c.API.Host == "" {
		c.API.Host = "0.0.0.0"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.JWTSecret == "" {
		return fmt.Errorf("api.jwt_secret is required")
	}
	if c.API.RateLimit <= 0 {
		c.API.RateLimit = 10
	}
	if c.API.RateBurst <= 0 {
		c.API.RateBurst = 20
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = 30 * time.Second
	}

	if c.Metrics.Enabled {
		if c.Metrics.Host == "" {
			c.Metrics.Host = "0.0.0.0"
		}
		if c.Metrics.Port == 0 {
			c.Metrics.Port = 9090
		}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Treasury.MinReserveRatioBps == 0 {
		c.Treasury.MinReserveRatioBps = 2000
	}
	if c.Treasury.MinReserveRatioBps < types.MinReserveRatioFloorBps ||
		c.Treasury.MinReserveRatioBps > types.MinReserveRatioCeilBps {
		return fmt.Errorf("treasury.min_reserve_ratio_bps %d outside [%d, %d]",
			c.Treasury.MinReserveRatioBps, types.MinReserveRatioFloorBps, types.MinReserveRatioCeilBps)
	}

	if len(c.Admins) == 0 {
		return fmt.Errorf("at least one admin account is required")
	}
	return nil
}
