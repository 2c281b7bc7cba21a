// Package config loads and validates the monitor's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the performance monitor.
type Config struct {
	// Server is the HTTP API listen address.
	Server ServerConfig `yaml:"server"`

	// TimeZone is the zone samples are stamped in and buckets are aligned
	// to, e.g. "America/New_York". Defaults to UTC.
	TimeZone string `yaml:"time_zone"`

	// Authorities is the set of authority names to aggregate over.
	Authorities []string `yaml:"authorities"`

	// Cache controls the rollup snapshot cache.
	Cache CacheConfig `yaml:"cache"`

	// Storage selects and configures the sample store backend.
	Storage StorageConfig `yaml:"storage"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// CacheConfig holds rollup cache settings.
type CacheConfig struct {
	// TTL is how long a computed snapshot stays fresh. Expiry triggers a
	// lazy recompute on the next read, not a background timer.
	TTL Duration `yaml:"ttl"`
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  Duration(30 * time.Second),
			WriteTimeout: Duration(30 * time.Second),
		},
		TimeZone: "UTC",
		Cache: CacheConfig{
			TTL: Duration(24 * time.Hour),
		},
		Storage: DefaultStorageConfig(),
	}
}

// Load reads the configuration from a YAML file, substituting environment
// variable references first. An empty path yields the defaults.
func Load(path string, log logrus.FieldLogger) (*Config, error) {
	log = log.WithField("component", "config")

	cfg := Default()
	if path == "" {
		log.Info("No config path provided, using defaults")
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	substituted, err := SubstituteEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
	}

	if err := yaml.Unmarshal([]byte(substituted), cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.WithFields(logrus.Fields{
		"addr":        cfg.Server.Addr,
		"time_zone":   cfg.TimeZone,
		"authorities": len(cfg.Authorities),
		"cache_ttl":   cfg.Cache.TTL,
		"driver":      cfg.Storage.Driver,
	}).Info("Loaded configuration")

	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if c.TimeZone == "" {
		c.TimeZone = def.TimeZone
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = def.Cache.TTL
	}
	c.Storage.applyDefaults()
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid time_zone %q: %w", c.TimeZone, err)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage configuration: %w", err)
	}
	return nil
}

// Location resolves the configured time zone. Validate guarantees it parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
