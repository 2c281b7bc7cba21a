package config

import "fmt"

// Storage driver names.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// StorageConfig selects and configures the sample store backend.
type StorageConfig struct {
	// Driver is "postgres" or "memory". Memory keeps samples in-process
	// only; it is meant for development and tests.
	Driver string `yaml:"driver"`

	// RetentionDays bounds how long samples are kept. Zero disables the
	// retention sweep.
	RetentionDays int `yaml:"retention_days"`

	PostgreSQL PostgreSQLConfig `yaml:"postgresql"`
}

// PostgreSQLConfig contains the database connection settings.
type PostgreSQLConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Database     string `yaml:"database"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// DefaultStorageConfig returns the standard storage configuration.
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Driver:        DriverPostgres,
		RetentionDays: 400,
		PostgreSQL: PostgreSQLConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "authority_performance",
			User:         "postgres",
			Password:     "",
			SSLMode:      "disable",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
	}
}

func (c *StorageConfig) applyDefaults() {
	def := DefaultStorageConfig()
	if c.Driver == "" {
		c.Driver = def.Driver
	}
	if c.PostgreSQL.Host == "" {
		c.PostgreSQL.Host = def.PostgreSQL.Host
	}
	if c.PostgreSQL.Port == 0 {
		c.PostgreSQL.Port = def.PostgreSQL.Port
	}
	if c.PostgreSQL.Database == "" {
		c.PostgreSQL.Database = def.PostgreSQL.Database
	}
	if c.PostgreSQL.User == "" {
		c.PostgreSQL.User = def.PostgreSQL.User
	}
	if c.PostgreSQL.SSLMode == "" {
		c.PostgreSQL.SSLMode = def.PostgreSQL.SSLMode
	}
	if c.PostgreSQL.MaxOpenConns == 0 {
		c.PostgreSQL.MaxOpenConns = def.PostgreSQL.MaxOpenConns
	}
	if c.PostgreSQL.MaxIdleConns == 0 {
		c.PostgreSQL.MaxIdleConns = def.PostgreSQL.MaxIdleConns
	}
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case DriverMemory:
		return nil
	case DriverPostgres:
		return c.PostgreSQL.Validate()
	default:
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}
}

// Validate validates the PostgreSQL configuration.
func (c *PostgreSQLConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("max_open_conns must be greater than 0")
	}
	if c.MaxIdleConns <= 0 {
		return fmt.Errorf("max_idle_conns must be greater than 0")
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgreSQLConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
