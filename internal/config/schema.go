package config

import (
	"fmt"
	"time"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
)

// Config represents the complete .chameleon-mock.yml configuration
type Config struct {
	Version   string         `yaml:"version"`
	CreatedAt time.Time      `yaml:"created_at"`
	Schema    SchemaConfig   `yaml:"schema"`
	Fixtures  FixturesConfig `yaml:"fixtures"`
	Debug     DebugConfig    `yaml:"debug"`
	Journal   JournalConfig  `yaml:"journal"`
	Database  DatabaseConfig `yaml:"database"`
}

// SchemaConfig points at the entity schema used for validation
type SchemaConfig struct {
	Path string `yaml:"path"` // .yml, .yaml or .json
}

// FixturesConfig holds fixture discovery settings
type FixturesConfig struct {
	Paths  []string `yaml:"paths"`            // files or directories
	Strict bool     `yaml:"strict,omitempty"` // unreceived expectations fail replay
}

// DebugConfig holds the default debug output settings
type DebugConfig struct {
	Level string `yaml:"level,omitempty"` // none, sql, trace, explain
	Color bool   `yaml:"color"`
}

// JournalConfig holds run journal settings
type JournalConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DatabaseConfig is only used by `query --live`
type DatabaseConfig struct {
	Driver            string `yaml:"driver,omitempty"`            // postgresql, mysql, pq
	ConnectionString  string `yaml:"connection_string,omitempty"` // ${DATABASE_URL} or hardcoded
	MaxConnections    int    `yaml:"max_connections,omitempty"`
	ConnectionTimeout int    `yaml:"connection_timeout,omitempty"` // seconds
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Version:   engine.Version,
		CreatedAt: time.Now(),
		Schema: SchemaConfig{
			Path: "./schema.yml",
		},
		Fixtures: FixturesConfig{
			Paths: []string{"./fixtures"},
		},
		Debug: DebugConfig{
			Level: "none",
			Color: true,
		},
		Journal: JournalConfig{
			Enabled: true,
		},
		Database: DatabaseConfig{
			Driver:            "postgresql",
			ConnectionString:  "${DATABASE_URL}",
			MaxConnections:    10,
			ConnectionTimeout: 30,
		},
	}
}

var knownDrivers = map[string]bool{
	"postgresql": true,
	"postgres":   true,
	"mysql":      true,
	"pq":         true,
}

// Validate checks if config is valid
func (c *Config) Validate() error {
	if c.Schema.Path == "" {
		return &ConfigError{
			Field:      "schema.path",
			Reason:     "A schema file is required",
			Suggestion: "point schema.path at a .yml or .json schema",
		}
	}

	if len(c.Fixtures.Paths) == 0 {
		return &ConfigError{
			Field:  "fixtures.paths",
			Reason: "At least one fixtures path is required",
		}
	}

	if c.Debug.Level != "" {
		if _, err := engine.ParseDebugLevel(c.Debug.Level); err != nil {
			return &ConfigError{
				Field:      "debug.level",
				Reason:     err.Error(),
				Suggestion: "use one of none, sql, trace, explain",
			}
		}
	}

	if c.Database.Driver != "" && !knownDrivers[c.Database.Driver] {
		return &ConfigError{
			Field:      "database.driver",
			Reason:     fmt.Sprintf("Unsupported driver %q", c.Database.Driver),
			Suggestion: "use postgresql, mysql or pq",
		}
	}

	if c.Database.ConnectionTimeout < 1 {
		c.Database.ConnectionTimeout = 30
	}

	return nil
}

// Connector returns the pgx pool settings of a postgresql database:
// the connection string plus max_connections and connection_timeout,
// which win over pool parameters in the URL
func (d DatabaseConfig) Connector() (engine.ConnectorConfig, error) {
	if d.Driver != "" && d.Driver != "postgresql" && d.Driver != "postgres" {
		return engine.ConnectorConfig{}, fmt.Errorf("driver %q does not use the pgx pool", d.Driver)
	}
	cc, err := engine.ParseConnectionString(d.ConnectionString)
	if err != nil {
		return engine.ConnectorConfig{}, err
	}
	if d.MaxConnections > 0 {
		cc.MaxConns = int32(d.MaxConnections)
	}
	if d.ConnectionTimeout > 0 {
		cc.ConnectTimeout = time.Duration(d.ConnectionTimeout) * time.Second
	}
	return cc, nil
}

// DebugLevel returns the configured debug level, DebugNone when unset
func (c *Config) DebugLevel() engine.DebugLevel {
	level, err := engine.ParseDebugLevel(c.Debug.Level)
	if err != nil {
		return engine.DebugNone
	}
	return level
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Reason     string
	Suggestion string
}

func (e *ConfigError) Error() string {
	msg := "Configuration error: " + e.Field + ": " + e.Reason
	if e.Suggestion != "" {
		msg += "\nSuggestion: " + e.Suggestion
	}
	return msg
}
