// Package config provides unified configuration for the torwart service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. A .env file in the working directory (if present)
//  3. YAML config file (discovered or explicitly specified)
//  4. Environment variable overrides (TORWART_ prefix)
//  5. Backward-compatible env var mapping for legacy variable names
//  6. File reference resolution (_file suffix fields)
//  7. Validation
package config

import "time"

// Config holds all configuration for the torwart service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Storage       StorageConfig       `yaml:"storage"`
	Commands      CommandsConfig      `yaml:"commands"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen          string        `yaml:"listen"`           // default: "127.0.0.1:3031"
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 10s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 10s
}

// AuthConfig holds the authorization response settings.
type AuthConfig struct {
	// RealmMessage is the prompt string in the WWW-Authenticate header
	// sent with a 401.
	RealmMessage string `yaml:"realm_message"` // default: "torwart says no"
}

// StorageConfig holds credential store durability settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "none", "file" or "postgres", default: "none"
	File     FileConfig     `yaml:"file"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// FileConfig holds settings for the JSON file store.
type FileConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"` // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// CommandsConfig holds post-authentication command execution settings.
type CommandsConfig struct {
	// Timeout bounds each individual user command.
	Timeout time.Duration `yaml:"timeout"` // default: 30s
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Debug   DebugConfig   `yaml:"debug"`
}

// DebugConfig holds category-based debug logging settings.
type DebugConfig struct {
	// Categories is a comma-separated list of debug categories
	// (engine, transport, persist, runner, config, all).
	Categories string `yaml:"categories"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Listen:          "127.0.0.1:3031",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			RealmMessage: "torwart says no",
		},
		Storage: StorageConfig{
			Type: "none",
			Postgres: PostgresConfig{
				MaxConns:       10,
				MigrateOnStart: true,
			},
		},
		Commands: CommandsConfig{
			Timeout: 30 * time.Second,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
