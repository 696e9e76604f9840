package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. .env file in the working directory
//  3. YAML config file (explicit path, TORWART_CONFIG env, ./config.yaml, /etc/torwart/config.yaml)
//  4. TORWART_ environment variable overrides
//  5. Backward-compatible environment variable mapping
//  6. File reference resolution (_file suffix)
//  7. Validation
func Load(configPath string) (*Config, error) {
	// Populate the environment from a .env file first so the env layers
	// below see it. A missing .env is the normal case.
	_ = godotenv.Load()

	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. TORWART_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/torwart/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("TORWART_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/torwart/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields. The
// legacy names (LISTEN, BASIC_AUTH_MESSAGE, AUTH_FILE) keep existing
// deployments working; the TORWART_ names are the structured equivalents.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TORWART_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("TORWART_REALM_MESSAGE"); v != "" {
		cfg.Auth.RealmMessage = v
	}
	if v := os.Getenv("TORWART_STORAGE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("TORWART_AUTH_FILE"); v != "" {
		cfg.Storage.Type = "file"
		cfg.Storage.File.Path = v
	}
	if v := os.Getenv("TORWART_POSTGRES_DSN"); v != "" {
		cfg.Storage.Type = "postgres"
		cfg.Storage.Postgres.DSN = v
	}

	// Legacy env var mappings.
	if v := os.Getenv("LISTEN"); v != "" && os.Getenv("TORWART_LISTEN") == "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("BASIC_AUTH_MESSAGE"); v != "" && os.Getenv("TORWART_REALM_MESSAGE") == "" {
		cfg.Auth.RealmMessage = v
	}
	if v := os.Getenv("AUTH_FILE"); v != "" && os.Getenv("TORWART_AUTH_FILE") == "" {
		cfg.Storage.Type = "file"
		cfg.Storage.File.Path = v
	}
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. For each field ending in _file, if the value field is empty
// and the file field is set, the file is read, whitespace is trimmed, and
// the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
