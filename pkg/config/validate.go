package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, fmt.Errorf("server.listen is required"))
	}

	switch c.Storage.Type {
	case "none", "file", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"none\", \"file\" or \"postgres\", got %q", c.Storage.Type))
	}

	if c.Storage.Type == "file" && c.Storage.File.Path == "" {
		errs = append(errs, fmt.Errorf("storage.file.path is required when storage.type is \"file\""))
	}

	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	if c.Commands.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("commands.timeout must be > 0, got %v", c.Commands.Timeout))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	return errors.Join(errs...)
}
