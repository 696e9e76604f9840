package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/torwart-dev/torwart/pkg/config"
	"github.com/torwart-dev/torwart/pkg/credstore"
	"github.com/torwart-dev/torwart/pkg/debug"
	"github.com/torwart-dev/torwart/pkg/engine"
	"github.com/torwart-dev/torwart/pkg/persist"
	persistfile "github.com/torwart-dev/torwart/pkg/persist/file"
	persistpg "github.com/torwart-dev/torwart/pkg/persist/postgres"
	"github.com/torwart-dev/torwart/pkg/runner"
	"github.com/torwart-dev/torwart/pkg/transport"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "torwart",
	Short: "Authorization companion for reverse-proxy auth subrequests",
	Long: `torwart answers auth subrequests from a reverse proxy. A request is
allowed when the caller's IP is on the allowlist, its basic-auth credential
matches, or it carries a known bypass token in the query string, a header,
or the trailing path segment. Successful identity-bearing authentications
add the caller's IP to the allowlist and trigger the user's commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: ./config.yaml, /etc/torwart/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(bypassCmd)
	rootCmd.AddCommand(cmdCmd)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: debug.ParseLevel(logLevel),
	}))
}

// buildPersister constructs the configured durability backend. The returned
// close function is a no-op for backends without connections to release.
func buildPersister(ctx context.Context, cfg *config.Config) (persist.Persister, func(), error) {
	switch cfg.Storage.Type {
	case "file":
		return persistfile.New(cfg.Storage.File.Path), func() {}, nil
	case "postgres":
		p, err := persistpg.New(ctx, persistpg.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return p, p.Close, nil
	default:
		return persist.Noop{}, func() {}, nil
	}
}

func runServe(ctx context.Context) error {
	logger := newLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	debug.Init(cfg.Observability.Debug.Categories)

	pers, closePers, err := buildPersister(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePers()

	creds, err := pers.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading credential store: %w", err)
	}
	store := credstore.NewStore(creds)
	logger.Info("credential store loaded",
		"storage", cfg.Storage.Type,
		"ips", len(creds.IPs),
		"passwords", len(creds.Passwords),
		"tokens", len(creds.Tokens),
	)

	run := &runner.ExecRunner{
		Timeout: cfg.Commands.Timeout,
		Logger:  logger,
	}

	eng := engine.New(store, pers, run, logger)

	adapter := transport.NewAdapter(eng, store, pers, transport.Config{
		RealmMessage:   cfg.Auth.RealmMessage,
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
		MetricsPath:    cfg.Observability.Metrics.Path,
	}, logger)

	srv := transport.NewServer(adapter,
		transport.WithAddr(cfg.Server.Listen),
		transport.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transport.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transport.WithLogger(logger),
	)

	return srv.ListenAndServe()
}

// withStore loads the persisted credential store, applies the mutation, and
// writes the result back. Admin subcommands share this; they require a
// durable backend since mutating an in-memory store that dies with the
// process is never what the operator wants.
func withStore(ctx context.Context, fn func(*credstore.Credentials) error) error {
	logger := newLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.Storage.Type == "none" {
		return fmt.Errorf("no storage configured: set storage.type to file or postgres")
	}

	pers, closePers, err := buildPersister(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePers()

	creds, err := pers.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading credential store: %w", err)
	}

	if err := fn(creds); err != nil {
		return err
	}

	if err := pers.Save(ctx, creds); err != nil {
		return fmt.Errorf("persisting credential store: %w", err)
	}
	return nil
}

// adminContext bounds offline store operations.
func adminContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
