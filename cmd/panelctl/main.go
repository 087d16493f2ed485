// Command panelctl runs panel maintenance tasks: audit log cleanup,
// migrations, key generation and user provisioning.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/natvps/panel/pkg/config"
	"github.com/natvps/panel/pkg/logger"
	"github.com/natvps/panel/pkg/pg"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "panelctl",
		Short:         "Panel maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	var envFile string
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "Load variables from this .env file first")
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if envFile == "" {
			return nil
		}
		return config.LoadEnv(envFile)
	}

	root.AddCommand(
		newAuditCmd(),
		newMigrateCmd(),
		newKeygenCmd(),
		newUserCmd(),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// newLogger writes to stderr so command output stays clean on stdout.
func newLogger() *slog.Logger {
	var cfg logger.Config
	if err := config.Load(&cfg); err != nil {
		cfg = logger.Config{Env: logger.EnvDevelopment, Service: "panelctl"}
	}
	return logger.NewFromConfig(cfg, logger.WithOutput(os.Stderr))
}

func connect(ctx context.Context) (*pgxpool.Pool, pg.Config, error) {
	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return nil, cfg, err
	}
	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, cfg, err
	}
	return pool, cfg, nil
}
