package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/ciphersigma/ieee-sps-gs-website-sub001/internal/config"
	"github.com/ciphersigma/ieee-sps-gs-website-sub001/internal/database"
	"github.com/ciphersigma/ieee-sps-gs-website-sub001/internal/logger"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "chapterd",
		Short:        "Chapter website API",
		Long:         "Serves the chapter website API: accounts, branches and session tokens.",
		Version:      version + " (" + commit + ")",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("env-file", ".env", "Path to a .env file read before the environment")

	root.AddCommand(
		ServeCmd(),
		MigrateCmd(),
		BootstrapCmd(),
	)

	return root
}

// runtime is what every command needs: configuration, a logger and the store
type runtime struct {
	cfg    *config.Config
	logger *logger.Logger
	db     *bun.DB
}

func setupRuntime(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(config.WithDotenv(envFile))
	if err != nil {
		return nil, err
	}

	log := logger.New(&logger.Config{
		Level:      logger.LogLevel(cfg.Log.Level),
		Output:     cmd.ErrOrStderr(),
		JSON:       cfg.Log.JSON,
		TimeFormat: "15:04:05",
	})

	if cfg.EphemeralKey {
		log.Warn("No signing key configured, using an ephemeral key. Tokens will not survive a restart.",
			"environment", cfg.Environment)
	}

	db, err := database.Open(ctx, cfg.Database, log.Named("db"))
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, logger: log, db: db}, nil
}

func (r *runtime) Close() {
	if err := r.db.Close(); err != nil {
		r.logger.Error("Failed to close database", "error", err)
	}
}
