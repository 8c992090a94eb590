package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	auth "github.com/ciphersigma/ieee-sps-gs-website-sub001"
	"github.com/ciphersigma/ieee-sps-gs-website-sub001/internal/obs"
	"github.com/ciphersigma/ieee-sps-gs-website-sub001/internal/server"
)

func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := setupRuntime(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			migrate, _ := cmd.Flags().GetBool("migrate")
			if migrate {
				if err := runMigrations(ctx, rt); err != nil {
					return err
				}
			}

			metrics := obs.NewMetrics()
			metrics.SetBuildInfo(version, commit)

			srv, err := server.New(rt.cfg, rt.db, rt.logger, metrics)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
}

func runMigrations(ctx context.Context, rt *runtime) error {
	group, err := auth.Migrate(ctx, rt.db)
	if err != nil {
		return err
	}
	if group.IsZero() {
		rt.logger.Info("No pending migrations")
		return nil
	}
	rt.logger.Info("Migrations applied", "group", group.String())
	return nil
}
