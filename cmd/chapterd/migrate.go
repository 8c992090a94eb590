package main

import (
	"github.com/spf13/cobra"

	auth "github.com/ciphersigma/ieee-sps-gs-website-sub001"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			rt, err := setupRuntime(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			rollback, _ := cmd.Flags().GetBool("rollback")
			if !rollback {
				return runMigrations(ctx, rt)
			}

			group, err := auth.Rollback(ctx, rt.db)
			if err != nil {
				return err
			}
			if group.IsZero() {
				rt.logger.Info("Nothing to roll back")
				return nil
			}
			rt.logger.Info("Rolled back", "group", group.String())
			return nil
		},
	}

	cmd.Flags().Bool("rollback", false, "Roll back the last migration group")
	return cmd
}
