package main

import (
	"fmt"

	"github.com/spf13/cobra"

	auth "github.com/ciphersigma/ieee-sps-gs-website-sub001"
	"github.com/ciphersigma/ieee-sps-gs-website-sub001/internal/server"
)

func BootstrapCmd() *cobra.Command {
	var msg auth.BootstrapSuperAdminMessage

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the first super admin",
		Long:  "Creates the first super admin. Fails once any super admin exists.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			rt, err := setupRuntime(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			services, err := server.NewServices(rt.cfg, rt.db, rt.logger.Named("auth"), nil)
			if err != nil {
				return err
			}

			account, err := services.Bootstrap.Handle(ctx, msg)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "super admin %s created (%s)\n", account.Email, account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&msg.Email, "email", "", "Super admin email")
	cmd.Flags().StringVar(&msg.Password, "password", "", "Super admin password")
	cmd.Flags().StringVar(&msg.DisplayName, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
