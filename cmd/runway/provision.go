package main

import (
	"context"
	"encoding/json"

	"github.com/abbydulski/Runway-sub000/internal/migration"
	provisioningdomain "github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func provisionCmd() *cobra.Command {
	var req provisioningdomain.Request

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision one user across every connected integration and print the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc provisioningdomain.Service
			app := fx.New(
				infrastructure(),
				migration.Module,
				domains(),
				fx.Populate(&svc),
			)
			ctx := cmd.Context()
			if err := app.Start(ctx); err != nil {
				return err
			}
			defer app.Stop(context.Background())

			resp, err := svc.Provision(ctx, req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVar(&req.UserID, "user", "", "user id to provision")
	cmd.Flags().StringVar(&req.OrganizationID, "org", "", "organization id")
	cmd.Flags().StringVar(&req.TeamID, "team", "", "optional team id")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
