package main

import (
	"github.com/abbydulski/Runway-sub000/internal/migration"
	"github.com/abbydulski/Runway-sub000/internal/scheduler"
	"github.com/abbydulski/Runway-sub000/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, provisioning workers and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				infrastructure(),
				migration.Module,
				domains(),
				server.Module,
				scheduler.Module,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}
