package main

import (
	"context"
	"fmt"

	"github.com/abbydulski/Runway-sub000/internal/migration"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func migrateCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "migrate [up|down|version]",
		Short: "Apply or inspect database migrations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			return withDB(cmd.Context(), func(conn *gorm.DB) error {
				switch direction {
				case "up":
					if err := migration.Apply(conn); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
					return nil
				case "down":
					sqlDB, err := conn.DB()
					if err != nil {
						return err
					}
					if err := migration.Rollback(sqlDB, steps); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
					return nil
				case "version":
					sqlDB, err := conn.DB()
					if err != nil {
						return err
					}
					version, dirty, err := migration.Version(sqlDB)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", version, dirty)
					return nil
				default:
					return fmt.Errorf("unknown migrate direction %q", direction)
				}
			})
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back with down")
	return cmd
}

func withDB(ctx context.Context, fn func(conn *gorm.DB) error) error {
	var conn *gorm.DB
	app := fx.New(
		infrastructure(),
		fx.Populate(&conn),
	)
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer app.Stop(context.Background())

	return fn(conn)
}
