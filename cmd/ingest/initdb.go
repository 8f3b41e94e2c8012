package main

import (
	"context"

	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/spf13/cobra"

	"github.com/postcode-lookup/pipeline/pkg/database"
)

func newInitDBCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the PostGIS extension and apply schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInitDB(cmd.Context())
		},
	}
}

func (a *app) runInitDB(ctx context.Context) error {
	if err := database.EnsurePostGIS(ctx, a.db); err != nil {
		return err
	}

	driver, err := migratepg.WithInstance(a.sqlxDB.DB, &migratepg.Config{})
	if err != nil {
		return err
	}

	ms := database.NewMigrationService(a.logger, &database.MigrationConfig{
		MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
	})
	if err := ms.Migrate(a.cfg.DatabaseName, driver); err != nil {
		return err
	}

	a.logger.WithContext(ctx).Info("Database initialized")
	return nil
}
