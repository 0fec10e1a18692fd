package main

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"chapel/internal/config"
	"chapel/internal/store"

	_ "modernc.org/sqlite"
)

func newMigrateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var dryRun bool
	var inspect bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run or inspect database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.StorageBackend == config.BackendBolt {
				return fmt.Errorf("migrate applies to the %s backend; bolt files carry their schema version in the meta bucket", config.BackendSQLite)
			}

			if inspect || dryRun {
				return showMigrationPlan(cfg.DBPath, *jsonOutput)
			}

			// Same path the server takes on start.
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer st.Close()

			if *jsonOutput {
				plan, err := store.MigrationPlan(st.DB())
				if err != nil {
					return err
				}
				return writeJSON(plan)
			}
			return writePlain("Migrations applied successfully (schema version %d).\n", store.LatestSchemaVersion())
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show pending migrations without applying")
	cmd.Flags().BoolVar(&inspect, "inspect", false, "show migration status")

	return cmd
}

func showMigrationPlan(dbPath string, structured bool) error {
	plan, err := inspectMigrations(dbPath)
	if err != nil {
		return err
	}

	if structured {
		return writeJSON(plan)
	}

	_ = writePlain("Current version: %d\n", plan.CurrentVersion)
	_ = writePlain("Available version: %d\n", plan.AvailableVersion)
	if len(plan.Pending) == 0 {
		return writePlain("No pending migrations.\n")
	}
	_ = writePlain("Pending migrations: %d\n", len(plan.Pending))
	for _, m := range plan.Pending {
		_ = writePlain("  %d: %s\n", m.Version, m.Description)
	}
	return nil
}

// inspectMigrations reports the plan for dbPath without writing to it.
// A missing file reports every migration as pending.
func inspectMigrations(dbPath string) (*store.MigrationStatus, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return store.MigrationPlanFor(0), nil
	} else if err != nil {
		return nil, err
	}

	db, err := openReadOnlyDB(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	plan, err := store.MigrationPlan(db)
	if err != nil {
		return nil, fmt.Errorf("inspect migrations: %w", err)
	}
	return plan, nil
}

func openReadOnlyDB(path string) (*sql.DB, error) {
	u := url.URL{Scheme: "file", Path: path, RawQuery: "mode=ro"}
	return sql.Open("sqlite", u.String())
}
