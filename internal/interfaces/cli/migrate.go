package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/deid-reconcile/internal/infrastructure/database/postgres"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
)

// Migration entry points are variables so tests can stub the database.
var (
	migrateUp     = postgres.RunMigrations
	migrateDown   = postgres.RollbackMigration
	migrateStatus = postgres.MigrationStatus
)

// NewMigrateCmd creates the annotation schema migration commands.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL annotation schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if err := migrateUp(cliCtx.Config.Database.DSN()); err != nil {
				return err
			}
			cliCtx.Logger.Info("migrations applied", logging.String("host", cliCtx.Config.Database.Host))
			return printMigrationStatus(cmd, cliCtx)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if err := migrateDown(cliCtx.Config.Database.DSN(), steps); err != nil {
				return err
			}
			cliCtx.Logger.Info("migrations rolled back", logging.Int("steps", steps))
			return printMigrationStatus(cmd, cliCtx)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return printMigrationStatus(cmd, cliCtx)
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

// migrationState is the schema version report.
type migrationState struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func (s migrationState) String() string {
	if s.Dirty {
		return fmt.Sprintf("schema version %d (dirty)\n", s.Version)
	}
	return fmt.Sprintf("schema version %d\n", s.Version)
}

func printMigrationStatus(cmd *cobra.Command, cliCtx *CLIContext) error {
	version, dirty, err := migrateStatus(cliCtx.Config.Database.DSN())
	if err != nil {
		return err
	}
	return PrintResult(cmd, migrationState{Version: version, Dirty: dirty})
}

//Personal.AI order the ending
