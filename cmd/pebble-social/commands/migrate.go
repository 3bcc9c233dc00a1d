package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/mdobak/go-xerrors"
	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-social/cmd/pebble-social/output"
	"github.com/marshallshelly/pebble-social/cmd/pebble-social/tui"
	"github.com/marshallshelly/pebble-social/pkg/migration"
)

var (
	// Migrate flags
	dryRun      bool
	all         bool
	steps       int
	target      string
	interactive bool
)

var errNoSelection = xerrors.Message("must specify --all or --steps")

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Apply, roll back and inspect the social schema migrations.

Subcommands:
  up      - Apply pending migrations
  down    - Rollback migrations
  status  - Show migration status`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Long: `Apply pending migrations in version order.

Examples:
  pebble-social migrate up --all              # Apply all pending migrations
  pebble-social migrate up --steps 1          # Apply next migration
  pebble-social migrate up --dry-run --all    # Log the statements without running them`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateUp(cmd)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Rollback migrations",
	Long: `Rollback applied migrations, newest first.

Examples:
  pebble-social migrate down --steps 1        # Rollback last migration
  pebble-social migrate down --target VERSION # Rollback everything after VERSION
  pebble-social migrate down --dry-run        # Log the statements without running them`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateDown(cmd)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Show every migration on disk with its tracked status.

Examples:
  pebble-social migrate status
  pebble-social migrate status --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateStatus(cmd)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)

	migrateUpCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	migrateUpCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview migrations without applying")
	migrateUpCmd.Flags().BoolVar(&all, "all", false, "Apply all pending migrations")
	migrateUpCmd.Flags().IntVar(&steps, "steps", 0, "Number of migrations to apply")

	migrateDownCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	migrateDownCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview rollback without executing")
	migrateDownCmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to rollback")
	migrateDownCmd.Flags().StringVar(&target, "target", "", "Rollback to specific version")
}

func loadMigrations() ([]migration.Migration, error) {
	migrations, err := migration.NewGenerator(migrationsDir).LoadAll()
	if err != nil {
		return nil, xerrors.New(err)
	}
	return migrations, nil
}

func runMigrateUp(cmd *cobra.Command) error {
	if !all && steps <= 0 && !interactive {
		return errNoSelection
	}

	ctx := cmd.Context()
	db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	executor := migration.NewExecutor(db).WithLogger(logger)
	if err := executor.Initialize(ctx); err != nil {
		return err
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		output.Warning("No migrations found in %s", migrationsDir)
		return nil
	}

	if interactive {
		return tui.RunMigrate(ctx, tui.MigrateUp, executor, migrations)
	}

	if dryRun {
		output.Section("DRY RUN - Preview")
	} else {
		output.Section("Applying Migrations")
	}
	n, err := executor.ApplyAll(ctx, migrations, steps, dryRun)
	if err != nil {
		output.Error("Stopped after %d migration(s)", n)
		return err
	}
	if n == 0 {
		output.Info("No pending migrations")
		return nil
	}

	if dryRun {
		output.Info("%d migration(s) would be applied", n)
		return nil
	}
	output.Success("Successfully applied %d migration(s)", n)
	return nil
}

func runMigrateDown(cmd *cobra.Command) error {
	ctx := cmd.Context()
	db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	executor := migration.NewExecutor(db).WithLogger(logger)
	if err := executor.Initialize(ctx); err != nil {
		return err
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	if interactive {
		return tui.RunMigrate(ctx, tui.MigrateDown, executor, migrations)
	}

	var n int
	if target != "" {
		output.Section("Rolling Back to " + target)
		n, err = executor.RollbackTo(ctx, target, migrations, dryRun)
	} else {
		output.Section("Rolling Back Migrations")
		n, err = executor.RollbackSteps(ctx, migrations, steps, dryRun)
	}
	if err != nil {
		output.Error("Stopped after %d rollback(s)", n)
		return err
	}

	switch {
	case n == 0:
		output.Info("No migrations to rollback")
	case dryRun:
		output.Info("%d migration(s) would be rolled back", n)
	default:
		output.Success("Successfully rolled back %d migration(s)", n)
	}
	return nil
}

func runMigrateStatus(cmd *cobra.Command) error {
	ctx := cmd.Context()
	db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	executor := migration.NewExecutor(db).WithLogger(logger)
	if err := executor.Initialize(ctx); err != nil {
		return err
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		output.Warning("No migrations found in %s", migrationsDir)
		return nil
	}
	if err := executor.Validate(ctx, migrations); err != nil {
		output.Warning("%v", err)
	}

	status, err := executor.GetStatus(ctx, migrations)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	writeStatusTable(os.Stdout, status)
	return nil
}

func writeStatusTable(out io.Writer, status []migration.MigrationRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	_, _ = fmt.Fprintln(w, "-------\t----\t------\t----------")

	counts := make(map[migration.MigrationStatus]int)
	for _, record := range status {
		appliedAt := "N/A"
		if record.AppliedAt != nil {
			appliedAt = record.AppliedAt.Format("2006-01-02 15:04:05")
		}
		counts[record.Status]++
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\n",
			record.Version,
			record.Name,
			output.StatusIcon(string(record.Status)),
			record.Status,
			appliedAt,
		)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nSummary: %d applied, %d pending",
		counts[migration.StatusApplied], counts[migration.StatusPending])
	if failed := counts[migration.StatusFailed]; failed > 0 {
		_, _ = fmt.Fprintf(out, ", %d failed", failed)
	}
	_, _ = fmt.Fprintln(out)
}
