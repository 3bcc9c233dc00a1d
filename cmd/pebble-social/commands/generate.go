package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/mdobak/go-xerrors"
	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-social/cmd/pebble-social/output"
	"github.com/marshallshelly/pebble-social/internal/models"
	"github.com/marshallshelly/pebble-social/pkg/migration"
)

var (
	// Generate flags
	migrationName string
	empty         bool
	fromDB        bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate migration files",
	Long: `Generate a timestamped up/down migration pair.

By default the files create the whole social schema (users, profiles,
posts, comments, follows) in dependency order. With --diff the database is
introspected and only the changes needed to match the models are written.

Examples:
  pebble-social generate --name initial_schema
  pebble-social generate --name add_post_index --diff
  pebble-social generate --name backfill --empty`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&migrationName, "name", "n", "", "Migration name (required)")
	generateCmd.Flags().BoolVar(&empty, "empty", false, "Generate empty migration for manual editing")
	generateCmd.Flags().BoolVar(&fromDB, "diff", false, "Diff the models against the database")
	generateCmd.MarkFlagsMutuallyExclusive("empty", "diff")
	_ = generateCmd.MarkFlagRequired("name")
}

func runGenerate(ctx context.Context) error {
	generator := migration.NewGenerator(migrationsDir)

	var (
		file *migration.MigrationFile
		err  error
	)
	switch {
	case empty:
		file, err = generator.GenerateEmpty(migrationName)
	case fromDB:
		diff, diffErr := diffDatabase(ctx)
		if diffErr != nil {
			return diffErr
		}
		if !diff.HasChanges() {
			output.Info("No schema changes detected. Database is in sync with models.")
			return nil
		}
		output.Section("Detected Schema Changes")
		writeDiffSummary(output.Out, diff)
		file, err = generator.GenerateDiff(migrationName, diff)
	default:
		reg, regErr := models.NewSchema()
		if regErr != nil {
			return xerrors.New(regErr)
		}
		file, err = generator.Generate(migrationName, reg.All())
	}
	if err != nil {
		return xerrors.New(err)
	}

	output.Success("Created migration: %s", file.Version)
	output.Muted("  Up:   %s", file.UpPath)
	output.Muted("  Down: %s", file.DownPath)
	switch {
	case empty:
		output.Info("Edit the SQL files manually to add your migration logic.")
	case fromDB:
		output.Info("Review the generated SQL files before applying the migration.")
	}
	return nil
}

// diffDatabase compares the models with the connected database.
func diffDatabase(ctx context.Context) (*migration.SchemaDiff, error) {
	reg, err := models.NewSchema()
	if err != nil {
		return nil, xerrors.New(err)
	}

	db, err := connect(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	current, err := migration.NewIntrospector(db).IntrospectSchema(ctx)
	if err != nil {
		return nil, xerrors.New(err)
	}
	logger.Debug("introspected database", "tables", len(current))

	return migration.NewDiffer().Compare(reg.All(), current), nil
}

func writeDiffSummary(w io.Writer, diff *migration.SchemaDiff) {
	for _, t := range diff.TablesAdded {
		fmt.Fprintf(w, "  + %s\n", t.Name)
	}
	for _, t := range diff.TablesModified {
		fmt.Fprintf(w, "  ~ %s\n", t.TableName)
		counts := []struct {
			sign string
			n    int
			what string
		}{
			{"+", len(t.ColumnsAdded), "column(s)"},
			{"-", len(t.ColumnsDropped), "column(s)"},
			{"~", len(t.ColumnsModified), "column(s)"},
			{"+", len(t.IndexesAdded), "index(es)"},
			{"-", len(t.IndexesDropped), "index(es)"},
			{"+", len(t.ForeignKeysAdded) + len(t.ConstraintsAdded), "constraint(s)"},
			{"-", len(t.ForeignKeysDropped) + len(t.ConstraintsDropped), "constraint(s)"},
		}
		for _, c := range counts {
			if c.n > 0 {
				fmt.Fprintf(w, "      %s %d %s\n", c.sign, c.n, c.what)
			}
		}
		if t.PrimaryKeyChanged != nil {
			fmt.Fprintln(w, "      ~ primary key")
		}
	}
	for _, t := range diff.TablesDropped {
		fmt.Fprintf(w, "  - %s\n", t.Name)
	}
}
