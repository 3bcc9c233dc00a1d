package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/mdobak/go-xerrors"
	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-social/cmd/pebble-social/output"
	"github.com/marshallshelly/pebble-social/internal/config"
	"github.com/marshallshelly/pebble-social/internal/logging"
	"github.com/marshallshelly/pebble-social/internal/models"
	"github.com/marshallshelly/pebble-social/pkg/builder"
	"github.com/marshallshelly/pebble-social/pkg/runtime"
)

var (
	// Global flags
	dbURL         string
	migrationsDir string
	verbose       bool
	jsonOutput    bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pebble-social",
	Short: "Social schema tooling: migrations, admin, seed data",
	Long: `pebble-social manages the users, profiles, posts, comments and follows
tables and exposes them through an admin interface.

Configuration is read from the environment and .env; flags override it.`,
	Version:       "0.3.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if dbURL != "" {
			cfg.Database.URL = dbURL
		}
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger = logging.New(os.Stderr, cfg.Log.Format, level)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		output.Error("%v", err)
		if verbose {
			output.Muted("%s", xerrors.Sprint(err))
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL (overrides DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "migrations-dir", "./migrations", "Directory for migration files")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// connect opens the pool described by the config.
func connect(ctx context.Context) (*runtime.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := runtime.Connect(ctx, &runtime.Config{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxLifetime,
	})
	if err != nil {
		return nil, xerrors.New(err)
	}
	return db, nil
}

// openSession connects and binds the social schema to the pool.
func openSession(ctx context.Context) (*runtime.DB, *builder.DB, error) {
	reg, err := models.NewSchema()
	if err != nil {
		return nil, nil, xerrors.New(err)
	}
	db, err := connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	return db, builder.New(db, reg), nil
}
