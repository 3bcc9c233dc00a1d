package commands

import (
	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-social/cmd/pebble-social/tui"
	"github.com/marshallshelly/pebble-social/internal/admin"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Browse and edit records in the terminal",
	Long: `Open the interactive admin: pick a model, page through its records,
and create, edit or delete them as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, session, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		a, err := admin.Setup(cfg.Admin.Name, session, cfg.BcryptCost)
		if err != nil {
			return err
		}
		return tui.RunAdmin(ctx, a, cfg.Admin.PageSize)
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
}
