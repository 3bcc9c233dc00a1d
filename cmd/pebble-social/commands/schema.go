package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mdobak/go-xerrors"
	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-social/cmd/pebble-social/output"
	"github.com/marshallshelly/pebble-social/internal/models"
	"github.com/marshallshelly/pebble-social/pkg/migration"
	"github.com/marshallshelly/pebble-social/pkg/schema"
)

var showDown bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the social schema",
	Long: `Print the CREATE statements for the registered models, or their
metadata with --json. No database connection is needed.

Examples:
  pebble-social schema
  pebble-social schema --down
  pebble-social schema --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSchema(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().BoolVar(&showDown, "down", false, "Print the DROP statements instead")
}

type tableSummary struct {
	Name        string            `json:"name"`
	Columns     []columnSummary   `json:"columns"`
	ForeignKeys []string          `json:"foreign_keys,omitempty"`
	Indexes     []string          `json:"indexes,omitempty"`
	Checks      map[string]string `json:"checks,omitempty"`
}

type columnSummary struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
	Unique   bool    `json:"unique,omitempty"`
}

func summarize(t *schema.TableMetadata) tableSummary {
	s := tableSummary{Name: t.Name}
	for _, c := range t.Columns {
		s.Columns = append(s.Columns, columnSummary{
			Name:     c.Name,
			Type:     c.SQLType,
			Nullable: c.Nullable,
			Default:  c.Default,
			Unique:   c.Unique,
		})
	}
	for _, fk := range t.ForeignKeys {
		s.ForeignKeys = append(s.ForeignKeys, fk.Name)
	}
	for _, idx := range t.Indexes {
		s.Indexes = append(s.Indexes, idx.Name)
	}
	for _, c := range t.Constraints {
		if c.Type == schema.CheckConstraint {
			if s.Checks == nil {
				s.Checks = make(map[string]string)
			}
			s.Checks[c.Name] = c.Expression
		}
	}
	return s
}

func runSchema(w io.Writer) error {
	reg, err := models.NewSchema()
	if err != nil {
		return xerrors.New(err)
	}
	tables := reg.All()

	if jsonOutput {
		summaries := make([]tableSummary, len(tables))
		for i, t := range tables {
			summaries[i] = summarize(t)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	up, down := migration.NewPlanner().CreateSchema(tables)
	if showDown {
		_, err = fmt.Fprintln(w, down)
	} else {
		_, err = fmt.Fprintln(w, up)
	}
	if err == nil {
		output.Muted("-- %d tables: %v", len(tables), reg.Names())
	}
	return err
}
