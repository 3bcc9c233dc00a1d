package migration

import (
	"fmt"
	"strings"

	"github.com/marshallshelly/pebble-social/pkg/schema"
)

// PlannerOptions configures migration generation behavior.
type PlannerOptions struct {
	// IfNotExists adds IF NOT EXISTS to CREATE TABLE and CREATE INDEX.
	IfNotExists bool
}

// Planner turns table metadata into DDL.
type Planner struct {
	options PlannerOptions
}

// NewPlanner creates a planner that emits idempotent DDL.
func NewPlanner() *Planner {
	return &Planner{options: PlannerOptions{IfNotExists: true}}
}

// NewPlannerWithOptions creates a new migration planner with custom options.
func NewPlannerWithOptions(opts PlannerOptions) *Planner {
	return &Planner{options: opts}
}

// CreateSchema returns the DDL that creates tables, and the DDL that drops
// them again. tables must already be ordered so that referenced tables come
// first, as registry.All returns them; the drops run in reverse.
func (p *Planner) CreateSchema(tables []*schema.TableMetadata) (upSQL, downSQL string) {
	up := make([]string, 0, len(tables))
	down := make([]string, 0, len(tables))

	for _, table := range tables {
		up = append(up, p.CreateTable(table))
	}
	for i := len(tables) - 1; i >= 0; i-- {
		down = append(down, p.DropTable(tables[i].Name))
	}

	return strings.Join(up, "\n\n") + "\n", strings.Join(down, "\n") + "\n"
}

// CreateTable generates a CREATE TABLE statement followed by its indexes.
func (p *Planner) CreateTable(table *schema.TableMetadata) string {
	var parts []string

	var inlinePK string
	if table.PrimaryKey != nil && len(table.PrimaryKey.Columns) == 1 {
		inlinePK = table.PrimaryKey.Columns[0]
	}

	for _, col := range table.Columns {
		def := p.columnDefinition(col)
		if col.Name == inlinePK {
			def += " PRIMARY KEY"
		}
		parts = append(parts, "    "+def)
	}

	if table.PrimaryKey != nil && len(table.PrimaryKey.Columns) > 1 {
		parts = append(parts, fmt.Sprintf("    CONSTRAINT %s PRIMARY KEY (%s)",
			table.PrimaryKey.Name, strings.Join(table.PrimaryKey.Columns, ", ")))
	}

	for _, fk := range table.ForeignKeys {
		parts = append(parts, "    "+p.foreignKeyDefinition(fk))
	}

	for _, c := range table.Constraints {
		switch c.Type {
		case schema.CheckConstraint:
			parts = append(parts, fmt.Sprintf("    CONSTRAINT %s CHECK (%s)", c.Name, c.Expression))
		case schema.UniqueConstraint:
			parts = append(parts, fmt.Sprintf("    CONSTRAINT %s UNIQUE (%s)", c.Name, strings.Join(c.Columns, ", ")))
		}
	}

	createClause := "CREATE TABLE"
	if p.options.IfNotExists {
		createClause = "CREATE TABLE IF NOT EXISTS"
	}
	sql := fmt.Sprintf("%s %s (\n%s\n);", createClause, table.Name, strings.Join(parts, ",\n"))

	for _, idx := range table.Indexes {
		sql += "\n" + p.createIndex(table.Name, idx)
	}

	return sql
}

// DropTable generates a DROP TABLE statement.
func (p *Planner) DropTable(tableName string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", tableName)
}

func (p *Planner) columnDefinition(col schema.ColumnMetadata) string {
	parts := []string{col.Name, col.SQLType}

	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.Default != nil {
		parts = append(parts, "DEFAULT", *col.Default)
	}
	if col.Unique {
		parts = append(parts, "UNIQUE")
	}

	return strings.Join(parts, " ")
}

// foreignKeyDefinition omits ON DELETE / ON UPDATE for NO ACTION, the
// PostgreSQL default.
func (p *Planner) foreignKeyDefinition(fk schema.ForeignKeyMetadata) string {
	parts := []string{
		fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s)", fk.Name, strings.Join(fk.Columns, ", ")),
		fmt.Sprintf("REFERENCES %s (%s)", fk.ReferencedTable, strings.Join(fk.ReferencedColumns, ", ")),
	}

	if fk.OnDelete != schema.NoAction && fk.OnDelete != "" {
		parts = append(parts, "ON DELETE "+string(fk.OnDelete))
	}
	if fk.OnUpdate != schema.NoAction && fk.OnUpdate != "" {
		parts = append(parts, "ON UPDATE "+string(fk.OnUpdate))
	}

	return strings.Join(parts, " ")
}

func (p *Planner) createIndex(tableName string, idx schema.IndexMetadata) string {
	parts := []string{"CREATE INDEX"}
	if idx.Unique {
		parts[0] = "CREATE UNIQUE INDEX"
	}
	if p.options.IfNotExists {
		parts = append(parts, "IF NOT EXISTS")
	}
	parts = append(parts, idx.Name, "ON", tableName, "("+strings.Join(idx.Columns, ", ")+")")

	return strings.Join(parts, " ") + ";"
}

type step struct {
	up   []string
	down []string
}

// GenerateMigration returns the DDL that applies diff and the DDL that
// reverts it. The down statements undo the up statements in reverse order.
func (p *Planner) GenerateMigration(diff *SchemaDiff) (upSQL, downSQL string) {
	var steps []step

	for i := range diff.TablesAdded {
		table := &diff.TablesAdded[i]
		steps = append(steps, step{
			up:   []string{p.CreateTable(table)},
			down: []string{p.DropTable(table.Name)},
		})
	}
	for _, tableDiff := range diff.TablesModified {
		steps = append(steps, p.alterTable(tableDiff)...)
	}
	for i := range diff.TablesDropped {
		table := restorable(diff.TablesDropped[i])
		steps = append(steps, step{
			up:   []string{p.DropTable(table.Name)},
			down: []string{p.CreateTable(&table)},
		})
	}

	var up, down []string
	for _, s := range steps {
		up = append(up, s.up...)
	}
	for i := len(steps) - 1; i >= 0; i-- {
		down = append(down, steps[i].down...)
	}
	return strings.Join(up, "\n") + "\n", strings.Join(down, "\n") + "\n"
}

// alterTable orders the changes to one table so that nothing is dropped
// while a constraint still depends on it and nothing is referenced before
// it exists.
func (p *Planner) alterTable(diff TableDiff) []step {
	t := diff.TableName
	var steps []step
	add := func(up, down string) {
		steps = append(steps, step{up: []string{up}, down: []string{down}})
	}

	for _, fk := range diff.ForeignKeysDropped {
		add(dropConstraint(t, fk.Name), fmt.Sprintf("ALTER TABLE %s ADD %s;", t, p.foreignKeyDefinition(fk)))
	}
	for _, c := range diff.ConstraintsDropped {
		add(dropConstraint(t, c.Name), p.addConstraint(t, c))
	}
	for _, idx := range diff.IndexesDropped {
		add(dropIndex(idx.Name), p.createIndex(t, idx))
	}
	for _, col := range diff.ColumnsAdded {
		add(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", t, p.columnDefinition(col)),
			fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s;", t, col.Name))
	}
	for _, colDiff := range diff.ColumnsModified {
		steps = append(steps, p.alterColumn(t, colDiff))
	}
	if pk := diff.PrimaryKeyChanged; pk != nil {
		steps = append(steps, p.changePrimaryKey(t, pk))
	}
	for _, col := range diff.ColumnsDropped {
		add(fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s;", t, col.Name),
			fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", t, p.columnDefinition(restorableColumn(col))))
	}
	for _, idx := range diff.IndexesAdded {
		add(p.createIndex(t, idx), dropIndex(idx.Name))
	}
	for _, c := range diff.ConstraintsAdded {
		add(p.addConstraint(t, c), dropConstraint(t, c.Name))
	}
	for _, fk := range diff.ForeignKeysAdded {
		add(fmt.Sprintf("ALTER TABLE %s ADD %s;", t, p.foreignKeyDefinition(fk)), dropConstraint(t, fk.Name))
	}

	return steps
}

func (p *Planner) alterColumn(table string, diff ColumnDiff) step {
	var s step
	col := diff.ColumnName

	if diff.TypeChanged {
		newType, oldType := normalizeType(diff.NewColumn.SQLType), normalizeType(diff.OldColumn.SQLType)
		s.up = append(s.up, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s;", table, col, newType, col, newType))
		s.down = append(s.down, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s;", table, col, oldType, col, oldType))
	}

	if diff.NullChanged {
		set, unset := "SET NOT NULL", "DROP NOT NULL"
		if diff.NewColumn.Nullable {
			set, unset = unset, set
		}
		s.up = append(s.up, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s;", table, col, set))
		s.down = append(s.down, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s;", table, col, unset))
	}

	if diff.DefaultChanged {
		s.up = append(s.up, setDefault(table, col, diff.NewColumn.Default))
		s.down = append(s.down, setDefault(table, col, diff.OldColumn.Default))
	}

	return s
}

func (p *Planner) changePrimaryKey(table string, change *PrimaryKeyChange) step {
	var s step
	if change.Old != nil {
		s.up = append(s.up, dropConstraint(table, change.Old.Name))
	}
	if change.New != nil {
		s.up = append(s.up, addPrimaryKey(table, change.New))
		s.down = append(s.down, dropConstraint(table, change.New.Name))
	}
	if change.Old != nil {
		s.down = append(s.down, addPrimaryKey(table, change.Old))
	}
	return s
}

func (p *Planner) addConstraint(table string, c schema.ConstraintMetadata) string {
	if c.Type == schema.UniqueConstraint {
		return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s);", table, c.Name, strings.Join(c.Columns, ", "))
	}
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);", table, c.Name, c.Expression)
}

func addPrimaryKey(table string, pk *schema.PrimaryKeyMetadata) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s);", table, pk.Name, strings.Join(pk.Columns, ", "))
}

func dropConstraint(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;", table, name)
}

func dropIndex(name string) string {
	return fmt.Sprintf("DROP INDEX IF EXISTS %s;", name)
}

func setDefault(table, col string, def *string) string {
	if def == nil {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;", table, col)
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;", table, col, *def)
}

// restorable rewrites an introspected table so its CREATE TABLE can run
// after the original was dropped along with its sequences.
func restorable(table schema.TableMetadata) schema.TableMetadata {
	cols := make([]schema.ColumnMetadata, len(table.Columns))
	for i, col := range table.Columns {
		cols[i] = restorableColumn(col)
	}
	table.Columns = cols
	return table
}

// restorableColumn turns integer columns fed by a sequence back into serial
// columns.
func restorableColumn(col schema.ColumnMetadata) schema.ColumnMetadata {
	if col.Default == nil || !strings.Contains(strings.ToLower(*col.Default), "nextval(") {
		return col
	}
	switch normalizeType(col.SQLType) {
	case "integer":
		col.SQLType = "serial"
	case "bigint":
		col.SQLType = "bigserial"
	case "smallint":
		col.SQLType = "smallserial"
	default:
		return col
	}
	col.Default = nil
	return col
}
