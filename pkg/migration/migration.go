// Package migration plans, writes and applies SQL migrations.
//
// Migrations live on disk as paired files named
// {version}_{name}.up.sql and {version}_{name}.down.sql, where version is a
// UTC timestamp (YYYYMMDDHHmmss). Applied versions are tracked in the
// schema_migrations table.
package migration

import (
	"time"

	"github.com/marshallshelly/pebble-social/pkg/schema"
)

// Migration represents a database migration.
type Migration struct {
	Version   string
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
}

// MigrationFile represents a migration file pair on disk.
type MigrationFile struct {
	Version  string
	Name     string
	UpPath   string
	DownPath string
}

// MigrationStatus represents the status of a migration.
type MigrationStatus string

const (
	// StatusPending means the migration has not been applied.
	StatusPending MigrationStatus = "pending"
	// StatusApplied means the migration has been applied.
	StatusApplied MigrationStatus = "applied"
	// StatusFailed means the last attempt to apply the migration failed.
	StatusFailed MigrationStatus = "failed"
)

// MigrationRecord represents a row of the tracking table.
type MigrationRecord struct {
	Version   string
	Name      string
	Status    MigrationStatus
	AppliedAt *time.Time
	Error     *string
}

// Pending returns the migrations whose version is not in applied, in the
// order they were given.
func Pending(migrations []Migration, applied []MigrationRecord) []Migration {
	done := make(map[string]bool, len(applied))
	for _, r := range applied {
		if r.Status == StatusApplied {
			done[r.Version] = true
		}
	}

	var pending []Migration
	for _, m := range migrations {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// GenerateVersion generates a timestamp-based version string.
// Format: YYYYMMDDHHmmss (e.g., "20240101120000")
func GenerateVersion() string {
	return time.Now().UTC().Format("20060102150405")
}

// GenerateFileName generates a migration filename.
// Format: {version}_{name}.{up|down}.sql
func GenerateFileName(version, name, direction string) string {
	return version + "_" + name + "." + direction + ".sql"
}

// SchemaDiff is the set of changes that brings a database in line with the
// models. Dropped objects keep their full definition so the down migration
// can recreate them.
type SchemaDiff struct {
	TablesAdded    []schema.TableMetadata
	TablesDropped  []schema.TableMetadata
	TablesModified []TableDiff
}

// TableDiff holds the changes to one table present on both sides.
type TableDiff struct {
	TableName          string
	ColumnsAdded       []schema.ColumnMetadata
	ColumnsDropped     []schema.ColumnMetadata
	ColumnsModified    []ColumnDiff
	IndexesAdded       []schema.IndexMetadata
	IndexesDropped     []schema.IndexMetadata
	ForeignKeysAdded   []schema.ForeignKeyMetadata
	ForeignKeysDropped []schema.ForeignKeyMetadata
	ConstraintsAdded   []schema.ConstraintMetadata
	ConstraintsDropped []schema.ConstraintMetadata
	PrimaryKeyChanged  *PrimaryKeyChange
}

// ColumnDiff describes a column whose type, nullability or default changed.
type ColumnDiff struct {
	ColumnName     string
	OldColumn      schema.ColumnMetadata
	NewColumn      schema.ColumnMetadata
	TypeChanged    bool
	NullChanged    bool
	DefaultChanged bool
}

// PrimaryKeyChange represents a change to the primary key.
type PrimaryKeyChange struct {
	Old *schema.PrimaryKeyMetadata
	New *schema.PrimaryKeyMetadata
}

// HasChanges returns true if there are any schema differences.
func (d *SchemaDiff) HasChanges() bool {
	return len(d.TablesAdded) > 0 ||
		len(d.TablesDropped) > 0 ||
		len(d.TablesModified) > 0
}

// HasChanges returns true if the table has any changes.
func (t *TableDiff) HasChanges() bool {
	return len(t.ColumnsAdded) > 0 ||
		len(t.ColumnsDropped) > 0 ||
		len(t.ColumnsModified) > 0 ||
		len(t.IndexesAdded) > 0 ||
		len(t.IndexesDropped) > 0 ||
		len(t.ForeignKeysAdded) > 0 ||
		len(t.ForeignKeysDropped) > 0 ||
		len(t.ConstraintsAdded) > 0 ||
		len(t.ConstraintsDropped) > 0 ||
		t.PrimaryKeyChanged != nil
}
