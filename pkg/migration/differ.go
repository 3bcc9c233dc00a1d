package migration

import (
	"sort"
	"strings"

	"github.com/marshallshelly/pebble-social/pkg/schema"
)

// Differ compares the schema declared by models with the one found in the
// database.
type Differ struct{}

// NewDiffer creates a new schema differ.
func NewDiffer() *Differ {
	return &Differ{}
}

// Compare returns the changes that turn dbSchema into codeTables. codeTables
// is expected in dependency order, as registry.All returns it, and added
// tables keep that order. Dropped tables are ordered so that a table is
// dropped before any table it references.
func (d *Differ) Compare(codeTables []*schema.TableMetadata, dbSchema map[string]*schema.TableMetadata) *SchemaDiff {
	diff := &SchemaDiff{}

	inCode := make(map[string]bool, len(codeTables))
	for _, codeTable := range codeTables {
		inCode[codeTable.Name] = true

		dbTable, exists := dbSchema[codeTable.Name]
		if !exists {
			diff.TablesAdded = append(diff.TablesAdded, *codeTable)
			continue
		}
		if tableDiff := d.compareTable(codeTable, dbTable); tableDiff.HasChanges() {
			diff.TablesModified = append(diff.TablesModified, tableDiff)
		}
	}

	for _, name := range sortedKeys(dbSchema) {
		if !inCode[name] {
			diff.TablesDropped = append(diff.TablesDropped, *dbSchema[name])
		}
	}
	diff.TablesDropped = dropOrder(diff.TablesDropped)

	return diff
}

// dropOrder repeatedly takes the tables no remaining table references.
// Reference cycles are appended as they are.
func dropOrder(tables []schema.TableMetadata) []schema.TableMetadata {
	ordered := make([]schema.TableMetadata, 0, len(tables))
	remaining := tables
	for len(remaining) > 0 {
		referenced := make(map[string]bool)
		for _, t := range remaining {
			for _, fk := range t.ForeignKeys {
				if fk.ReferencedTable != t.Name {
					referenced[fk.ReferencedTable] = true
				}
			}
		}

		var next []schema.TableMetadata
		for _, t := range remaining {
			if referenced[t.Name] {
				next = append(next, t)
			} else {
				ordered = append(ordered, t)
			}
		}
		if len(next) == len(remaining) {
			return append(ordered, next...)
		}
		remaining = next
	}
	return ordered
}

func (d *Differ) compareTable(codeTable, dbTable *schema.TableMetadata) TableDiff {
	diff := TableDiff{TableName: codeTable.Name}

	d.compareColumns(codeTable, dbTable, &diff)
	d.comparePrimaryKey(codeTable, dbTable, &diff)
	d.compareIndexes(codeTable, dbTable, &diff)
	d.compareForeignKeys(codeTable, dbTable, &diff)
	d.compareConstraints(codeTable, dbTable, &diff)

	return diff
}

func (d *Differ) compareColumns(codeTable, dbTable *schema.TableMetadata, diff *TableDiff) {
	for _, codeCol := range codeTable.Columns {
		dbCol := dbTable.GetColumn(codeCol.Name)
		if dbCol == nil {
			diff.ColumnsAdded = append(diff.ColumnsAdded, codeCol)
			continue
		}
		if colDiff := d.compareColumn(codeCol, *dbCol); colDiff.hasChanges() {
			diff.ColumnsModified = append(diff.ColumnsModified, colDiff)
		}
	}

	for _, dbCol := range dbTable.Columns {
		if codeTable.GetColumn(dbCol.Name) == nil {
			diff.ColumnsDropped = append(diff.ColumnsDropped, dbCol)
		}
	}
}

func (d *Differ) compareColumn(codeCol, dbCol schema.ColumnMetadata) ColumnDiff {
	return ColumnDiff{
		ColumnName:     codeCol.Name,
		OldColumn:      dbCol,
		NewColumn:      codeCol,
		TypeChanged:    normalizeType(codeCol.SQLType) != normalizeType(dbCol.SQLType),
		NullChanged:    codeCol.Nullable != dbCol.Nullable,
		DefaultChanged: !sameDefault(codeCol, dbCol),
	}
}

func (c *ColumnDiff) hasChanges() bool {
	return c.TypeChanged || c.NullChanged || c.DefaultChanged
}

func (d *Differ) comparePrimaryKey(codeTable, dbTable *schema.TableMetadata, diff *TableDiff) {
	codePK, dbPK := codeTable.PrimaryKey, dbTable.PrimaryKey
	if codePK == nil && dbPK == nil {
		return
	}
	if codePK == nil || dbPK == nil || !sameStrings(codePK.Columns, dbPK.Columns) {
		diff.PrimaryKeyChanged = &PrimaryKeyChange{Old: dbPK, New: codePK}
	}
}

// compareIndexes matches indexes by name.
func (d *Differ) compareIndexes(codeTable, dbTable *schema.TableMetadata, diff *TableDiff) {
	dbIndexes := make(map[string]bool, len(dbTable.Indexes))
	for _, idx := range dbTable.Indexes {
		dbIndexes[idx.Name] = true
	}
	codeIndexes := make(map[string]bool, len(codeTable.Indexes))
	for _, idx := range codeTable.Indexes {
		codeIndexes[idx.Name] = true
		if !dbIndexes[idx.Name] {
			diff.IndexesAdded = append(diff.IndexesAdded, idx)
		}
	}
	for _, idx := range dbTable.Indexes {
		if !codeIndexes[idx.Name] {
			diff.IndexesDropped = append(diff.IndexesDropped, idx)
		}
	}
}

// compareForeignKeys matches foreign keys by name.
func (d *Differ) compareForeignKeys(codeTable, dbTable *schema.TableMetadata, diff *TableDiff) {
	dbFKs := make(map[string]bool, len(dbTable.ForeignKeys))
	for _, fk := range dbTable.ForeignKeys {
		dbFKs[fk.Name] = true
	}
	codeFKs := make(map[string]bool, len(codeTable.ForeignKeys))
	for _, fk := range codeTable.ForeignKeys {
		codeFKs[fk.Name] = true
		if !dbFKs[fk.Name] {
			diff.ForeignKeysAdded = append(diff.ForeignKeysAdded, fk)
		}
	}
	for _, fk := range dbTable.ForeignKeys {
		if !codeFKs[fk.Name] {
			diff.ForeignKeysDropped = append(diff.ForeignKeysDropped, fk)
		}
	}
}

// compareConstraints matches UNIQUE constraints by columns and CHECK
// constraints by name. A column declared unique in code counts as a UNIQUE
// constraint on that column, which is how PostgreSQL reports it back.
func (d *Differ) compareConstraints(codeTable, dbTable *schema.TableMetadata, diff *TableDiff) {
	code := append([]schema.ConstraintMetadata(nil), codeTable.Constraints...)
	for _, col := range codeTable.Columns {
		// New columns carry UNIQUE in their definition.
		if col.Unique && dbTable.GetColumn(col.Name) != nil {
			code = append(code, schema.ConstraintMetadata{
				Name:    codeTable.Name + "_" + col.Name + "_key",
				Type:    schema.UniqueConstraint,
				Columns: []string{col.Name},
			})
		}
	}

	dbKeys := make(map[string]bool, len(dbTable.Constraints))
	for _, c := range dbTable.Constraints {
		dbKeys[constraintKey(c)] = true
	}
	codeKeys := make(map[string]bool, len(code))
	for _, c := range code {
		codeKeys[constraintKey(c)] = true
		if !dbKeys[constraintKey(c)] {
			diff.ConstraintsAdded = append(diff.ConstraintsAdded, c)
		}
	}
	for _, c := range dbTable.Constraints {
		if !codeKeys[constraintKey(c)] {
			diff.ConstraintsDropped = append(diff.ConstraintsDropped, c)
		}
	}
}

func constraintKey(c schema.ConstraintMetadata) string {
	if c.Type == schema.UniqueConstraint {
		return "unique:" + strings.Join(c.Columns, ",")
	}
	return c.Name
}

// normalizeType maps aliases and serial pseudotypes to the type PostgreSQL
// reports for the column.
func normalizeType(sqlType string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(sqlType)), " ")

	switch normalized {
	case "int", "int4", "serial", "serial4":
		return "integer"
	case "int2", "smallserial", "serial2":
		return "smallint"
	case "int8", "bigserial", "serial8":
		return "bigint"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	case "bool":
		return "boolean"
	case "timestamp without time zone":
		return "timestamp"
	case "timestamp with time zone":
		return "timestamptz"
	case "character varying":
		return "varchar"
	}
	if n, ok := strings.CutPrefix(normalized, "character varying("); ok {
		return "varchar(" + n
	}
	return normalized
}

// sameDefault treats a serial column in code and a nextval default in the
// database as equal.
func sameDefault(codeCol, dbCol schema.ColumnMetadata) bool {
	if isSerial(codeCol) && dbCol.Default != nil && strings.Contains(strings.ToLower(*dbCol.Default), "nextval(") {
		return true
	}
	if codeCol.Default == nil || dbCol.Default == nil {
		return codeCol.Default == nil && dbCol.Default == nil
	}
	return normalizeDefault(*codeCol.Default) == normalizeDefault(*dbCol.Default)
}

func isSerial(col schema.ColumnMetadata) bool {
	if col.AutoIncrement {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(col.SQLType)) {
	case "serial", "bigserial", "smallserial", "serial2", "serial4", "serial8":
		return true
	}
	return false
}

// normalizeDefault lowercases an expression and strips outer parentheses
// and a trailing cast, so NOW() matches now() and 'x'::text matches 'x'.
func normalizeDefault(expr string) string {
	normalized := strings.ToLower(strings.TrimSpace(expr))
	if strings.HasPrefix(normalized, "(") && strings.HasSuffix(normalized, ")") {
		normalized = normalized[1 : len(normalized)-1]
	}
	if idx := strings.Index(normalized, "::"); idx != -1 {
		normalized = normalized[:idx]
	}
	return strings.TrimSpace(normalized)
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedKeys(tables map[string]*schema.TableMetadata) []string {
	keys := make([]string, 0, len(tables))
	for k := range tables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
