package schema

import (
	"database/sql"
	"reflect"
	"time"
)

// TableMetadata describes a table derived from a tagged Go struct.
type TableMetadata struct {
	Name          string
	GoType        reflect.Type
	Columns       []ColumnMetadata
	PrimaryKey    *PrimaryKeyMetadata
	ForeignKeys   []ForeignKeyMetadata
	Indexes       []IndexMetadata
	Constraints   []ConstraintMetadata
	Relationships []RelationshipMetadata
}

// ColumnMetadata describes a single column.
type ColumnMetadata struct {
	Name          string
	GoField       string
	GoType        reflect.Type
	SQLType       string
	Nullable      bool
	Default       *string
	Unique        bool
	AutoIncrement bool
	Position      int
}

// PrimaryKeyMetadata describes a (possibly composite) primary key.
type PrimaryKeyMetadata struct {
	Name    string
	Columns []string
}

// ForeignKeyMetadata describes a foreign key constraint.
type ForeignKeyMetadata struct {
	Name              string
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
	OnDelete          ReferenceAction
	OnUpdate          ReferenceAction
}

// IndexMetadata describes an index created alongside the table.
type IndexMetadata struct {
	Name    string
	Columns []string
	Unique  bool
}

// ConstraintMetadata describes a table-level constraint.
type ConstraintMetadata struct {
	Name       string
	Type       ConstraintType
	Columns    []string
	Expression string
}

// ConstraintType is the kind of a table constraint.
type ConstraintType string

const (
	// CheckConstraint is a CHECK (expr) constraint.
	CheckConstraint ConstraintType = "CHECK"
	// UniqueConstraint is a UNIQUE (cols) constraint.
	UniqueConstraint ConstraintType = "UNIQUE"
)

// ReferenceAction is the action taken on a referencing row when the
// referenced row is deleted or updated.
type ReferenceAction string

const (
	NoAction   ReferenceAction = "NO ACTION"
	Restrict   ReferenceAction = "RESTRICT"
	Cascade    ReferenceAction = "CASCADE"
	SetNull    ReferenceAction = "SET NULL"
	SetDefault ReferenceAction = "SET DEFAULT"
)

// RelationType is the kind of a relationship between two tables.
type RelationType string

const (
	// BelongsTo means the source table holds the foreign key.
	BelongsTo RelationType = "belongsTo"
	// HasOne means the target table holds a unique foreign key to the source.
	HasOne RelationType = "hasOne"
	// HasMany means the target table holds a foreign key to the source.
	HasMany RelationType = "hasMany"
)

// RelationshipMetadata describes navigation from one table to another.
// ForeignKey is the column that binds the relationship; two relationships
// between the same pair of tables are told apart by it.
type RelationshipMetadata struct {
	Type         RelationType
	SourceTable  string
	SourceField  string
	TargetTable  string
	TargetField  string
	TargetType   reflect.Type
	ForeignKey   string
	References   string
	InverseField *string
}

// GetColumn returns the column with the given name, or nil.
func (t *TableMetadata) GetColumn(name string) *ColumnMetadata {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// GetColumnByField returns the column mapped to the given Go field, or nil.
func (t *TableMetadata) GetColumnByField(field string) *ColumnMetadata {
	for i := range t.Columns {
		if t.Columns[i].GoField == field {
			return &t.Columns[i]
		}
	}
	return nil
}

// IsPrimaryKey reports whether column is part of the primary key.
func (t *TableMetadata) IsPrimaryKey(column string) bool {
	if t.PrimaryKey == nil {
		return false
	}
	for _, c := range t.PrimaryKey.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// PrimaryKeyColumn returns the single primary key column, or nil for tables
// without a primary key or with a composite one.
func (t *TableMetadata) PrimaryKeyColumn() *ColumnMetadata {
	if t.PrimaryKey == nil || len(t.PrimaryKey.Columns) != 1 {
		return nil
	}
	return t.GetColumn(t.PrimaryKey.Columns[0])
}

// ColumnNames returns column names in declaration order.
func (t *TableMetadata) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// TypeMapper handles mapping between Go types and PostgreSQL types.
type TypeMapper struct {
	customMappings map[reflect.Type]string
}

// NewTypeMapper creates a new TypeMapper instance.
func NewTypeMapper() *TypeMapper {
	return &TypeMapper{
		customMappings: make(map[reflect.Type]string),
	}
}

// RegisterType registers a custom type mapping.
func (tm *TypeMapper) RegisterType(goType reflect.Type, pgType string) {
	tm.customMappings[goType] = pgType
}

// GoTypeToPostgreSQL maps a Go type to its PostgreSQL equivalent.
// Returns empty string when the column must declare its type in the tag.
func (tm *TypeMapper) GoTypeToPostgreSQL(t reflect.Type) string {
	if pgType, ok := tm.customMappings[t]; ok {
		return pgType
	}

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t {
	case reflect.TypeOf(time.Time{}), reflect.TypeOf(sql.NullTime{}):
		return "timestamptz"
	case reflect.TypeOf(sql.NullString{}):
		return "text"
	case reflect.TypeOf(sql.NullInt64{}):
		return "bigint"
	case reflect.TypeOf(sql.NullInt32{}):
		return "integer"
	case reflect.TypeOf(sql.NullBool{}):
		return "boolean"
	case reflect.TypeOf(sql.NullFloat64{}):
		return "double precision"
	}

	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int8, reflect.Int16, reflect.Uint8:
		return "smallint"
	case reflect.Int32, reflect.Int, reflect.Uint16:
		return "integer"
	case reflect.Int64, reflect.Uint32, reflect.Uint64:
		return "bigint"
	case reflect.Float32:
		return "real"
	case reflect.Float64:
		return "double precision"
	case reflect.String:
		return "text"
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "bytea"
		}
	}

	return ""
}

// IsNullable checks if a Go type can hold NULL.
func IsNullable(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		return true
	}

	switch t {
	case reflect.TypeOf(sql.NullString{}),
		reflect.TypeOf(sql.NullInt64{}),
		reflect.TypeOf(sql.NullInt32{}),
		reflect.TypeOf(sql.NullFloat64{}),
		reflect.TypeOf(sql.NullBool{}),
		reflect.TypeOf(sql.NullTime{}):
		return true
	}

	return false
}

// DefaultTypeMapper is the type mapper used by NewParser.
var DefaultTypeMapper = NewTypeMapper()
