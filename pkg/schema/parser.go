// Package schema turns tagged Go structs into table metadata.
package schema

import (
	"fmt"
	"reflect"
	"strings"
)

const (
	// StructTagKey is the key used in struct tags (e.g., `po:"..."`).
	StructTagKey = "po"
)

// TableNamer lets a model choose its table name.
type TableNamer interface {
	TableName() string
}

// Parser parses struct definitions to extract table metadata.
type Parser struct {
	typeMapper *TypeMapper
	cache      map[reflect.Type]*TableMetadata
}

// NewParser creates a new Parser instance.
func NewParser() *Parser {
	return &Parser{
		typeMapper: DefaultTypeMapper,
		cache:      make(map[reflect.Type]*TableMetadata),
	}
}

// Parse extracts TableMetadata from a Go struct type.
func (p *Parser) Parse(modelType reflect.Type) (*TableMetadata, error) {
	for modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", modelType.Kind())
	}
	if cached, ok := p.cache[modelType]; ok {
		return cached, nil
	}

	table := &TableMetadata{
		Name:        TableNameOf(modelType),
		GoType:      modelType,
		Columns:     make([]ColumnMetadata, 0),
		ForeignKeys: make([]ForeignKeyMetadata, 0),
		Indexes:     make([]IndexMetadata, 0),
		Constraints: make([]ConstraintMetadata, 0),
	}

	uniqueGroups := make(map[string]int) // index name -> position in table.Indexes

	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		if !field.IsExported() {
			continue
		}
		tagValue := field.Tag.Get(StructTagKey)
		if tagValue == "" || tagValue == "-" {
			continue
		}

		tagOpts, err := parseTag(tagValue)
		if err != nil {
			return nil, fmt.Errorf("failed to parse tag for field %s: %w", field.Name, err)
		}
		// Relationship fields are handled by ParseRelationships.
		if tagOpts.isRelationship() {
			continue
		}

		column, err := p.createColumnMetadata(field, tagOpts, i)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		if tagOpts.Has("primaryKey") {
			if table.PrimaryKey == nil {
				table.PrimaryKey = &PrimaryKeyMetadata{
					Columns: []string{column.Name},
					Name:    table.Name + "_pkey",
				}
			} else {
				table.PrimaryKey.Columns = append(table.PrimaryKey.Columns, column.Name)
			}
		}

		if fk, ok := parseForeignKey(table.Name, column.Name, tagOpts); ok {
			table.ForeignKeys = append(table.ForeignKeys, fk)
		}

		if tagOpts.Has("index") {
			name := tagOpts.Get("index")
			if name == "" {
				name = fmt.Sprintf("idx_%s_%s", table.Name, column.Name)
			}
			table.Indexes = append(table.Indexes, IndexMetadata{Name: name, Columns: []string{column.Name}})
		}

		// Columns sharing a uniqueIndex name form one composite index.
		if tagOpts.Has("uniqueIndex") {
			name := tagOpts.Get("uniqueIndex")
			if name == "" {
				name = fmt.Sprintf("%s_%s_key", table.Name, column.Name)
			}
			if pos, ok := uniqueGroups[name]; ok {
				table.Indexes[pos].Columns = append(table.Indexes[pos].Columns, column.Name)
			} else {
				uniqueGroups[name] = len(table.Indexes)
				table.Indexes = append(table.Indexes, IndexMetadata{Name: name, Columns: []string{column.Name}, Unique: true})
			}
		}

		if expr := tagOpts.Get("check"); expr != "" {
			table.Constraints = append(table.Constraints, ConstraintMetadata{
				Name:       fmt.Sprintf("%s_%s_check", table.Name, column.Name),
				Type:       CheckConstraint,
				Columns:    []string{column.Name},
				Expression: expr,
			})
		}

		table.Columns = append(table.Columns, column)
	}

	if err := p.ParseRelationships(modelType, table); err != nil {
		return nil, fmt.Errorf("failed to parse relationships: %w", err)
	}

	p.cache[modelType] = table
	return table, nil
}

// TableNameOf returns the table name for a struct type: the result of its
// TableName method when it has one, otherwise the snake_case struct name.
func TableNameOf(modelType reflect.Type) string {
	for modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}
	if namer, ok := reflect.New(modelType).Interface().(TableNamer); ok {
		if name := namer.TableName(); name != "" {
			return name
		}
	}
	return toSnakeCase(modelType.Name())
}

// createColumnMetadata creates a ColumnMetadata from a struct field.
func (p *Parser) createColumnMetadata(field reflect.StructField, opts *TagOptions, position int) (ColumnMetadata, error) {
	column := ColumnMetadata{
		Name:     opts.Name,
		GoField:  field.Name,
		GoType:   field.Type,
		Position: position,
	}
	if column.Name == "" {
		column.Name = toSnakeCase(field.Name)
	}

	if sqlType := opts.GetSQLType(); sqlType != "" {
		column.SQLType = sqlType
	} else {
		column.SQLType = p.typeMapper.GoTypeToPostgreSQL(field.Type)
	}
	if column.SQLType == "" {
		return column, fmt.Errorf("cannot infer SQL type for %s, declare it in the tag", field.Type)
	}

	column.Nullable = !opts.Has("notNull") && !opts.Has("primaryKey")
	if IsNullable(field.Type) {
		column.Nullable = true
	}

	if defaultVal := opts.Get("default"); defaultVal != "" {
		if err := ValidateDefaultValue(defaultVal); err != nil {
			return column, err
		}
		column.Default = &defaultVal
	}

	column.Unique = opts.Has("unique")
	column.AutoIncrement = opts.Has("autoIncrement") || opts.Has("serial") || opts.Has("bigserial")

	return column, nil
}

// parseForeignKey builds FK metadata from fk(table.column) or fk:table.column.
func parseForeignKey(tableName, columnName string, opts *TagOptions) (ForeignKeyMetadata, bool) {
	ref := opts.Get("fk")
	if ref == "" {
		return ForeignKeyMetadata{}, false
	}

	refTable, refColumn, ok := strings.Cut(ref, ".")
	if !ok || refTable == "" || refColumn == "" {
		return ForeignKeyMetadata{}, false
	}

	return ForeignKeyMetadata{
		Name:              fmt.Sprintf("fk_%s_%s_%s", tableName, columnName, refTable),
		Columns:           []string{columnName},
		ReferencedTable:   refTable,
		ReferencedColumns: []string{refColumn},
		OnDelete:          parseReferenceAction(opts.Get("onDelete")),
		OnUpdate:          parseReferenceAction(opts.Get("onUpdate")),
	}, true
}

// parseReferenceAction converts a tag value to a ReferenceAction.
func parseReferenceAction(action string) ReferenceAction {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(action), "_", " ")) {
	case "CASCADE":
		return Cascade
	case "RESTRICT":
		return Restrict
	case "SETNULL", "SET NULL":
		return SetNull
	case "SETDEFAULT", "SET DEFAULT":
		return SetDefault
	default:
		return NoAction
	}
}

// TagOptions represents parsed tag options.
type TagOptions struct {
	Name    string            // Column name (first element)
	Options map[string]string // Other options
}

// parseTag parses a struct tag value into TagOptions.
// Format: "column_name,option1,option2(value),option3:value"
func parseTag(tag string) (*TagOptions, error) {
	parts := splitTag(tag)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty tag value")
	}
	opts := &TagOptions{
		Name:    parts[0],
		Options: make(map[string]string),
	}
	if opts.Name == "-" {
		opts.Name = ""
	}
	for _, opt := range parts[1:] {
		if idx := strings.Index(opt, "("); idx != -1 {
			if !strings.HasSuffix(opt, ")") {
				return nil, fmt.Errorf("invalid option format: %s", opt)
			}
			opts.Options[opt[:idx]] = opt[idx+1 : len(opt)-1]
		} else if key, value, ok := strings.Cut(opt, ":"); ok {
			opts.Options[key] = value
		} else {
			opts.Options[opt] = ""
		}
	}
	return opts, nil
}

// Has checks if an option exists.
func (t *TagOptions) Has(key string) bool {
	_, ok := t.Options[key]
	return ok
}

// Get returns the value of an option.
func (t *TagOptions) Get(key string) string {
	return t.Options[key]
}

func (t *TagOptions) isRelationship() bool {
	return t.Has("belongsTo") || t.Has("hasOne") || t.Has("hasMany") || t.Has("manyToMany")
}

var pgTypes = []string{
	"uuid", "varchar", "text", "char",
	"smallint", "integer", "bigint", "serial", "bigserial",
	"numeric", "decimal", "real", "double precision",
	"boolean", "bool",
	"date", "time", "timestamp", "timestamptz", "interval",
	"json", "jsonb",
	"bytea",
	"inet", "cidr",
}

// GetSQLType returns the SQL type declared in the tag, e.g. varchar(255).
func (t *TagOptions) GetSQLType() string {
	for _, pgType := range pgTypes {
		if t.Has(pgType) {
			if value := t.Get(pgType); value != "" {
				return fmt.Sprintf("%s(%s)", pgType, value)
			}
			return pgType
		}
	}
	return ""
}

// splitTag splits a tag value by commas, respecting parentheses.
func splitTag(tag string) []string {
	var parts []string
	var current strings.Builder
	depth := 0
	for _, ch := range tag {
		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
		case ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(current.String()))
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, strings.TrimSpace(current.String()))
	}
	return parts
}

// toSnakeCase converts PascalCase to snake_case, keeping initialisms
// together (UserID -> user_id).
func toSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)
	for i, ch := range runes {
		if i > 0 && isUpper(ch) {
			prevLower := !isUpper(runes[i-1])
			nextLower := i+1 < len(runes) && !isUpper(runes[i+1])
			if prevLower || nextLower {
				result.WriteRune('_')
			}
		}
		result.WriteRune(ch)
	}
	return strings.ToLower(result.String())
}

func isUpper(ch rune) bool {
	return ch >= 'A' && ch <= 'Z'
}
