package schema

import (
	"fmt"
	"reflect"
)

// ParseRelationships extracts relationship metadata from struct fields.
func (p *Parser) ParseRelationships(modelType reflect.Type, table *TableMetadata) error {
	for modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return fmt.Errorf("model must be a struct")
	}

	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		if !field.IsExported() {
			continue
		}

		tagValue := field.Tag.Get(StructTagKey)
		if tagValue == "" {
			continue
		}
		tagOpts, err := parseTag(tagValue)
		if err != nil || !tagOpts.isRelationship() {
			continue
		}

		rel, err := parseRelationship(field, tagOpts, table)
		if err != nil {
			return fmt.Errorf("failed to parse relationship for field %s: %w", field.Name, err)
		}
		table.Relationships = append(table.Relationships, *rel)
	}

	return nil
}

// parseRelationship parses a relationship from a struct field.
func parseRelationship(field reflect.StructField, opts *TagOptions, sourceTable *TableMetadata) (*RelationshipMetadata, error) {
	rel := &RelationshipMetadata{
		SourceTable: sourceTable.Name,
		SourceField: field.Name,
		ForeignKey:  opts.Get("foreignKey"),
		References:  opts.Get("references"),
	}

	switch {
	case opts.Has("belongsTo"):
		rel.Type = BelongsTo
	case opts.Has("hasOne"):
		rel.Type = HasOne
	case opts.Has("hasMany"):
		rel.Type = HasMany
	case opts.Has("manyToMany"):
		return nil, fmt.Errorf("manyToMany is not supported: declare the junction table as a model and use hasMany")
	default:
		return nil, fmt.Errorf("unknown relationship type")
	}

	fieldType := field.Type
	switch rel.Type {
	case HasMany:
		if fieldType.Kind() != reflect.Slice {
			return nil, fmt.Errorf("%s relationship must be a slice, got %s", rel.Type, fieldType)
		}
		fieldType = fieldType.Elem()
	case BelongsTo, HasOne:
		if fieldType.Kind() == reflect.Slice {
			return nil, fmt.Errorf("%s relationship must not be a slice", rel.Type)
		}
	}
	for fieldType.Kind() == reflect.Ptr {
		fieldType = fieldType.Elem()
	}
	if fieldType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("relationship target must be a struct, got %s", fieldType.Kind())
	}

	rel.TargetType = fieldType
	rel.TargetTable = TableNameOf(fieldType)
	rel.TargetField = fieldType.Name()

	if rel.ForeignKey == "" {
		switch rel.Type {
		case BelongsTo:
			// Source holds the key: Post.User -> posts.user_id
			rel.ForeignKey = toSnakeCase(field.Name) + "_id"
		case HasOne, HasMany:
			// Target holds the key: User.Posts -> posts.user_id
			rel.ForeignKey = toSnakeCase(sourceTable.GoType.Name()) + "_id"
		}
	}

	if rel.References == "" {
		rel.References = "id"
	}

	if inverse := opts.Get("inverse"); inverse != "" {
		rel.InverseField = &inverse
	}

	return rel, nil
}

// GetRelationship returns a relationship by source field name.
func (t *TableMetadata) GetRelationship(fieldName string) *RelationshipMetadata {
	for i := range t.Relationships {
		if t.Relationships[i].SourceField == fieldName {
			return &t.Relationships[i]
		}
	}
	return nil
}

// GetRelationshipsByType returns all relationships of a specific type.
func (t *TableMetadata) GetRelationshipsByType(relType RelationType) []RelationshipMetadata {
	var result []RelationshipMetadata
	for _, rel := range t.Relationships {
		if rel.Type == relType {
			result = append(result, rel)
		}
	}
	return result
}

// HasRelationships checks if the table has any relationships.
func (t *TableMetadata) HasRelationships() bool {
	return len(t.Relationships) > 0
}
