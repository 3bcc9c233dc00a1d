package builder

import (
	"context"
	"fmt"
	"reflect"

	"github.com/marshallshelly/pebble-social/pkg/runtime"
	"github.com/marshallshelly/pebble-social/pkg/schema"
)

// preload fills the named relationship fields of every element of results,
// which must point to a slice of structs described by table. Each
// relationship costs one extra query.
func (d *DB) preload(ctx context.Context, table *schema.TableMetadata, results any, fields []string) error {
	slice := reflect.ValueOf(results)
	if slice.Kind() != reflect.Pointer || slice.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("results must be a pointer to slice")
	}
	slice = slice.Elem()
	if slice.Len() == 0 {
		return nil
	}

	for _, fieldName := range fields {
		rel := table.GetRelationship(fieldName)
		if rel == nil {
			return fmt.Errorf("relationship %s not found on %s", fieldName, table.Name)
		}
		target, err := d.reg.Get(rel.TargetType)
		if err != nil {
			return fmt.Errorf("target table %s not registered: %w", rel.TargetTable, err)
		}

		switch rel.Type {
		case schema.BelongsTo:
			err = d.loadBelongsTo(ctx, slice, table, target, rel)
		case schema.HasOne, schema.HasMany:
			err = d.loadHas(ctx, slice, table, target, rel)
		default:
			err = fmt.Errorf("unsupported relationship type: %s", rel.Type)
		}
		if err != nil {
			return fmt.Errorf("failed to load relationship %s: %w", fieldName, err)
		}
	}
	return nil
}

// loadBelongsTo loads the row each result points at.
// Example: Post.User (posts.user_id -> users.id)
func (d *DB) loadBelongsTo(ctx context.Context, results reflect.Value, source, target *schema.TableMetadata, rel *schema.RelationshipMetadata) error {
	keys, index, err := collectKeys(results, source, rel.ForeignKey)
	if err != nil || len(keys) == 0 {
		return err
	}

	related, err := d.fetchRelated(ctx, target, rel.References, keys)
	if err != nil {
		return err
	}
	return eachByKey(related, target, rel.References, func(key any, row reflect.Value) {
		for _, i := range index[key] {
			setRelation(elem(results, i).FieldByName(rel.SourceField), row)
		}
	})
}

// loadHas loads rows that point back at each result.
// Example: User.Posts (posts.user_id -> users.id)
func (d *DB) loadHas(ctx context.Context, results reflect.Value, source, target *schema.TableMetadata, rel *schema.RelationshipMetadata) error {
	keys, index, err := collectKeys(results, source, rel.References)
	if err != nil || len(keys) == 0 {
		return err
	}

	if rel.Type == schema.HasMany {
		for i := 0; i < results.Len(); i++ {
			field := elem(results, i).FieldByName(rel.SourceField)
			if field.CanSet() && field.IsNil() {
				field.Set(reflect.MakeSlice(field.Type(), 0, 0))
			}
		}
	}

	related, err := d.fetchRelated(ctx, target, rel.ForeignKey, keys)
	if err != nil {
		return err
	}
	return eachByKey(related, target, rel.ForeignKey, func(key any, row reflect.Value) {
		for _, i := range index[key] {
			setRelation(elem(results, i).FieldByName(rel.SourceField), row)
		}
	})
}

// fetchRelated selects every target row whose column matches one of keys.
func (d *DB) fetchRelated(ctx context.Context, target *schema.TableMetadata, column string, keys []any) ([]reflect.Value, error) {
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s = ANY($1)", target.Name, column)
	rows, err := d.q.Query(ctx, sql, keys)
	if err != nil {
		return nil, &runtime.QueryError{Query: sql, Err: err}
	}
	defer rows.Close()

	var related []reflect.Value
	for rows.Next() {
		row := reflect.New(target.GoType)
		if err := scanIntoStruct(rows, row.Interface(), target); err != nil {
			return nil, fmt.Errorf("failed to scan related record: %w", err)
		}
		related = append(related, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &runtime.QueryError{Query: sql, Err: err}
	}
	return related, nil
}

// collectKeys returns the distinct non-zero values of column across results
// and, for each value, the indices of the results holding it.
func collectKeys(results reflect.Value, table *schema.TableMetadata, column string) ([]any, map[any][]int, error) {
	col := table.GetColumn(column)
	if col == nil {
		return nil, nil, fmt.Errorf("column %s not found on %s", column, table.Name)
	}

	var keys []any
	index := make(map[any][]int)
	for i := 0; i < results.Len(); i++ {
		field := elem(results, i).FieldByName(col.GoField)
		if !field.IsValid() || field.IsZero() {
			continue
		}
		key := normalizeKey(field.Interface())
		if _, seen := index[key]; !seen {
			keys = append(keys, key)
		}
		index[key] = append(index[key], i)
	}
	return keys, index, nil
}

// eachByKey calls fn with the value of column for every related row.
func eachByKey(related []reflect.Value, table *schema.TableMetadata, column string, fn func(key any, row reflect.Value)) error {
	col := table.GetColumn(column)
	if col == nil {
		return fmt.Errorf("column %s not found on %s", column, table.Name)
	}
	for _, row := range related {
		field := row.Elem().FieldByName(col.GoField)
		if !field.IsValid() || field.IsZero() {
			continue
		}
		fn(normalizeKey(field.Interface()), row)
	}
	return nil
}

// setRelation stores row (a pointer to struct) into field, which may be a
// struct, a pointer or a slice of either.
func setRelation(field reflect.Value, row reflect.Value) {
	if !field.IsValid() || !field.CanSet() {
		return
	}
	switch field.Kind() {
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.Pointer {
			field.Set(reflect.Append(field, row))
		} else {
			field.Set(reflect.Append(field, row.Elem()))
		}
	case reflect.Pointer:
		field.Set(row)
	default:
		field.Set(row.Elem())
	}
}

func elem(results reflect.Value, i int) reflect.Value {
	item := results.Index(i)
	if item.Kind() == reflect.Pointer {
		item = item.Elem()
	}
	return item
}

// normalizeKey dereferences pointers and widens integers so keys read from
// the database and from struct fields compare equal.
func normalizeKey(v any) any {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	}
	return rv.Interface()
}
