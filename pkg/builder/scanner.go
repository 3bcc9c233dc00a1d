package builder

import (
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"

	"github.com/marshallshelly/pebble-social/pkg/schema"
)

// scanIntoStruct scans the current row into dest, matching result columns
// to struct fields by column name. Unknown result columns are discarded.
func scanIntoStruct(rows pgx.Rows, dest any, table *schema.TableMetadata) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Pointer || destValue.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dest must be a pointer to struct")
	}
	destValue = destValue.Elem()

	fields := rows.FieldDescriptions()
	targets := make([]any, len(fields))
	for i, fd := range fields {
		col := table.GetColumn(fd.Name)
		if col == nil {
			targets[i] = new(any)
			continue
		}
		field := destValue.FieldByName(col.GoField)
		if !field.IsValid() || !field.CanSet() {
			targets[i] = new(any)
			continue
		}
		targets[i] = field.Addr().Interface()
	}

	if err := rows.Scan(targets...); err != nil {
		return fmt.Errorf("failed to scan row: %w", err)
	}
	return nil
}

// structToValues returns the columns and values to INSERT for model.
// A column is left out when it is an auto-increment primary key, or when it
// has a database default and the Go value is zero.
func structToValues(model any, table *schema.TableMetadata, skipPrimaryKey bool) ([]string, []any, error) {
	modelValue, err := structValue(model)
	if err != nil {
		return nil, nil, err
	}

	var columns []string
	var values []any
	for _, col := range table.Columns {
		if skipPrimaryKey && col.AutoIncrement && table.IsPrimaryKey(col.Name) {
			continue
		}
		field := modelValue.FieldByName(col.GoField)
		if !field.IsValid() {
			continue
		}
		if col.Default != nil && field.IsZero() {
			continue
		}
		columns = append(columns, col.Name)
		values = append(values, field.Interface())
	}

	return columns, values, nil
}

func structValue(model any) (reflect.Value, error) {
	v := reflect.ValueOf(model)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("model must not be nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("model must be a struct")
	}
	return v, nil
}
