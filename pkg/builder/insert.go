package builder

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Values sets the values to insert (single or multiple rows).
func (q *InsertQuery[T]) Values(values ...T) *InsertQuery[T] {
	q.values = append(q.values, values...)
	return q
}

// Returning specifies columns to return after insert.
func (q *InsertQuery[T]) Returning(columns ...string) *InsertQuery[T] {
	q.returning = columns
	return q
}

// OnConflictDoNothing adds ON CONFLICT DO NOTHING clause.
func (q *InsertQuery[T]) OnConflictDoNothing(columns ...string) *InsertQuery[T] {
	q.onConflict = &OnConflict{Columns: columns, Action: DoNothing}
	return q
}

// OnConflictDoUpdate adds ON CONFLICT DO UPDATE clause.
func (q *InsertQuery[T]) OnConflictDoUpdate(columns []string, updates map[string]any) *InsertQuery[T] {
	q.onConflict = &OnConflict{Columns: columns, Action: DoUpdate, Updates: updates}
	return q
}

// ToSQL generates the INSERT SQL and arguments. The column list is the
// union of every row's columns in table order; serial keys and zero values
// of defaulted columns are left to the database, as DEFAULT when another
// row sets the column.
func (q *InsertQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if len(q.values) == 0 {
		return "", nil, fmt.Errorf("no values to insert")
	}

	present := make([]map[string]any, len(q.values))
	used := make(map[string]bool)
	for i, val := range q.values {
		rowColumns, rowValues, err := structToValues(val, q.table, true)
		if err != nil {
			return "", nil, fmt.Errorf("failed to extract values from row %d: %w", i, err)
		}
		present[i] = make(map[string]any, len(rowColumns))
		for j, col := range rowColumns {
			present[i][col] = rowValues[j]
			used[col] = true
		}
	}

	var columns []string
	for _, col := range q.table.Columns {
		if used[col.Name] {
			columns = append(columns, col.Name)
		}
	}
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("no columns to insert")
	}

	var sql strings.Builder
	var args []any
	paramNum := 1

	sql.WriteString("INSERT INTO ")
	sql.WriteString(q.table.Name)
	sql.WriteString(" (")
	sql.WriteString(strings.Join(columns, ", "))
	sql.WriteString(") VALUES ")

	rows := make([]string, len(q.values))
	for i := range q.values {
		placeholders := make([]string, len(columns))
		for j, col := range columns {
			v, ok := present[i][col]
			if !ok {
				placeholders[j] = "DEFAULT"
				continue
			}
			placeholders[j] = fmt.Sprintf("$%d", paramNum)
			paramNum++
			args = append(args, v)
		}
		rows[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}
	sql.WriteString(strings.Join(rows, ", "))

	if q.onConflict != nil {
		sql.WriteString(" ON CONFLICT")
		if len(q.onConflict.Columns) > 0 {
			sql.WriteString(" (" + strings.Join(q.onConflict.Columns, ", ") + ")")
		}
		switch q.onConflict.Action {
		case DoNothing:
			sql.WriteString(" DO NOTHING")
		case DoUpdate:
			keys := make([]string, 0, len(q.onConflict.Updates))
			for col := range q.onConflict.Updates {
				keys = append(keys, col)
			}
			sort.Strings(keys)

			updates := make([]string, len(keys))
			for i, col := range keys {
				updates[i] = fmt.Sprintf("%s = $%d", col, paramNum)
				paramNum++
				args = append(args, q.onConflict.Updates[col])
			}
			sql.WriteString(" " + string(DoUpdate) + " " + strings.Join(updates, ", "))
		}
	}

	if len(q.returning) > 0 {
		sql.WriteString(" RETURNING ")
		sql.WriteString(strings.Join(q.returning, ", "))
	}

	return sql.String(), args, nil
}

// Exec executes the INSERT query and returns the number of inserted rows.
func (q *InsertQuery[T]) Exec(ctx context.Context) (int64, error) {
	sql, args, err := q.ToSQL()
	if err != nil {
		return 0, err
	}
	if len(q.returning) == 0 {
		return q.db.exec(ctx, sql, args...)
	}
	return q.db.countRows(ctx, sql, args)
}

// ExecReturning executes the INSERT and returns the inserted rows.
func (q *InsertQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
	if len(q.returning) == 0 {
		q.Returning("*")
	}

	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	return collect[T](ctx, q.db, q.table, sql, args)
}
