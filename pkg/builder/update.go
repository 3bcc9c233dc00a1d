package builder

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Set sets a column value for the UPDATE.
func (q *UpdateQuery[T]) Set(column string, value any) *UpdateQuery[T] {
	q.sets[column] = value
	return q
}

// SetMap sets multiple column values from a map.
func (q *UpdateQuery[T]) SetMap(values map[string]any) *UpdateQuery[T] {
	for col, val := range values {
		q.sets[col] = val
	}
	return q
}

// Where adds a WHERE condition.
func (q *UpdateQuery[T]) Where(condition Condition) *UpdateQuery[T] {
	q.where = append(q.where, condition)
	return q
}

// And adds an AND condition.
func (q *UpdateQuery[T]) And(condition Condition) *UpdateQuery[T] {
	condition.Logic = LogicAnd
	return q.Where(condition)
}

// Or adds an OR condition.
func (q *UpdateQuery[T]) Or(condition Condition) *UpdateQuery[T] {
	condition.Logic = LogicOr
	return q.Where(condition)
}

// Returning specifies columns to return after update.
func (q *UpdateQuery[T]) Returning(columns ...string) *UpdateQuery[T] {
	q.returning = columns
	return q
}

// ToSQL generates the UPDATE SQL and arguments. SET columns are emitted in
// name order so the statement text is stable.
func (q *UpdateQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if len(q.sets) == 0 {
		return "", nil, fmt.Errorf("no columns to update")
	}

	columns := make([]string, 0, len(q.sets))
	for col := range q.sets {
		if q.table.GetColumn(col) == nil {
			return "", nil, fmt.Errorf("unknown column %s on %s", col, q.table.Name)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	var sql strings.Builder
	args := make([]any, 0, len(columns))

	sql.WriteString("UPDATE ")
	sql.WriteString(q.table.Name)
	sql.WriteString(" SET ")

	setClauses := make([]string, len(columns))
	for i, col := range columns {
		setClauses[i] = fmt.Sprintf("%s = $%d", col, i+1)
		args = append(args, q.sets[col])
	}
	sql.WriteString(strings.Join(setClauses, ", "))

	whereSQL, whereArgs, err := buildWhere(q.where, len(args)+1)
	if err != nil {
		return "", nil, err
	}
	sql.WriteString(whereSQL)
	args = append(args, whereArgs...)

	if len(q.returning) > 0 {
		sql.WriteString(" RETURNING ")
		sql.WriteString(strings.Join(q.returning, ", "))
	}

	return sql.String(), args, nil
}

// Exec executes the UPDATE query and returns the number of affected rows.
func (q *UpdateQuery[T]) Exec(ctx context.Context) (int64, error) {
	sql, args, err := q.ToSQL()
	if err != nil {
		return 0, err
	}
	if len(q.returning) == 0 {
		return q.db.exec(ctx, sql, args...)
	}
	return q.db.countRows(ctx, sql, args)
}

// ExecReturning executes the UPDATE and returns the updated rows.
func (q *UpdateQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
	if len(q.returning) == 0 {
		q.Returning("*")
	}

	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	return collect[T](ctx, q.db, q.table, sql, args)
}
