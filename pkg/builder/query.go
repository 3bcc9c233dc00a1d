// Package builder provides a type-safe query builder for PostgreSQL.
//
// Every query is created from a session (*DB), which carries the connection
// or transaction to run on and the registry that describes the models:
//
//	users, err := builder.Select[models.User](db).
//		Where(builder.Eq("is_active", true)).
//		Preload("Profile").
//		All(ctx)
package builder

import (
	"context"

	"github.com/marshallshelly/pebble-social/pkg/schema"
)

// Query represents a generic database query.
type Query interface {
	// ToSQL generates the SQL query and parameter values.
	ToSQL() (sql string, args []any, err error)
}

// Executable represents a query that can be executed.
type Executable interface {
	Query
	// Exec executes the query and returns the number of affected rows.
	Exec(ctx context.Context) (int64, error)
}

// SelectQuery represents a SELECT query with type safety.
type SelectQuery[T any] struct {
	db       *DB
	table    *schema.TableMetadata
	err      error
	columns  []string
	where    []Condition
	orderBy  []OrderBy
	limit    *int
	offset   *int
	preloads []string
}

// InsertQuery represents an INSERT query.
type InsertQuery[T any] struct {
	db         *DB
	table      *schema.TableMetadata
	err        error
	values     []T
	returning  []string
	onConflict *OnConflict
}

// UpdateQuery represents an UPDATE query.
type UpdateQuery[T any] struct {
	db        *DB
	table     *schema.TableMetadata
	err       error
	sets      map[string]any
	where     []Condition
	returning []string
}

// DeleteQuery represents a DELETE query.
type DeleteQuery[T any] struct {
	db        *DB
	table     *schema.TableMetadata
	err       error
	where     []Condition
	returning []string
}

// Condition represents a WHERE condition.
type Condition struct {
	Column   string
	Operator Operator
	Value    any
	Logic    LogicOperator
	Not      bool
	Group    []Condition
}

// OrderBy represents an ORDER BY clause.
type OrderBy struct {
	Column    string
	Direction OrderDirection
}

// OnConflict represents an ON CONFLICT clause for upserts.
type OnConflict struct {
	Columns []string
	Action  ConflictAction
	Updates map[string]any
}

// Operator represents a comparison operator.
type Operator string

const (
	OpEqual              Operator = "="
	OpNotEqual           Operator = "!="
	OpGreaterThan        Operator = ">"
	OpGreaterThanOrEqual Operator = ">="
	OpLessThan           Operator = "<"
	OpLessThanOrEqual    Operator = "<="
	OpIn                 Operator = "IN"
	OpNotIn              Operator = "NOT IN"
	OpLike               Operator = "LIKE"
	OpILike              Operator = "ILIKE"
	OpIsNull             Operator = "IS NULL"
	OpIsNotNull          Operator = "IS NOT NULL"
	OpBetween            Operator = "BETWEEN"
)

// LogicOperator joins a condition to the one before it.
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// OrderDirection represents the sort direction.
type OrderDirection string

const (
	Asc  OrderDirection = "ASC"
	Desc OrderDirection = "DESC"
)

// ConflictAction represents the action for ON CONFLICT.
type ConflictAction string

const (
	DoNothing ConflictAction = "DO NOTHING"
	DoUpdate  ConflictAction = "DO UPDATE SET"
)
