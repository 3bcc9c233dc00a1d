package builder

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/marshallshelly/pebble-social/pkg/registry"
	"github.com/marshallshelly/pebble-social/pkg/runtime"
	"github.com/marshallshelly/pebble-social/pkg/schema"
)

// Querier is the part of a pool or transaction the builder runs statements
// on. *pgxpool.Pool, *pgxpool.Conn and pgx.Tx all satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DB is a session: a connection source bound to the registry that
// describes its models.
type DB struct {
	q   Querier
	reg *registry.Registry
}

// New creates a session on a connection pool.
func New(db *runtime.DB, reg *registry.Registry) *DB {
	return &DB{q: db.Pool(), reg: reg}
}

// NewWithQuerier creates a session on any Querier, such as a transaction
// started elsewhere.
func NewWithQuerier(q Querier, reg *registry.Registry) *DB {
	return &DB{q: q, reg: reg}
}

// Registry returns the registry the session resolves models against.
func (d *DB) Registry() *registry.Registry {
	return d.reg
}

// Querier returns the underlying pool or transaction.
func (d *DB) Querier() Querier {
	return d.q
}

// tableFor resolves the metadata for T. Models must be registered up front.
func tableFor[T any](d *DB) (*schema.TableMetadata, error) {
	if d == nil || d.reg == nil {
		return nil, fmt.Errorf("session has no registry")
	}
	return d.reg.Get(reflect.TypeFor[T]())
}

// Select creates a new type-safe SELECT query.
func Select[T any](d *DB) *SelectQuery[T] {
	t, err := tableFor[T](d)
	return &SelectQuery[T]{
		db:      d,
		table:   t,
		err:     err,
		columns: []string{"*"},
	}
}

// Insert creates a new type-safe INSERT query.
func Insert[T any](d *DB) *InsertQuery[T] {
	t, err := tableFor[T](d)
	return &InsertQuery[T]{db: d, table: t, err: err}
}

// Update creates a new type-safe UPDATE query.
func Update[T any](d *DB) *UpdateQuery[T] {
	t, err := tableFor[T](d)
	return &UpdateQuery[T]{
		db:    d,
		table: t,
		err:   err,
		sets:  make(map[string]any),
	}
}

// Delete creates a new type-safe DELETE query.
func Delete[T any](d *DB) *DeleteQuery[T] {
	t, err := tableFor[T](d)
	return &DeleteQuery[T]{db: d, table: t, err: err}
}

// Col returns the column name mapped to a Go field of T, or the field name
// unchanged when T or the field is unknown.
func Col[T any](d *DB, goFieldName string) string {
	t, err := tableFor[T](d)
	if err != nil {
		return goFieldName
	}
	if column := t.GetColumnByField(goFieldName); column != nil {
		return column.Name
	}
	return goFieldName
}

func (d *DB) exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := d.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, &runtime.QueryError{Query: sql, Err: err}
	}
	return tag.RowsAffected(), nil
}

// collect runs a row-returning statement and scans every row into T.
func collect[T any](ctx context.Context, d *DB, t *schema.TableMetadata, sql string, args []any) ([]T, error) {
	rows, err := d.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, &runtime.QueryError{Query: sql, Err: err}
	}
	defer rows.Close()

	var results []T
	for rows.Next() {
		var item T
		if err := scanIntoStruct(rows, &item, t); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &runtime.QueryError{Query: sql, Err: err}
	}
	return results, nil
}

// countRows runs a row-returning statement and counts the rows.
func (d *DB) countRows(ctx context.Context, sql string, args []any) (int64, error) {
	rows, err := d.q.Query(ctx, sql, args...)
	if err != nil {
		return 0, &runtime.QueryError{Query: sql, Err: err}
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, &runtime.QueryError{Query: sql, Err: err}
	}
	return count, nil
}
