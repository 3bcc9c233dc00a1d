package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/marshallshelly/pebble-social/pkg/schema"
)

// Querier runs a query that returns rows. *runtime.DB satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Introspector reads table metadata back from the public schema.
type Introspector struct {
	db Querier
}

// NewIntrospector creates a new database introspector.
func NewIntrospector(db Querier) *Introspector {
	return &Introspector{db: db}
}

// IntrospectSchema reads every base table except schema_migrations.
func (i *Introspector) IntrospectSchema(ctx context.Context) (map[string]*schema.TableMetadata, error) {
	names, err := i.tableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	tables := make(map[string]*schema.TableMetadata, len(names))
	for _, name := range names {
		table, err := i.IntrospectTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect table %s: %w", name, err)
		}
		tables[name] = table
	}
	return tables, nil
}

// IntrospectTable reads one table.
func (i *Introspector) IntrospectTable(ctx context.Context, name string) (*schema.TableMetadata, error) {
	table := &schema.TableMetadata{Name: name}

	var err error
	if table.Columns, err = i.columns(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	if table.PrimaryKey, err = i.primaryKey(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to get primary key: %w", err)
	}
	if table.ForeignKeys, err = i.foreignKeys(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}
	if table.Indexes, err = i.indexes(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to get indexes: %w", err)
	}
	if table.Constraints, err = i.constraints(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to get constraints: %w", err)
	}
	return table, nil
}

func (i *Introspector) tableNames(ctx context.Context) ([]string, error) {
	rows, err := i.db.Query(ctx, `
		SELECT table_name::text
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		  AND table_name <> 'schema_migrations'
		ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (i *Introspector) columns(ctx context.Context, table string) ([]schema.ColumnMetadata, error) {
	rows, err := i.db.Query(ctx, `
		SELECT column_name::text, data_type::text, udt_name::text,
		       character_maximum_length::int, numeric_precision::int, numeric_scale::int,
		       is_nullable::text, column_default::text, ordinal_position::int
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.ColumnMetadata
	for rows.Next() {
		var (
			col                       schema.ColumnMetadata
			dataType, udtName         string
			maxLength, precision, scl *int32
			isNullable                string
			position                  int32
		)
		if err := rows.Scan(&col.Name, &dataType, &udtName, &maxLength, &precision, &scl,
			&isNullable, &col.Default, &position); err != nil {
			return nil, err
		}

		col.SQLType = buildSQLType(dataType, udtName, maxLength, precision, scl)
		col.Nullable = isNullable == "YES"
		col.Position = int(position) - 1
		col.AutoIncrement = col.Default != nil && strings.Contains(*col.Default, "nextval(")
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (i *Introspector) primaryKey(ctx context.Context, table string) (*schema.PrimaryKeyMetadata, error) {
	rows, err := i.db.Query(ctx, `
		SELECT con.conname::text,
		       ARRAY(
		           SELECT a.attname
		           FROM unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
		           JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		           ORDER BY k.ord
		       )::text[]
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_namespace nsp ON nsp.oid = rel.relnamespace
		WHERE nsp.nspname = 'public' AND rel.relname = $1 AND con.contype = 'p'`, table)
	if err != nil {
		return nil, err
	}
	keys, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (schema.PrimaryKeyMetadata, error) {
		var pk schema.PrimaryKeyMetadata
		err := row.Scan(&pk.Name, &pk.Columns)
		return pk, err
	})
	if err != nil || len(keys) == 0 {
		return nil, err
	}
	return &keys[0], nil
}

func (i *Introspector) foreignKeys(ctx context.Context, table string) ([]schema.ForeignKeyMetadata, error) {
	rows, err := i.db.Query(ctx, `
		SELECT con.conname::text,
		       ARRAY(
		           SELECT a.attname
		           FROM unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
		           JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		           ORDER BY k.ord
		       )::text[],
		       ref.relname::text,
		       ARRAY(
		           SELECT a.attname
		           FROM unnest(con.confkey) WITH ORDINALITY AS k(attnum, ord)
		           JOIN pg_attribute a ON a.attrelid = con.confrelid AND a.attnum = k.attnum
		           ORDER BY k.ord
		       )::text[],
		       con.confdeltype::text, con.confupdtype::text
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_class ref ON ref.oid = con.confrelid
		JOIN pg_namespace nsp ON nsp.oid = rel.relnamespace
		WHERE nsp.nspname = 'public' AND rel.relname = $1 AND con.contype = 'f'
		ORDER BY con.conname`, table)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (schema.ForeignKeyMetadata, error) {
		var (
			fk                 schema.ForeignKeyMetadata
			onDelete, onUpdate string
		)
		err := row.Scan(&fk.Name, &fk.Columns, &fk.ReferencedTable, &fk.ReferencedColumns, &onDelete, &onUpdate)
		fk.OnDelete = parseReferenceAction(onDelete)
		fk.OnUpdate = parseReferenceAction(onUpdate)
		return fk, err
	})
}

// indexes returns standalone indexes only. Indexes backing a PRIMARY KEY or
// UNIQUE constraint are reported with the constraint.
func (i *Introspector) indexes(ctx context.Context, table string) ([]schema.IndexMetadata, error) {
	rows, err := i.db.Query(ctx, `
		SELECT ic.relname::text,
		       ARRAY(
		           SELECT a.attname
		           FROM unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
		           JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		           ORDER BY k.ord
		       )::text[],
		       ix.indisunique
		FROM pg_class t
		JOIN pg_index ix ON ix.indrelid = t.oid
		JOIN pg_class ic ON ic.oid = ix.indexrelid
		JOIN pg_namespace nsp ON nsp.oid = t.relnamespace
		WHERE nsp.nspname = 'public' AND t.relname = $1
		  AND NOT ix.indisprimary
		  AND NOT EXISTS (SELECT 1 FROM pg_constraint c WHERE c.conindid = ix.indexrelid)
		ORDER BY ic.relname`, table)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (schema.IndexMetadata, error) {
		var idx schema.IndexMetadata
		err := row.Scan(&idx.Name, &idx.Columns, &idx.Unique)
		return idx, err
	})
}

// constraints returns CHECK and UNIQUE constraints. A CHECK expression is
// returned without its CHECK keyword.
func (i *Introspector) constraints(ctx context.Context, table string) ([]schema.ConstraintMetadata, error) {
	rows, err := i.db.Query(ctx, `
		SELECT con.conname::text, con.contype::text, pg_get_constraintdef(con.oid),
		       ARRAY(
		           SELECT a.attname
		           FROM unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
		           JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		           ORDER BY k.ord
		       )::text[]
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_namespace nsp ON nsp.oid = rel.relnamespace
		WHERE nsp.nspname = 'public' AND rel.relname = $1 AND con.contype IN ('c', 'u')
		ORDER BY con.conname`, table)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (schema.ConstraintMetadata, error) {
		var (
			c            schema.ConstraintMetadata
			contype, def string
			columns      []string
		)
		if err := row.Scan(&c.Name, &contype, &def, &columns); err != nil {
			return c, err
		}
		if contype == "u" {
			c.Type = schema.UniqueConstraint
			c.Columns = columns
		} else {
			c.Type = schema.CheckConstraint
			c.Expression = checkExpression(def)
		}
		return c, nil
	})
}

// checkExpression strips the CHECK keyword and the outer parentheses that
// pg_get_constraintdef adds.
func checkExpression(def string) string {
	expr := strings.TrimSpace(strings.TrimPrefix(def, "CHECK "))
	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		expr = expr[1 : len(expr)-1]
	}
	return expr
}

func buildSQLType(dataType, udtName string, maxLength, precision, scale *int32) string {
	switch dataType {
	case "character varying":
		if maxLength != nil {
			return fmt.Sprintf("varchar(%d)", *maxLength)
		}
		return "varchar"
	case "character":
		if maxLength != nil {
			return fmt.Sprintf("char(%d)", *maxLength)
		}
		return "char"
	case "numeric":
		if precision != nil && scale != nil {
			return fmt.Sprintf("numeric(%d,%d)", *precision, *scale)
		}
		return "numeric"
	case "ARRAY":
		if base, ok := strings.CutPrefix(udtName, "_"); ok {
			return base + "[]"
		}
		return udtName
	case "USER-DEFINED":
		return udtName
	}
	return dataType
}

// parseReferenceAction reads pg_constraint's confdeltype/confupdtype code.
func parseReferenceAction(code string) schema.ReferenceAction {
	switch code {
	case "c":
		return schema.Cascade
	case "n":
		return schema.SetNull
	case "d":
		return schema.SetDefault
	case "r":
		return schema.Restrict
	}
	return schema.NoAction
}
