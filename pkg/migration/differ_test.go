package migration

import (
	"strings"
	"testing"

	"github.com/marshallshelly/pebble-social/pkg/schema"
)

// asIntrospected returns table the way the introspector reads it back after
// the planner's DDL ran.
func asIntrospected(table *schema.TableMetadata) *schema.TableMetadata {
	out := *table
	out.Columns = nil
	out.Constraints = nil
	for _, col := range table.Columns {
		if col.SQLType == "serial" {
			col.SQLType = "integer"
			col.Default = strPtr("nextval('" + table.Name + "_" + col.Name + "_seq'::regclass)")
			col.Nullable = false
		}
		if col.SQLType == "timestamptz" {
			col.SQLType = "timestamp with time zone"
		}
		if col.Default != nil && *col.Default == "NOW()" {
			col.Default = strPtr("now()")
		}
		if col.Unique {
			out.Constraints = append(out.Constraints, schema.ConstraintMetadata{
				Name:    table.Name + "_" + col.Name + "_key",
				Type:    schema.UniqueConstraint,
				Columns: []string{col.Name},
			})
			col.Unique = false
		}
		out.Columns = append(out.Columns, col)
	}
	for _, c := range table.Constraints {
		if c.Type == schema.CheckConstraint {
			c.Expression = "(" + c.Expression + ")"
			c.Columns = nil
		}
		out.Constraints = append(out.Constraints, c)
	}
	return &out
}

func dbSchemaOf(tables ...*schema.TableMetadata) map[string]*schema.TableMetadata {
	m := make(map[string]*schema.TableMetadata, len(tables))
	for _, t := range tables {
		m[t.Name] = asIntrospected(t)
	}
	return m
}

func TestDiffer_InSync(t *testing.T) {
	code := []*schema.TableMetadata{accountsTable(), linksTable()}
	diff := NewDiffer().Compare(code, dbSchemaOf(accountsTable(), linksTable()))

	if diff.HasChanges() {
		t.Fatalf("expected no changes, got %+v", diff)
	}
}

func TestDiffer_TablesAddedAndDropped(t *testing.T) {
	t.Run("added keep dependency order", func(t *testing.T) {
		diff := NewDiffer().Compare([]*schema.TableMetadata{accountsTable(), linksTable()}, nil)

		if len(diff.TablesAdded) != 2 || diff.TablesAdded[0].Name != "accounts" || diff.TablesAdded[1].Name != "links" {
			t.Fatalf("unexpected added tables: %+v", diff.TablesAdded)
		}
	})

	t.Run("dropped referencing tables first", func(t *testing.T) {
		diff := NewDiffer().Compare(nil, dbSchemaOf(accountsTable(), linksTable()))

		if len(diff.TablesDropped) != 2 {
			t.Fatalf("expected 2 dropped tables, got %d", len(diff.TablesDropped))
		}
		if diff.TablesDropped[0].Name != "links" || diff.TablesDropped[1].Name != "accounts" {
			t.Errorf("expected links before accounts, got %s, %s",
				diff.TablesDropped[0].Name, diff.TablesDropped[1].Name)
		}
	})
}

func TestDiffer_Columns(t *testing.T) {
	db := dbSchemaOf(accountsTable())

	code := accountsTable()
	code.Columns[2].SQLType = "varchar(200)" // nickname widened
	code.Columns[2].Nullable = false
	code.Columns = append(code.Columns, schema.ColumnMetadata{Name: "bio", SQLType: "text", Nullable: true})
	db["accounts"].Columns = append(db["accounts"].Columns, schema.ColumnMetadata{Name: "legacy", SQLType: "text", Nullable: true})

	diff := NewDiffer().Compare([]*schema.TableMetadata{code}, db)
	if len(diff.TablesModified) != 1 {
		t.Fatalf("expected 1 modified table, got %d", len(diff.TablesModified))
	}
	td := diff.TablesModified[0]

	if len(td.ColumnsAdded) != 1 || td.ColumnsAdded[0].Name != "bio" {
		t.Errorf("expected bio added, got %+v", td.ColumnsAdded)
	}
	if len(td.ColumnsDropped) != 1 || td.ColumnsDropped[0].Name != "legacy" {
		t.Errorf("expected legacy dropped, got %+v", td.ColumnsDropped)
	}
	if len(td.ColumnsModified) != 1 {
		t.Fatalf("expected 1 modified column, got %+v", td.ColumnsModified)
	}
	mod := td.ColumnsModified[0]
	if mod.ColumnName != "nickname" || !mod.TypeChanged || !mod.NullChanged || mod.DefaultChanged {
		t.Errorf("unexpected column diff: %+v", mod)
	}
}

func TestDiffer_Constraints(t *testing.T) {
	t.Run("unique column missing in database", func(t *testing.T) {
		db := dbSchemaOf(accountsTable())
		db["accounts"].Constraints = nil

		diff := NewDiffer().Compare([]*schema.TableMetadata{accountsTable()}, db)
		if len(diff.TablesModified) != 1 {
			t.Fatalf("expected 1 modified table, got %+v", diff)
		}
		added := diff.TablesModified[0].ConstraintsAdded
		if len(added) != 1 || added[0].Name != "accounts_email_key" || added[0].Columns[0] != "email" {
			t.Errorf("expected accounts_email_key added, got %+v", added)
		}
	})

	t.Run("check and index removed from models", func(t *testing.T) {
		code := linksTable()
		code.Constraints = nil
		code.Indexes = code.Indexes[:1]

		diff := NewDiffer().Compare([]*schema.TableMetadata{accountsTable(), code}, dbSchemaOf(accountsTable(), linksTable()))
		if len(diff.TablesModified) != 1 {
			t.Fatalf("expected 1 modified table, got %+v", diff)
		}
		td := diff.TablesModified[0]
		if len(td.ConstraintsDropped) != 1 || td.ConstraintsDropped[0].Name != "links_from_id_check" {
			t.Errorf("expected links_from_id_check dropped, got %+v", td.ConstraintsDropped)
		}
		if len(td.IndexesDropped) != 1 || td.IndexesDropped[0].Name != "idx_links_to_id" {
			t.Errorf("expected idx_links_to_id dropped, got %+v", td.IndexesDropped)
		}
	})

	t.Run("foreign key renamed", func(t *testing.T) {
		code := linksTable()
		code.ForeignKeys[0].Name = "fk_links_from_id_accounts"

		diff := NewDiffer().Compare([]*schema.TableMetadata{accountsTable(), code}, dbSchemaOf(accountsTable(), linksTable()))
		td := diff.TablesModified[0]
		if len(td.ForeignKeysAdded) != 1 || td.ForeignKeysAdded[0].Name != "fk_links_from_id_accounts" {
			t.Errorf("unexpected added foreign keys: %+v", td.ForeignKeysAdded)
		}
		if len(td.ForeignKeysDropped) != 1 || td.ForeignKeysDropped[0].Name != "links_from_id_fkey" {
			t.Errorf("unexpected dropped foreign keys: %+v", td.ForeignKeysDropped)
		}
	})
}

func TestDiffer_PrimaryKey(t *testing.T) {
	code := accountsTable()
	code.PrimaryKey = &schema.PrimaryKeyMetadata{Name: "accounts_pkey", Columns: []string{"id", "email"}}

	diff := NewDiffer().Compare([]*schema.TableMetadata{code}, dbSchemaOf(accountsTable()))
	pk := diff.TablesModified[0].PrimaryKeyChanged
	if pk == nil || len(pk.Old.Columns) != 1 || len(pk.New.Columns) != 2 {
		t.Fatalf("expected primary key change, got %+v", pk)
	}
}

func TestNormalizeType(t *testing.T) {
	tests := []struct{ a, b string }{
		{"serial", "integer"},
		{"bigserial", "int8"},
		{"timestamptz", "timestamp with time zone"},
		{"varchar(120)", "character varying(120)"},
		{"BOOL", "boolean"},
	}
	for _, tt := range tests {
		if normalizeType(tt.a) != normalizeType(tt.b) {
			t.Errorf("expected %q and %q to normalize equally: %q vs %q", tt.a, tt.b, normalizeType(tt.a), normalizeType(tt.b))
		}
	}
	if normalizeType("varchar(120)") == normalizeType("varchar(250)") {
		t.Error("expected varchar lengths to differ")
	}
}

func TestGenerateMigration(t *testing.T) {
	t.Run("create and drop", func(t *testing.T) {
		diff := &SchemaDiff{
			TablesAdded:   []schema.TableMetadata{*accountsTable()},
			TablesDropped: []schema.TableMetadata{*asIntrospected(linksTable())},
		}
		up, down := NewPlanner().GenerateMigration(diff)

		create := strings.Index(up, "CREATE TABLE IF NOT EXISTS accounts")
		drop := strings.Index(up, "DROP TABLE IF EXISTS links;")
		if create < 0 || drop < create {
			t.Errorf("expected create before drop in up:\n%s", up)
		}

		recreate := strings.Index(down, "CREATE TABLE IF NOT EXISTS links")
		undo := strings.Index(down, "DROP TABLE IF EXISTS accounts;")
		if recreate < 0 || undo < recreate {
			t.Errorf("expected recreate before drop in down:\n%s", down)
		}
		if !strings.Contains(down, "id serial NOT NULL PRIMARY KEY") {
			t.Errorf("expected sequence column restored as serial:\n%s", down)
		}
		if strings.Contains(down, "nextval") {
			t.Errorf("expected no nextval default in recreated table:\n%s", down)
		}
		if !strings.Contains(down, "CHECK ((from_id <> to_id))") {
			t.Errorf("expected check constraint restored:\n%s", down)
		}
	})

	t.Run("alter table", func(t *testing.T) {
		db := dbSchemaOf(accountsTable())
		code := accountsTable()
		code.Columns[2].Nullable = false
		code.Columns = append(code.Columns, schema.ColumnMetadata{Name: "bio", SQLType: "varchar(250)", Nullable: true})
		code.Indexes = []schema.IndexMetadata{{Name: "idx_accounts_bio", Columns: []string{"bio"}}}

		up, down := NewPlanner().GenerateMigration(NewDiffer().Compare([]*schema.TableMetadata{code}, db))

		wantUp := []string{
			"ALTER TABLE accounts ADD COLUMN bio varchar(250);",
			"ALTER TABLE accounts ALTER COLUMN nickname SET NOT NULL;",
			"CREATE INDEX IF NOT EXISTS idx_accounts_bio ON accounts (bio);",
		}
		assertInOrder(t, up, wantUp)

		wantDown := []string{
			"DROP INDEX IF EXISTS idx_accounts_bio;",
			"ALTER TABLE accounts ALTER COLUMN nickname DROP NOT NULL;",
			"ALTER TABLE accounts DROP COLUMN IF EXISTS bio;",
		}
		assertInOrder(t, down, wantDown)
	})

	t.Run("type and default", func(t *testing.T) {
		diff := &SchemaDiff{TablesModified: []TableDiff{{
			TableName: "links",
			ColumnsModified: []ColumnDiff{{
				ColumnName:     "created_at",
				OldColumn:      schema.ColumnMetadata{Name: "created_at", SQLType: "timestamp without time zone"},
				NewColumn:      schema.ColumnMetadata{Name: "created_at", SQLType: "timestamptz", Default: strPtr("NOW()")},
				TypeChanged:    true,
				DefaultChanged: true,
			}},
		}}}
		up, down := NewPlanner().GenerateMigration(diff)

		assertInOrder(t, up, []string{
			"ALTER TABLE links ALTER COLUMN created_at TYPE timestamptz USING created_at::timestamptz;",
			"ALTER TABLE links ALTER COLUMN created_at SET DEFAULT NOW();",
		})
		assertInOrder(t, down, []string{
			"ALTER TABLE links ALTER COLUMN created_at TYPE timestamp USING created_at::timestamp;",
			"ALTER TABLE links ALTER COLUMN created_at DROP DEFAULT;",
		})
	})
}

func assertInOrder(t *testing.T, sql string, statements []string) {
	t.Helper()
	pos := -1
	for _, stmt := range statements {
		i := strings.Index(sql, stmt)
		if i < 0 {
			t.Errorf("missing %q in:\n%s", stmt, sql)
			return
		}
		if i < pos {
			t.Errorf("%q out of order in:\n%s", stmt, sql)
		}
		pos = i
	}
}

func TestIntrospectionHelpers(t *testing.T) {
	if got := checkExpression("CHECK ((follower_id <> followed_id))"); got != "(follower_id <> followed_id)" {
		t.Errorf("checkExpression = %q", got)
	}

	n := int32(120)
	if got := buildSQLType("character varying", "varchar", &n, nil, nil); got != "varchar(120)" {
		t.Errorf("buildSQLType = %q", got)
	}
	if got := buildSQLType("ARRAY", "_text", nil, nil, nil); got != "text[]" {
		t.Errorf("buildSQLType array = %q", got)
	}
	if got := buildSQLType("timestamp with time zone", "timestamptz", nil, nil, nil); got != "timestamp with time zone" {
		t.Errorf("buildSQLType = %q", got)
	}

	for code, want := range map[string]schema.ReferenceAction{
		"a": schema.NoAction, "r": schema.Restrict, "c": schema.Cascade, "n": schema.SetNull, "d": schema.SetDefault,
	} {
		if got := parseReferenceAction(code); got != want {
			t.Errorf("parseReferenceAction(%q) = %s, want %s", code, got, want)
		}
	}
}
