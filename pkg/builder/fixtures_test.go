package builder

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/marshallshelly/pebble-social/pkg/registry"
)

type member struct {
	ID       int    `po:"id,primaryKey,serial"`
	Email    string `po:"email,varchar(120),unique,notNull"`
	Password string `po:"password,text,notNull"`
	Active   bool   `po:"active,boolean,notNull"`

	Notes []note `po:"-,hasMany,foreignKey(member_id)"`
}

func (member) TableName() string { return "members" }

type note struct {
	ID        int       `po:"id,primaryKey,serial"`
	Body      string    `po:"body,text,notNull"`
	CreatedAt time.Time `po:"created_at,timestamptz,default(NOW()),notNull"`
	MemberID  int       `po:"member_id,integer,notNull,fk(members.id)"`

	Member *member `po:"-,belongsTo,foreignKey(member_id)"`
}

func (note) TableName() string { return "notes" }

type unregistered struct {
	ID int `po:"id,primaryKey,serial"`
}

// fakeQuerier records statements and fails every call with err. Queries
// return results in order, then empty result sets.
type fakeQuerier struct {
	err     error
	count   int64
	sqls    []string
	args    [][]any
	results []*fakeRows
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.record(sql, args)
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("DELETE 1"), nil
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.record(sql, args)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return &fakeRows{}, nil
	}
	rows := f.results[0]
	f.results = f.results[1:]
	return rows, nil
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.record(sql, args)
	return fakeRow{err: f.err, count: f.count}
}

func (f *fakeQuerier) record(sql string, args []any) {
	f.sqls = append(f.sqls, sql)
	f.args = append(f.args, args)
}

type fakeRow struct {
	err   error
	count int64
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.count
	return nil
}

func newTestDB(t *testing.T) (*DB, *fakeQuerier) {
	t.Helper()
	reg, err := registry.New(member{}, note{})
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	q := &fakeQuerier{}
	return NewWithQuerier(q, reg), q
}

// fakeRows serves rows of values under the given column names.
type fakeRows struct {
	columns []string
	rows    [][]any
	pos     int
	closed  bool
}

func newRows(columns []string, rows ...[]any) *fakeRows {
	return &fakeRows{columns: columns, rows: rows}
}

func (r *fakeRows) Close()                        { r.closed = true }
func (r *fakeRows) Err() error                    { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fields := make([]pgconn.FieldDescription, len(r.columns))
	for i, c := range r.columns {
		fields[i] = pgconn.FieldDescription{Name: c}
	}
	return fields
}

func (r *fakeRows) Next() bool {
	if r.closed || r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(row))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if row[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		v := reflect.ValueOf(row[i])
		if target.Kind() != reflect.Interface && v.Type() != target.Type() {
			if !v.CanConvert(target.Type()) {
				return fmt.Errorf("scan: cannot assign %s to %s", v.Type(), target.Type())
			}
			v = v.Convert(target.Type())
		}
		target.Set(v)
	}
	return nil
}
