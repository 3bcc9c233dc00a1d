package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mdobak/go-xerrors"

	"github.com/marshallshelly/pebble-social/internal/models"
	"github.com/marshallshelly/pebble-social/internal/validator"
	"github.com/marshallshelly/pebble-social/pkg/builder"
	"github.com/marshallshelly/pebble-social/pkg/runtime"
	"github.com/marshallshelly/pebble-social/pkg/schema"
)

// Serializer is a pointer to a model that can project itself.
type Serializer[T any] interface {
	*T
	Serialize() map[string]any
}

// ModelView is the generic View over one model type. It needs only the
// type and a session: columns, the primary key and input rules come from
// the session's registry.
type ModelView[T any, P Serializer[T]] struct {
	db       *builder.DB
	table    *schema.TableMetadata
	label    string
	preloads []string
	validate func(v *validator.Validator, fields map[string]any, creating bool)
	prepare  func(ctx context.Context, fields map[string]any) error
}

type Option[T any, P Serializer[T]] func(*ModelView[T, P])

// WithLabel sets the display name, which defaults to the Go type name.
func WithLabel[T any, P Serializer[T]](label string) Option[T, P] {
	return func(m *ModelView[T, P]) { m.label = label }
}

// WithPreload names the relationships loaded before serializing.
func WithPreload[T any, P Serializer[T]](relationships ...string) Option[T, P] {
	return func(m *ModelView[T, P]) { m.preloads = relationships }
}

// WithValidation adds checks that run after the column checks.
func WithValidation[T any, P Serializer[T]](fn func(v *validator.Validator, fields map[string]any, creating bool)) Option[T, P] {
	return func(m *ModelView[T, P]) { m.validate = fn }
}

// WithPrepare rewrites validated input before it is stored.
func WithPrepare[T any, P Serializer[T]](fn func(ctx context.Context, fields map[string]any) error) Option[T, P] {
	return func(m *ModelView[T, P]) { m.prepare = fn }
}

// NewModelView builds a view for T. T must be registered in the session's
// registry and have a single-column primary key.
func NewModelView[T any, P Serializer[T]](db *builder.DB, opts ...Option[T, P]) (*ModelView[T, P], error) {
	table, err := db.Registry().Get(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	if table.PrimaryKeyColumn() == nil {
		return nil, fmt.Errorf("%s: %w", table.Name, runtime.ErrNoPrimaryKey)
	}

	m := &ModelView[T, P]{db: db, table: table, label: table.GoType.Name()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *ModelView[T, P]) Name() string  { return m.table.Name }
func (m *ModelView[T, P]) Label() string { return m.label }

func (m *ModelView[T, P]) Columns() []string {
	return m.table.ColumnNames()
}

func (m *ModelView[T, P]) pk() string {
	return m.table.PrimaryKeyColumn().Name
}

func (m *ModelView[T, P]) List(ctx context.Context, page, size int) ([]map[string]any, int64, error) {
	total, err := builder.Select[T](m.db).Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	q := builder.Select[T](m.db).OrderByAsc(m.pk()).Preload(m.preloads...)
	if size > 0 {
		if page < 1 {
			page = 1
		}
		q = q.Limit(size).Offset((page - 1) * size)
	}
	rows, err := q.All(ctx)
	if err != nil {
		return nil, 0, err
	}

	out := make([]map[string]any, len(rows))
	for i := range rows {
		out[i] = P(&rows[i]).Serialize()
	}
	return out, total, nil
}

func (m *ModelView[T, P]) Get(ctx context.Context, id int) (map[string]any, error) {
	row, err := builder.Select[T](m.db).
		Where(builder.Eq(m.pk(), id)).
		Preload(m.preloads...).
		First(ctx)
	if err != nil {
		return nil, err
	}
	return P(row).Serialize(), nil
}

func (m *ModelView[T, P]) Create(ctx context.Context, fields map[string]any) (map[string]any, error) {
	if err := m.check(fields, true); err != nil {
		return nil, err
	}
	if m.prepare != nil {
		if err := m.prepare(ctx, fields); err != nil {
			return nil, err
		}
	}

	var model T
	if err := m.assign(&model, fields); err != nil {
		return nil, err
	}

	rows, err := builder.Insert[T](m.db).Values(model).Returning(m.pk()).ExecReturning(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, runtime.ErrNotFound
	}

	id := reflect.ValueOf(rows[0]).FieldByName(m.table.PrimaryKeyColumn().GoField)
	return m.Get(ctx, int(id.Int()))
}

func (m *ModelView[T, P]) Update(ctx context.Context, id int, fields map[string]any) (map[string]any, error) {
	if err := m.check(fields, false); err != nil {
		return nil, err
	}
	if m.prepare != nil {
		if err := m.prepare(ctx, fields); err != nil {
			return nil, err
		}
	}

	values, err := m.convert(fields)
	if err != nil {
		return nil, err
	}
	if len(values) > 0 {
		n, err := builder.Update[T](m.db).SetMap(values).Where(builder.Eq(m.pk(), id)).Exec(ctx)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, runtime.ErrNotFound
		}
	}
	return m.Get(ctx, id)
}

func (m *ModelView[T, P]) Delete(ctx context.Context, id int) error {
	n, err := builder.Delete[T](m.db).Where(builder.Eq(m.pk(), id)).Exec(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return runtime.ErrNotFound
	}
	return nil
}

// check validates input against the table: known columns only, no primary
// key, required columns present on create, non-null values for NOT NULL
// columns, and varchar lengths.
func (m *ModelView[T, P]) check(fields map[string]any, creating bool) error {
	v := validator.New()

	for key, value := range fields {
		col := m.table.GetColumn(key)
		if col == nil {
			v.AddError(key, "unknown column")
			continue
		}
		if m.table.IsPrimaryKey(key) {
			v.AddError(key, "is assigned by the database")
			continue
		}
		if value == nil {
			v.Check(col.Nullable, key, "must not be null")
			continue
		}
		if limit, ok := varcharLimit(col.SQLType); ok {
			if s, isString := value.(string); isString {
				v.Check(validator.MaxChars(s, limit), key, fmt.Sprintf("must not be more than %d characters", limit))
			}
		}
	}

	if creating {
		for _, col := range m.table.Columns {
			if col.Nullable || col.Default != nil || m.table.IsPrimaryKey(col.Name) {
				continue
			}
			if _, ok := fields[col.Name]; !ok {
				v.AddError(col.Name, "must be provided")
			}
		}
	}

	if m.validate != nil {
		m.validate(v, fields, creating)
	}

	if !v.Valid() {
		return xerrors.New(&ValidationError{Fields: v.Errors})
	}
	return nil
}

// assign copies fields into model by column.
func (m *ModelView[T, P]) assign(model *T, fields map[string]any) error {
	rv := reflect.ValueOf(model).Elem()
	for key, value := range fields {
		col := m.table.GetColumn(key)
		field := rv.FieldByName(col.GoField)
		converted, err := convertValue(field.Type(), value)
		if err != nil {
			return fieldError(key, err)
		}
		field.Set(converted)
	}
	return nil
}

// convert returns fields with every value converted to its column's Go
// type, ready for an UPDATE.
func (m *ModelView[T, P]) convert(fields map[string]any) (map[string]any, error) {
	values := make(map[string]any, len(fields))
	for key, value := range fields {
		col := m.table.GetColumn(key)
		converted, err := convertValue(col.GoType, value)
		if err != nil {
			return nil, fieldError(key, err)
		}
		values[key] = converted.Interface()
	}
	return values, nil
}

// convertValue converts a decoded JSON value to t by round-tripping it
// through encoding/json, which covers numbers, strings, booleans and
// RFC 3339 timestamps. Timestamps without an offset, as the serializers
// write them, are read as UTC.
func convertValue(t reflect.Type, value any) (reflect.Value, error) {
	if s, ok := value.(string); ok && t == timeType {
		if ts, err := time.ParseInLocation(models.TimeFormat, s, time.UTC); err == nil {
			return reflect.ValueOf(ts), nil
		}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return reflect.Value{}, err
	}
	ptr := reflect.New(t)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

var timeType = reflect.TypeFor[time.Time]()

func fieldError(key string, err error) error {
	return xerrors.New(&ValidationError{Fields: map[string]string{key: "has the wrong type: " + err.Error()}})
}

func varcharLimit(sqlType string) (int, bool) {
	inner, ok := strings.CutPrefix(sqlType, "varchar(")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(inner, ")"))
	if err != nil {
		return 0, false
	}
	return n, true
}
