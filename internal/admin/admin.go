// Package admin registers entity types for generic CRUD.
//
// Each View works on one model type through one session; the Admin groups
// views under a name and serves them over HTTP (see Handler) or to the
// terminal UI.
package admin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mdobak/go-xerrors"
)

var (
	ErrUnknownView = xerrors.Message("unknown admin view")
	ErrInvalidID   = xerrors.Message("invalid record id")
)

// ValidationError carries per-field messages for rejected input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// View is the CRUD surface of one entity type. Records are exchanged as
// serialized projections; input is keyed by column name.
type View interface {
	Name() string
	Label() string
	Columns() []string
	List(ctx context.Context, page, size int) ([]map[string]any, int64, error)
	Get(ctx context.Context, id int) (map[string]any, error)
	Create(ctx context.Context, fields map[string]any) (map[string]any, error)
	Update(ctx context.Context, id int, fields map[string]any) (map[string]any, error)
	Delete(ctx context.Context, id int) error
}

type Admin struct {
	Name  string
	views map[string]View
	order []string
}

func New(name string) *Admin {
	return &Admin{Name: name, views: make(map[string]View)}
}

// AddView registers v under its name. Names must be unique.
func (a *Admin) AddView(v View) error {
	if _, exists := a.views[v.Name()]; exists {
		return fmt.Errorf("view %s is already registered", v.Name())
	}
	a.views[v.Name()] = v
	a.order = append(a.order, v.Name())
	return nil
}

// View returns the view registered under name.
func (a *Admin) View(name string) (View, error) {
	v, ok := a.views[name]
	if !ok {
		return nil, xerrors.Newf("%w: %s", ErrUnknownView, name)
	}
	return v, nil
}

// Views returns every view in registration order.
func (a *Admin) Views() []View {
	views := make([]View, len(a.order))
	for i, name := range a.order {
		views[i] = a.views[name]
	}
	return views
}
