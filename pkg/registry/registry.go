// Package registry holds the table metadata for a set of models.
//
// A Registry is an explicit value: build one per schema and hand it to the
// sessions and tools that need it. There is no package-level instance.
package registry

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/marshallshelly/pebble-social/pkg/schema"
)

// Registry is a thread-safe registry for table metadata.
type Registry struct {
	mu     sync.RWMutex
	parser *schema.Parser
	tables map[reflect.Type]*schema.TableMetadata
	names  map[string]*schema.TableMetadata
	order  []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		parser: schema.NewParser(),
		tables: make(map[reflect.Type]*schema.TableMetadata),
		names:  make(map[string]*schema.TableMetadata),
	}
}

// New creates a Registry with the given models registered in order.
func New(models ...any) (*Registry, error) {
	r := NewRegistry()
	for _, m := range models {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register parses a model and stores its metadata. Registering the same
// type twice is a no-op; registering two types under one table name is not.
func (r *Registry) Register(model any) error {
	modelType, err := structType(model)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tables[modelType]; ok {
		return nil
	}

	table, err := r.parser.Parse(modelType)
	if err != nil {
		return fmt.Errorf("failed to parse model %s: %w", modelType.Name(), err)
	}
	if existing, ok := r.names[table.Name]; ok {
		return fmt.Errorf("table %s already registered by %s", table.Name, existing.GoType.Name())
	}

	r.tables[modelType] = table
	r.names[table.Name] = table
	r.order = append(r.order, table.Name)

	return nil
}

// Get retrieves TableMetadata by Go type.
func (r *Registry) Get(modelType reflect.Type) (*schema.TableMetadata, error) {
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}

	r.mu.RLock()
	table, ok := r.tables[modelType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("model type %s not registered", modelType.Name())
	}
	return table, nil
}

// GetByName retrieves TableMetadata by table name.
func (r *Registry) GetByName(tableName string) (*schema.TableMetadata, error) {
	r.mu.RLock()
	table, ok := r.names[tableName]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("table %s not registered", tableName)
	}
	return table, nil
}

// GetOrRegister retrieves TableMetadata, registering the model first if needed.
func (r *Registry) GetOrRegister(model any) (*schema.TableMetadata, error) {
	modelType, err := structType(model)
	if err != nil {
		return nil, err
	}
	if table, err := r.Get(modelType); err == nil {
		return table, nil
	}
	if err := r.Register(model); err != nil {
		return nil, err
	}
	return r.Get(modelType)
}

// Has checks if a model type is registered.
func (r *Registry) Has(modelType reflect.Type) bool {
	_, err := r.Get(modelType)
	return err == nil
}

// HasTable checks if a table name is registered.
func (r *Registry) HasTable(tableName string) bool {
	r.mu.RLock()
	_, ok := r.names[tableName]
	r.mu.RUnlock()
	return ok
}

// Names returns table names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// All returns every table ordered so that referenced tables come before the
// tables that reference them. Ties keep registration order.
func (r *Registry) All() []*schema.TableMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*schema.TableMetadata, 0, len(r.order))
	visited := make(map[string]bool, len(r.order))

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		table, ok := r.names[name]
		if !ok {
			return
		}
		for _, fk := range table.ForeignKeys {
			if fk.ReferencedTable != name {
				visit(fk.ReferencedTable)
			}
		}
		result = append(result, table)
	}

	for _, name := range r.order {
		visit(name)
	}
	return result
}

// Validate checks that every foreign key and relationship points at a
// registered table.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		table := r.names[name]
		for _, fk := range table.ForeignKeys {
			if _, ok := r.names[fk.ReferencedTable]; !ok {
				return fmt.Errorf("%s.%s references unregistered table %s", name, fk.Columns[0], fk.ReferencedTable)
			}
		}
		for _, rel := range table.Relationships {
			if _, ok := r.names[rel.TargetTable]; !ok {
				return fmt.Errorf("%s.%s targets unregistered table %s", name, rel.SourceField, rel.TargetTable)
			}
		}
	}
	return nil
}

func structType(model any) (reflect.Type, error) {
	if model == nil {
		return nil, fmt.Errorf("model must not be nil")
	}
	modelType := reflect.TypeOf(model)
	if rt, ok := model.(reflect.Type); ok {
		modelType = rt
	}
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", modelType.Kind())
	}
	return modelType, nil
}
