package models

import (
	"github.com/marshallshelly/pebble-social/pkg/registry"
)

// All returns a zero value of every model, in dependency order.
func All() []any {
	return []any{User{}, Profile{}, Post{}, Comment{}, Follow{}}
}

// NewSchema returns a registry holding every model, checked for dangling
// references.
func NewSchema() (*registry.Registry, error) {
	reg, err := registry.New(All()...)
	if err != nil {
		return nil, err
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}
