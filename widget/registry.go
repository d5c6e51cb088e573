package widget

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Factory builds one Widget for a node. It validates the parameter bag but
// creates no audio units; that happens on Mount.
type Factory func(p Params) (Widget, error)

// Registry maps node type tags to their factories and parameter schemas.
type Registry struct {
	types map[string]entry
}

type entry struct {
	schema  Schema
	factory Factory
}

var errDuplicateType = errors.New("duplicate node type")

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]entry)}
}

// Register adds a factory for the given node type. Build checks every bag
// against schema before the factory sees it.
func (r *Registry) Register(nodeType string, schema Schema, factory Factory) error {
	if nodeType == "" {
		return errors.New("empty node type")
	}

	if factory == nil {
		return errors.New("nil factory")
	}

	if _, exists := r.types[nodeType]; exists {
		return fmt.Errorf("%w: %s", errDuplicateType, nodeType)
	}

	r.types[nodeType] = entry{schema: maps.Clone(schema), factory: factory}

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(nodeType string, schema Schema, factory Factory) {
	err := r.Register(nodeType, schema, factory)
	if err != nil {
		panic("widget registry: " + err.Error())
	}
}

// Lookup returns the factory for the given node type, or nil.
func (r *Registry) Lookup(nodeType string) Factory {
	return r.types[nodeType].factory
}

// Schema returns the parameter schema of the given node type, or nil.
func (r *Registry) Schema(nodeType string) Schema {
	e, ok := r.types[nodeType]
	if !ok {
		return nil
	}

	return maps.Clone(e.schema)
}

// Build validates p against its type's schema and creates the widget.
func (r *Registry) Build(p Params) (Widget, error) {
	e, ok := r.types[p.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, p.Type)
	}

	err := e.schema.Validate(p)
	if err != nil {
		return nil, fmt.Errorf("widget: build %s %q: %w", p.Type, p.ID, err)
	}

	w, err := e.factory(p)
	if err != nil {
		return nil, fmt.Errorf("widget: build %s %q: %w", p.Type, p.ID, err)
	}

	return w, nil
}

// Types returns the registered node types in sorted order.
func (r *Registry) Types() []string {
	return slices.Sorted(maps.Keys(r.types))
}
