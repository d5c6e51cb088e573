package widget

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrParamKind is returned for a parameter value of the wrong kind, such as
// a number for a response type.
var ErrParamKind = errors.New("widget: wrong parameter kind")

// Kind is the value kind of a widget parameter.
type Kind int

const (
	// Number parameters accept numbers and booleans.
	Number Kind = iota
	// Text parameters accept strings.
	Text
)

func (k Kind) String() string {
	if k == Text {
		return "text"
	}

	return "number"
}

// Schema declares the parameters of a node type and their kinds.
type Schema map[string]Kind

// Names returns the declared parameter names in sorted order.
func (s Schema) Names() []string {
	return slices.Sorted(maps.Keys(s))
}

// Validate checks every declared parameter present in p against its kind.
// Undeclared keys are kept in the bag and left alone.
func (s Schema) Validate(p Params) error {
	var errs []error

	for _, name := range slices.Sorted(maps.Keys(p.Num)) {
		if k, ok := s[name]; ok && k != Number {
			errs = append(errs, kindError(name, k, p.Num[name]))
		}
	}

	for _, name := range slices.Sorted(maps.Keys(p.Str)) {
		if k, ok := s[name]; ok && k != Text {
			errs = append(errs, kindError(name, k, p.Str[name]))
		}
	}

	return errors.Join(errs...)
}

// check validates one Set call.
func (s Schema) check(typ, name string, value any) error {
	k, ok := s[name]
	if !ok {
		return fmt.Errorf("%w: %s has no %q", ErrUnknownParam, typ, name)
	}

	if valueKind(value) != k {
		return kindError(name, k, value)
	}

	return nil
}

func valueKind(v any) Kind {
	if _, ok := v.(string); ok {
		return Text
	}

	return Number
}

func kindError(name string, want Kind, got any) error {
	return fmt.Errorf("%w: %q wants %s, got %T", ErrParamKind, name, want, got)
}
