package command

import (
	"context"
	"fmt"

	"tradeflow/exchange"
)

// Set is an immutable name -> Spec table for one command surface. A Set may
// declare a parent; resolution checks the own table first, so re-declaring a
// parent's command name overrides it.
type Set struct {
	parent *Set
	specs  map[string]Spec
	order  []string
}

// NewSet builds the command table for a surface. Name derivation, pattern
// validation and duplicate detection all happen here, at construction time:
// an invalid or duplicated name is a ConfigurationError, never deferred to
// call time and never resolved by silently picking one.
func NewSet(parent *Set, specs ...Spec) (*Set, error) {
	set := &Set{
		parent: parent,
		specs:  make(map[string]Spec, len(specs)),
		order:  make([]string, 0, len(specs)),
	}
	for _, spec := range specs {
		name := spec.commandName()
		if !namePattern.MatchString(name) {
			return nil, &exchange.ConfigurationError{
				Message: fmt.Sprintf("command name %q doesn't match pattern %s", name, namePattern.String()),
			}
		}
		if _, exists := set.specs[name]; exists {
			return nil, &exchange.ConfigurationError{
				Message: fmt.Sprintf("command %q is declared twice", name),
			}
		}
		set.specs[name] = spec
		set.order = append(set.order, name)
	}
	return set, nil
}

// MustNewSet is NewSet for static command tables whose validity is a build
// invariant.
func MustNewSet(parent *Set, specs ...Spec) *Set {
	set, err := NewSet(parent, specs...)
	if err != nil {
		panic(err)
	}
	return set
}

// Resolve finds the Spec registered under name, searching this Set and then
// its parent chain. The lookup is case-insensitive on the hyphenated form.
func (s *Set) Resolve(name string) (Spec, bool) {
	canonical := Canonical(name)
	for set := s; set != nil; set = set.parent {
		if spec, ok := set.specs[canonical]; ok {
			return spec, true
		}
	}
	return Spec{}, false
}

// Invoke resolves name, binds args and calls the handler. A resolved command
// without a callable handler is a BindingError: a wiring bug, distinct from
// the ArgumentError a user can trigger with bad input.
func (s *Set) Invoke(ctx context.Context, name string, args []string) error {
	spec, ok := s.Resolve(name)
	if !ok {
		return &exchange.ArgumentError{Message: fmt.Sprintf("unknown command %q", name)}
	}
	if spec.Handler == nil {
		return &exchange.BindingError{
			Command: spec.commandName(),
			Message: fmt.Sprintf("no handler bound for method %q", MethodName(spec.commandName())),
		}
	}
	values, err := spec.bind(args)
	if err != nil {
		return err
	}
	return spec.Handler(ctx, values)
}

// Names returns the command names of this surface in declaration order,
// followed by inherited names that are not overridden.
func (s *Set) Names() []string {
	seen := make(map[string]struct{})
	var names []string
	for set := s; set != nil; set = set.parent {
		for _, name := range set.order {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// Specs returns the resolved Spec for every visible command name, overrides
// applied, in the order of Names.
func (s *Set) Specs() []Spec {
	names := s.Names()
	specs := make([]Spec, 0, len(names))
	for _, name := range names {
		spec, _ := s.Resolve(name)
		specs = append(specs, spec)
	}
	return specs
}
