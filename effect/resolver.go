package effect

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownMutationKind is returned when a mutation kind has no entry in the registry.
var ErrUnknownMutationKind = errors.New("unknown mutation kind")

// ResolveFunc maps the parameters and response of one mutation kind to its cache effects.
// Implementations must be pure: the same inputs always produce the same descriptor.
type ResolveFunc func(params map[string]any, response any) Descriptor

// Registry maps mutation kinds to their resolve functions.
type Registry map[string]ResolveFunc

// Kinds returns the registered mutation kinds in sorted order.
func (r Registry) Kinds() []string {
	kinds := make([]string, 0, len(r))
	for kind := range r {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Chain composes resolve functions into one whose descriptor is the Merge of
// every function's descriptor, in argument order.
func Chain(fns ...ResolveFunc) ResolveFunc {
	return func(params map[string]any, response any) Descriptor {
		ds := make([]Descriptor, 0, len(fns))
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			ds = append(ds, fn(params, response))
		}
		return Merge(ds...)
	}
}

// Resolver turns completed mutations into descriptors using a fixed registry.
type Resolver struct {
	registry Registry
}

// NewResolver creates a resolver over a copy of registry. Later changes to
// registry are not observed by the resolver.
func NewResolver(registry Registry) *Resolver {
	r := make(Registry, len(registry))
	for kind, fn := range registry {
		if fn != nil {
			r[kind] = fn
		}
	}
	return &Resolver{registry: r}
}

// Known reports whether kind is registered.
func (r *Resolver) Known(kind string) bool {
	_, ok := r.registry[kind]
	return ok
}

// Kinds returns the registered mutation kinds in sorted order.
func (r *Resolver) Kinds() []string {
	return r.registry.Kinds()
}

// Resolve returns the cache effects of a completed mutation of the given kind.
func (r *Resolver) Resolve(kind string, params map[string]any, response any) (Descriptor, error) {
	fn, ok := r.registry[kind]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownMutationKind, kind)
	}
	return fn(params, response), nil
}
