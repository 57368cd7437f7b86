package page

import (
	"fmt"

	"github.com/vango-dev/verdant/pkg/router"
)

// Registry holds page routes and resolves paths to them.
type Registry struct {
	tree   *router.Tree[*Route]
	routes []*Route
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tree: router.NewTree[*Route]()}
}

// Add registers def. Patterns that differ only in parameter names
// conflict.
func (r *Registry) Add(def Definition) error {
	if def.Render == nil {
		return fmt.Errorf("page %s: %w", def.Pattern, ErrNoRenderer)
	}
	if err := def.Kind.validate(); err != nil {
		return fmt.Errorf("page %s: %w", def.Pattern, err)
	}
	p, err := router.ParsePattern(def.Pattern)
	if err != nil {
		return fmt.Errorf("page %s: %w", def.Pattern, err)
	}
	route := &Route{Definition: def, Parsed: p}
	if err := r.tree.Insert(p, route); err != nil {
		return fmt.Errorf("page %s: %w", def.Pattern, err)
	}
	r.routes = append(r.routes, route)
	return nil
}

// MustAdd is like Add but panics on error.
func (r *Registry) MustAdd(defs ...Definition) {
	for _, def := range defs {
		if err := r.Add(def); err != nil {
			panic(err)
		}
	}
}

// Resolve finds the route for path.
func (r *Registry) Resolve(path string) (*Route, router.Params, bool) {
	route, params, _, ok := r.tree.Match(path)
	return route, params, ok
}

// Routes returns routes in registration order.
func (r *Registry) Routes() []*Route {
	return r.routes
}
