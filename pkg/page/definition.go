package page

import (
	"context"
	"sync"

	"github.com/vango-dev/verdant/pkg/render"
	"github.com/vango-dev/verdant/pkg/router"
)

// OpenGraph holds Open Graph tags.
type OpenGraph struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Type        string `json:"type,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Metadata is the resolved head data for one page.
type Metadata struct {
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Canonical   string    `json:"canonical,omitempty"`
	OpenGraph   OpenGraph `json:"openGraph"`
}

// Definition declares one page route.
type Definition struct {
	// Pattern is the route pattern, e.g. "/products/:id".
	Pattern string

	// Kind selects dynamic, static or revalidating output.
	Kind Kind

	// StaticParams enumerates parameter sets to prerender. Only consulted
	// for cached kinds.
	StaticParams func(ctx context.Context) ([]router.Params, error)

	// StrictParams makes a cached page answer 404 for parameters that
	// StaticParams does not list.
	StrictParams bool

	// Load fetches page data. Return ErrNotFound for a 404 or RedirectTo
	// to redirect.
	Load func(ctx context.Context, params router.Params) (any, error)

	// Metadata derives head data from the loaded data.
	Metadata func(ctx context.Context, params router.Params, data any) (Metadata, error)

	// Redirect is checked on every request before any cached output is
	// consulted. Its answer is never cached.
	Redirect func(ctx context.Context, params router.Params) (string, bool)

	// ClientNavigable pages can be reached with client-side navigation.
	ClientNavigable bool

	// Interactive pages ship their data island for hydration.
	Interactive bool

	// Render produces the page body.
	Render render.Renderer
}

// Route is a registered Definition with its parsed pattern.
type Route struct {
	Definition
	Parsed router.Pattern

	allowedMu sync.Mutex
	allowed   map[string]bool
}

// StaticPaths expands the route into concrete paths: the pattern itself
// when it has no parameters, otherwise one path per StaticParams entry.
// Routes with parameters and no StaticParams expand to nothing.
func (r *Route) StaticPaths(ctx context.Context) ([]string, error) {
	if r.Parsed.IsStatic() {
		return []string{r.Parsed.String()}, nil
	}
	if r.StaticParams == nil {
		return nil, nil
	}
	sets, err := r.StaticParams(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(sets))
	for _, params := range sets {
		p, err := r.Parsed.Build(params)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// permits reports whether a strict route lists path among its static
// paths. A successful enumeration is kept for the life of the route; a
// failed one is retried on the next call.
func (r *Route) permits(ctx context.Context, path string) (bool, error) {
	r.allowedMu.Lock()
	defer r.allowedMu.Unlock()
	if r.allowed == nil {
		paths, err := r.StaticPaths(context.WithoutCancel(ctx))
		if err != nil {
			return false, err
		}
		allowed := make(map[string]bool, len(paths))
		for _, p := range paths {
			allowed[p] = true
		}
		r.allowed = allowed
	}
	return r.allowed[path], nil
}
