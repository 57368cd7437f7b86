package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vango-dev/verdant/pkg/assets"
	"github.com/vango-dev/verdant/pkg/isr"
	"github.com/vango-dev/verdant/pkg/render"
	"github.com/vango-dev/verdant/pkg/router"
)

// DefaultLoadTimeout bounds a page loader.
const DefaultLoadTimeout = 5 * time.Second

// Engine serves pages: it resolves the route, applies redirects, and
// generates output directly (dynamic pages) or through the ISR cache.
type Engine struct {
	registry    *Registry
	cache       *isr.Cache
	logger      *slog.Logger
	loadTimeout time.Duration
	lang        string
	assets      assets.Resolver
	now         func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLoadTimeout bounds each loader call.
func WithLoadTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.loadTimeout = d
		}
	}
}

// WithLang sets the document language.
func WithLang(lang string) EngineOption {
	return func(e *Engine) {
		e.lang = lang
	}
}

// WithChunkPrefix sets the URL prefix for relative chunk names.
func WithChunkPrefix(prefix string) EngineOption {
	return func(e *Engine) {
		e.assets = assets.Passthrough(prefix)
	}
}

// WithAssets resolves chunk names through r, typically a fingerprint
// manifest. It replaces WithChunkPrefix.
func WithAssets(r assets.Resolver) EngineOption {
	return func(e *Engine) {
		e.assets = r
	}
}

// NewEngine creates an engine over registry and cache.
func NewEngine(registry *Registry, cache *isr.Cache, opts ...EngineOption) *Engine {
	e := &Engine{
		registry:    registry,
		cache:       cache,
		logger:      slog.Default(),
		loadTimeout: DefaultLoadTimeout,
		lang:        "en",
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the engine's registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Cache returns the engine's cache.
func (e *Engine) Cache() *isr.Cache { return e.cache }

// Outcome is the result of serving one page path.
type Outcome struct {
	Route  *Route
	Params router.Params
	Path   string

	// Entry holds the output. For dynamic pages it is a fresh one-off
	// entry that was never cached.
	Entry  isr.Entry
	Status isr.Status

	// Redirect is set when the page redirects instead of rendering.
	Redirect       string
	RedirectStatus int

	// NotFound is set when no route matches or the loader reported
	// ErrNotFound.
	NotFound bool
}

// Result returns the generated output, or nil for redirects and 404s.
func (o *Outcome) Result() *isr.Result {
	return o.Entry.Result
}

// Serve produces the outcome for path, which must already be canonical.
func (e *Engine) Serve(ctx context.Context, path string) (*Outcome, error) {
	route, params, ok := e.registry.Resolve(path)
	if !ok {
		return &Outcome{Path: path, NotFound: true}, nil
	}
	out := &Outcome{Route: route, Params: params, Path: path}

	if route.Redirect != nil {
		if to, ok := route.Redirect(ctx, params); ok {
			out.Redirect, out.RedirectStatus = to, http.StatusTemporaryRedirect
			return out, nil
		}
	}

	allowed, err := e.listed(ctx, route, path)
	if err != nil {
		return nil, err
	}
	if !allowed {
		out.NotFound = true
		return out, nil
	}

	gen := e.generator(route, path, params)

	if !route.Kind.Cached() {
		res, err := gen(ctx)
		if err != nil {
			return e.failed(out, err)
		}
		out.Entry = isr.Entry{Key: path, Result: res, GeneratedAt: e.now(), State: isr.Fresh}
		out.Status = isr.StatusMiss
		return out, nil
	}

	entry, status, err := e.cache.Get(ctx, path, route.Kind.Window(), gen)
	if err != nil {
		return e.failed(out, err)
	}
	out.Entry, out.Status = entry, status
	return out, nil
}

// listed applies StrictParams: a strict cached route only serves the
// paths its StaticParams enumerate.
func (e *Engine) listed(ctx context.Context, route *Route, path string) (bool, error) {
	if !route.Kind.Cached() || !route.StrictParams || route.Parsed.IsStatic() {
		return true, nil
	}
	allowed, err := route.permits(ctx, path)
	if err != nil {
		return false, fmt.Errorf("page %s: static params: %w", route.Pattern, err)
	}
	return allowed, nil
}

// failed turns loader signals into outcomes and passes real errors on.
func (e *Engine) failed(out *Outcome, err error) (*Outcome, error) {
	if errors.Is(err, ErrNotFound) {
		out.NotFound = true
		return out, nil
	}
	if to, status, ok := IsRedirect(err); ok {
		out.Redirect, out.RedirectStatus = to, status
		return out, nil
	}
	return nil, fmt.Errorf("page %s: %w", out.Path, err)
}

// Revalidate regenerates the cached output for path now.
func (e *Engine) Revalidate(ctx context.Context, path string) (isr.Entry, error) {
	route, params, ok := e.registry.Resolve(path)
	if !ok {
		return isr.Entry{}, fmt.Errorf("%w: %s", ErrUnknownRoute, path)
	}
	if !route.Kind.Cached() {
		return isr.Entry{}, fmt.Errorf("%w: %s", ErrNotCacheable, path)
	}
	allowed, err := e.listed(ctx, route, path)
	if err != nil {
		return isr.Entry{}, err
	}
	if !allowed {
		return isr.Entry{}, fmt.Errorf("%w: %s", ErrUnknownRoute, path)
	}
	return e.cache.Revalidate(ctx, path, route.Kind.Window(), e.generator(route, path, params))
}

// StaticPaths lists every concrete path of every cached route.
func (e *Engine) StaticPaths(ctx context.Context) ([]string, error) {
	var paths []string
	for _, route := range e.registry.Routes() {
		if !route.Kind.Cached() {
			continue
		}
		ps, err := route.StaticPaths(ctx)
		if err != nil {
			return nil, fmt.Errorf("page %s: static params: %w", route.Pattern, err)
		}
		paths = append(paths, ps...)
	}
	return paths, nil
}

// Prerender expands every cached route and generates each path into the
// cache. Paths whose loader reports not found or redirect are skipped.
func (e *Engine) Prerender(ctx context.Context) ([]string, error) {
	paths, err := e.StaticPaths(ctx)
	if err != nil {
		return nil, err
	}
	rendered := make([]string, 0, len(paths))
	for _, p := range paths {
		out, err := e.Serve(ctx, p)
		if err != nil {
			return rendered, err
		}
		if out.NotFound || out.Redirect != "" {
			e.logger.Info("prerender skipped path", "path", p, "not_found", out.NotFound, "redirect", out.Redirect)
			continue
		}
		rendered = append(rendered, p)
	}
	return rendered, nil
}

func (e *Engine) generator(route *Route, path string, params router.Params) isr.Generator {
	return func(ctx context.Context) (*isr.Result, error) {
		return e.generate(ctx, route, path, params)
	}
}

// generate runs load, metadata and render, then wraps the body in the
// document shell.
func (e *Engine) generate(ctx context.Context, route *Route, path string, params router.Params) (*isr.Result, error) {
	var data any
	if route.Load != nil {
		loadCtx, cancel := context.WithTimeout(ctx, e.loadTimeout)
		var err error
		data, err = route.Load(loadCtx, params)
		cancel()
		if err != nil {
			return nil, err
		}
	}

	var meta Metadata
	if route.Metadata != nil {
		var err error
		meta, err = route.Metadata(ctx, params, data)
		if err != nil {
			return nil, fmt.Errorf("metadata: %w", err)
		}
	}

	out, err := route.Render.Render(ctx, render.Input{
		Pattern: route.Parsed.String(),
		Path:    path,
		Params:  params,
		Data:    data,
	})
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	chunks := assets.ResolveAll(e.assets, out.Chunks)
	doc := render.Document{
		Lang:   e.lang,
		Head:   headFor(meta),
		Body:   out.HTML,
		Chunks: chunks,
	}
	if route.Interactive {
		doc.Data = data
	}
	var buf bytes.Buffer
	if err := render.WriteDocument(&buf, doc); err != nil {
		return nil, err
	}

	return &isr.Result{
		Body:   buf.Bytes(),
		Data:   data,
		Chunks: chunks,
		Head:   meta,
	}, nil
}

func headFor(m Metadata) render.Head {
	h := render.Head{Title: m.Title}
	if m.Description != "" {
		h.Meta = append(h.Meta, render.MetaTag{Name: "description", Content: m.Description})
	}
	og := []struct{ prop, val string }{
		{"og:title", m.OpenGraph.Title},
		{"og:description", m.OpenGraph.Description},
		{"og:image", m.OpenGraph.Image},
		{"og:type", m.OpenGraph.Type},
		{"og:url", m.OpenGraph.URL},
	}
	for _, tag := range og {
		if tag.val != "" {
			h.Meta = append(h.Meta, render.MetaTag{Property: tag.prop, Content: tag.val})
		}
	}
	if m.Canonical != "" {
		h.Links = append(h.Links, render.LinkTag{Rel: "canonical", Href: m.Canonical})
	}
	return h
}
