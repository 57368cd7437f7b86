package verdant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	verrors "github.com/vango-dev/verdant/internal/errors"
	"github.com/vango-dev/verdant/pkg/api"
	"github.com/vango-dev/verdant/pkg/isr"
	"github.com/vango-dev/verdant/pkg/middleware"
	"github.com/vango-dev/verdant/pkg/navigation"
	"github.com/vango-dev/verdant/pkg/page"
	"github.com/vango-dev/verdant/pkg/revalidate"
	"github.com/vango-dev/verdant/pkg/router"
	"github.com/vango-dev/verdant/pkg/web"
)

// Routes is everything an App serves.
type Routes struct {
	Pages []page.Definition
	API   api.Group
}

// =============================================================================
// App Type
// =============================================================================

// App is an http.Handler serving pages, the API, client navigation
// payloads and on-demand revalidation.
type App struct {
	config Config
	logger *slog.Logger

	cache   *isr.Cache
	engine  *page.Engine
	builder *navigation.Builder

	api        *api.Dispatcher
	nav        *navigation.Handler
	revalidate *revalidate.Handler

	serve middleware.Next
}

// New validates routes and builds the App. Registration problems are
// returned as coded *errors.Error values.
func New(cfg Config, routes Routes) (*App, error) {
	cfg = cfg.withDefaults()
	a := &App{config: cfg, logger: cfg.Logger}

	for _, mount := range []string{cfg.APIBase, cfg.DataPrefix, cfg.RevalidatePath} {
		if _, err := router.ParsePattern(mount); err != nil || !strings.HasPrefix(mount, "/") || mount == "/" {
			return nil, verrors.New("V107").WithDetail(fmt.Sprintf("Mount path %q is not an absolute non-root path", mount))
		}
	}

	keys := make([]router.RouteKey, 0, len(routes.Pages))
	for _, def := range routes.Pages {
		keys = append(keys, router.RouteKey{Pattern: def.Pattern})
	}
	if err := router.ValidateRoutes(keys); err != nil {
		return nil, verrors.Classify(err, "V120")
	}

	registry := page.NewRegistry()
	for _, def := range routes.Pages {
		if err := registry.Add(def); err != nil {
			return nil, verrors.Classify(err, "V120")
		}
	}

	cacheOpts := []isr.Option{isr.WithLogger(cfg.Logger), isr.WithTimeout(cfg.RegenerationTimeout)}
	for _, o := range cfg.Observers {
		cacheOpts = append(cacheOpts, isr.WithObserver(o))
	}
	if cfg.Tracer != nil {
		cacheOpts = append(cacheOpts, isr.WithTracer(cfg.Tracer))
	}
	a.cache = isr.New(cacheOpts...)
	chunks := page.WithChunkPrefix(cfg.ChunkPrefix)
	if cfg.Assets != nil {
		chunks = page.WithAssets(cfg.Assets)
	}
	a.engine = page.NewEngine(registry, a.cache,
		page.WithLogger(cfg.Logger),
		page.WithLoadTimeout(cfg.LoaderTimeout),
		page.WithLang(cfg.Lang),
		chunks,
	)

	if len(routes.API) > 0 {
		table, err := api.Flatten(routes.API)
		if err != nil {
			return nil, verrors.Classify(err, "V124")
		}
		a.api = api.NewDispatcher(table,
			api.WithBase(cfg.APIBase),
			api.WithProduction(cfg.Production),
			api.WithLogger(cfg.Logger),
			api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		)
	}

	a.builder = navigation.NewBuilder(a.engine, cfg.BuildID)
	a.nav = navigation.NewHandler(a.builder,
		navigation.WithPrefix(cfg.DataPrefix),
		navigation.WithLogger(cfg.Logger),
	)

	revalidateOpts := []revalidate.Option{
		revalidate.WithRateLimit(cfg.RevalidateRate, cfg.RevalidateBurst),
		revalidate.WithLogger(cfg.Logger),
	}
	if cfg.Publisher != nil {
		revalidateOpts = append(revalidateOpts, revalidate.WithPublisher(cfg.Publisher))
	}
	a.revalidate = revalidate.NewHandler(a.engine, cfg.RevalidateSecret, revalidateOpts...)

	rules := append([]middleware.Rule{{Name: "recover", Handler: middleware.Recover(cfg.Logger)}}, cfg.Middleware...)
	chain, err := middleware.Compile(rules...)
	if err != nil {
		return nil, verrors.New("V126").Wrap(err)
	}
	a.serve = chain.Then(a.route)

	return a, nil
}

// =============================================================================
// http.Handler Implementation
// =============================================================================

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := a.Serve(r)
	if err := resp.WriteTo(w); err != nil {
		a.logger.Debug("response write failed", "path", r.URL.Path, "error", err)
	}
}

// Serve handles r and returns the buffered response.
func (a *App) Serve(r *http.Request) *web.Response {
	canonical, err := router.Canonicalize(r.URL.Path)
	if err != nil {
		return web.ErrorJSON(http.StatusBadRequest, "invalid path")
	}
	if canonical != r.URL.Path {
		target := canonical
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		return web.Redirect(http.StatusPermanentRedirect, target)
	}

	resp, err := a.serve(r)
	if err != nil {
		var known bool
		resp, known = web.ResponseFor(err)
		if !known {
			a.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		}
	}
	if resp == nil {
		a.logger.Error("handler returned no response", "method", r.Method, "path", r.URL.Path)
		return web.ErrorJSON(http.StatusInternalServerError, "internal server error")
	}
	return resp
}

// route is the terminal handler behind the middleware chain.
func (a *App) route(r *http.Request) (*web.Response, error) {
	path := r.URL.Path
	switch {
	case a.api != nil && a.api.Owns(path):
		return a.api.Serve(r)
	case a.nav.Owns(path):
		return a.nav.Serve(r)
	case path == a.config.RevalidatePath:
		return a.revalidate.Serve(r)
	}
	return a.page(r)
}

func (a *App) page(r *http.Request) (*web.Response, error) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		resp := web.Text(http.StatusMethodNotAllowed, "method not allowed")
		resp.Header.Set("Allow", "GET, HEAD")
		return resp, nil
	}

	out, err := a.engine.Serve(r.Context(), r.URL.Path)
	if err != nil {
		a.logger.Error("page render failed", "path", r.URL.Path, "error", err)
		return web.HTML(http.StatusInternalServerError, []byte(errorPage)), nil
	}
	if out.Redirect != "" {
		return web.Redirect(out.RedirectStatus, out.Redirect), nil
	}
	if out.NotFound {
		resp := web.HTML(http.StatusNotFound, []byte(notFoundPage))
		resp.Header.Set("Cache-Control", "no-store")
		return resp, nil
	}

	resp := web.HTML(http.StatusOK, out.Result().Body)
	resp.Header.Set(isr.StatusHeader, string(out.Status))
	resp.Header.Set("Cache-Control", cacheControl(out.Route.Kind))
	return resp, nil
}

// cacheControl tells shared caches how long a page may be reused.
func cacheControl(k page.Kind) string {
	switch {
	case k.IsDynamic():
		return "private, no-cache, no-store, max-age=0, must-revalidate"
	case k.Window() == isr.Forever:
		return "s-maxage=31536000, stale-while-revalidate"
	default:
		return fmt.Sprintf("s-maxage=%d, stale-while-revalidate", int(k.Window().Seconds()))
	}
}

const (
	notFoundPage = "<!DOCTYPE html>\n<html><head><title>Not Found</title></head><body><h1>404</h1><p>This page could not be found.</p></body></html>\n"
	errorPage    = "<!DOCTYPE html>\n<html><head><title>Error</title></head><body><h1>500</h1><p>Something went wrong.</p></body></html>\n"
)

// =============================================================================
// Accessors
// =============================================================================

// Revalidate regenerates the cached page at path and tells the configured
// publisher about it.
func (a *App) Revalidate(ctx context.Context, path string) (isr.Entry, error) {
	entry, err := a.engine.Revalidate(ctx, path)
	if err != nil {
		return entry, err
	}
	if a.config.Publisher != nil {
		if perr := a.config.Publisher.Publish(ctx, path); perr != nil {
			a.logger.Warn("revalidation publish failed", "path", path, "error", perr)
		}
	}
	return entry, nil
}

// Prerender generates every cached page into the cache.
func (a *App) Prerender(ctx context.Context) ([]string, error) {
	paths, err := a.engine.Prerender(ctx)
	if err != nil {
		if errors.Is(err, isr.ErrTimeout) {
			return paths, verrors.New("V140").Wrap(err)
		}
		return paths, verrors.New("V141").Wrap(err)
	}
	return paths, nil
}

// Engine returns the page engine.
func (a *App) Engine() *page.Engine { return a.engine }

// Cache returns the page cache.
func (a *App) Cache() *isr.Cache { return a.cache }

// Navigation returns the navigation payload builder.
func (a *App) Navigation() *navigation.Builder { return a.builder }

// APITable returns the flattened API table, or nil when no API is mounted.
func (a *App) APITable() *api.Table {
	if a.api == nil {
		return nil
	}
	return a.api.Table()
}

// Config returns the effective configuration.
func (a *App) Config() Config { return a.config }
