package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/verdant/pkg/navigation"
	"github.com/vango-dev/verdant/pkg/page"
	"github.com/vango-dev/verdant/pkg/web"
)

// Report lists what a run produced.
type Report struct {
	// Written are the exported page paths.
	Written []string

	// Skipped are paths whose loader reported not found or redirect.
	Skipped []string
}

// Exporter prerenders every cached page and writes it to a sink.
type Exporter struct {
	engine      *page.Engine
	sink        Sink
	payloads    *navigation.Builder
	dataPrefix  string
	concurrency int
	logger      *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithPayloads also exports navigation payloads for client-navigable
// pages, under dataPrefix (e.g. "__data").
func WithPayloads(b *navigation.Builder, dataPrefix string) Option {
	return func(e *Exporter) {
		e.payloads = b
		e.dataPrefix = strings.Trim(dataPrefix, "/")
	}
}

// WithConcurrency bounds parallel renders (default 4).
func WithConcurrency(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an exporter.
func New(engine *page.Engine, sink Sink, opts ...Option) *Exporter {
	e := &Exporter{
		engine:      engine,
		sink:        sink,
		concurrency: 4,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run expands static params, renders each path through the engine and
// writes <path>/index.html. Rendered output also warms the engine's cache.
// The first failure cancels the run.
func (e *Exporter) Run(ctx context.Context) (*Report, error) {
	paths, err := e.engine.StaticPaths(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		report Report
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, p := range paths {
		p := p
		g.Go(func() error {
			written, err := e.exportPath(gctx, p)
			if err != nil {
				return err
			}
			mu.Lock()
			if written {
				report.Written = append(report.Written, p)
			} else {
				report.Skipped = append(report.Skipped, p)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(report.Written)
	sort.Strings(report.Skipped)
	e.logger.Info("export complete", "written", len(report.Written), "skipped", len(report.Skipped))
	return &report, nil
}

func (e *Exporter) exportPath(ctx context.Context, path string) (bool, error) {
	out, err := e.engine.Serve(ctx, path)
	if err != nil {
		return false, fmt.Errorf("export %s: %w", path, err)
	}
	if out.NotFound || out.Redirect != "" {
		e.logger.Info("export skipped path", "path", path, "not_found", out.NotFound, "redirect", out.Redirect)
		return false, nil
	}

	if err := e.sink.Write(ctx, PageKey(path), web.ContentTypeHTML, out.Result().Body); err != nil {
		return false, err
	}

	if e.payloads != nil && out.Route.ClientNavigable {
		p, err := e.payloads.Build(ctx, path)
		if err != nil {
			return false, fmt.Errorf("export %s payload: %w", path, err)
		}
		body, err := json.Marshal(p)
		if err != nil {
			return false, fmt.Errorf("export %s payload: %w", path, err)
		}
		if err := e.sink.Write(ctx, PayloadKey(e.dataPrefix, path), web.ContentTypeJSON, body); err != nil {
			return false, err
		}
	}
	return true, nil
}

// PageKey maps a page path to its object key: "/" is "index.html" and
// "/a/b" is "a/b/index.html".
func PageKey(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "index.html"
	}
	return trimmed + "/index.html"
}

// PayloadKey maps a page path to its navigation payload key under prefix.
func PayloadKey(prefix, path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		trimmed = "index"
	}
	if prefix == "" {
		return trimmed + ".json"
	}
	return prefix + "/" + trimmed + ".json"
}
