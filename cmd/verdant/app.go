package main

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/time/rate"

	"github.com/vango-dev/verdant"
	"github.com/vango-dev/verdant/internal/config"
	"github.com/vango-dev/verdant/internal/demo"
	"github.com/vango-dev/verdant/internal/errors"
	"github.com/vango-dev/verdant/pkg/assets"
	"github.com/vango-dev/verdant/pkg/isr"
	"github.com/vango-dev/verdant/pkg/middleware"
	"github.com/vango-dev/verdant/pkg/revalidate"
)

// newLogger logs JSON in production and text otherwise.
func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.Production {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// appOptions carries the serve-time extras that other commands leave out.
type appOptions struct {
	middleware []middleware.Rule
	observers  []isr.Observer
	publisher  revalidate.Publisher
}

// pageRefresher forwards catalog writes to the App, which is built after
// the catalog that needs it.
type pageRefresher struct {
	app *verdant.App
}

func (p *pageRefresher) Revalidate(ctx context.Context, path string) (isr.Entry, error) {
	return p.app.Revalidate(ctx, path)
}

// newApp builds the demo catalog App from cfg.
func newApp(cfg *config.Config, logger *slog.Logger, opts appOptions) (*verdant.App, error) {
	var resolver assets.Resolver
	if path := cfg.ManifestPath(); path != "" {
		manifest, err := assets.Load(path)
		if err != nil {
			return nil, errors.New("V100").WithDetail("Cannot read chunk manifest " + path).Wrap(err)
		}
		resolver = assets.NewResolver(manifest, cfg.Paths.ChunkPrefix)
	}

	store := demo.NewStore(demo.Seed()...)
	refresher := &pageRefresher{}

	app, err := verdant.New(verdant.Config{
		APIBase:             cfg.Paths.APIBase,
		DataPrefix:          cfg.Paths.DataPrefix,
		RevalidatePath:      cfg.Paths.Revalidate,
		RevalidateSecret:    cfg.Revalidate.Secret,
		RevalidateRate:      rate.Limit(cfg.Revalidate.RateLimit),
		RevalidateBurst:     cfg.Revalidate.Burst,
		Publisher:           opts.publisher,
		Production:          cfg.Production,
		BuildID:             cfg.BuildID,
		Lang:                cfg.Lang,
		ChunkPrefix:         cfg.Paths.ChunkPrefix,
		Assets:              resolver,
		LoaderTimeout:       cfg.Cache.LoaderTimeout.Std(),
		RegenerationTimeout: cfg.Cache.RegenerationTimeout.Std(),
		MaxBodyBytes:        cfg.API.MaxBodyBytes,
		Middleware:          opts.middleware,
		Observers:           opts.observers,
		Logger:              logger,
	}, verdant.Routes{
		Pages: demo.Pages(store),
		API:   demo.NewCatalog(store, refresher, logger).Routes(),
	})
	if err != nil {
		return nil, err
	}
	refresher.app = app
	return app, nil
}
