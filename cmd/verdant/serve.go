package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/verdant"
	"github.com/vango-dev/verdant/internal/config"
	verrors "github.com/vango-dev/verdant/internal/errors"
	"github.com/vango-dev/verdant/pkg/inspect"
	"github.com/vango-dev/verdant/pkg/isr"
	"github.com/vango-dev/verdant/pkg/middleware"
	"github.com/vango-dev/verdant/pkg/revalidate"
)

func serveCmd() *cobra.Command {
	var (
		port     int
		host     string
		prewarm  bool
		events   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the HTTP server.

The server mounts the app at /, Prometheus metrics at the metrics path
and, with --events, a WebSocket stream of cache events at the events
path. Subscribers authenticate with the revalidation secret as a bearer
token. When
revalidate.nats.url is set, on-demand revalidations are broadcast to
every instance on the subject.

Examples:
  verdant serve
  verdant serve --port=8080 --prewarm
  verdant serve --events
  VERDANT_REVALIDATE_SECRET=... verdant serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			return runServe(cfg, prewarm, events)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVar(&host, "host", "", "Host to bind (default from config)")
	cmd.Flags().BoolVar(&prewarm, "prewarm", false, "Generate every cached page before accepting requests")
	cmd.Flags().BoolVar(&events, "events", false, "Stream cache events over WebSocket (requires the revalidation secret)")

	return cmd
}

func runServe(cfg *config.Config, prewarm, events bool) error {
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := appOptions{
		middleware: []middleware.Rule{
			{Name: "metrics", Handler: middleware.Prometheus(middleware.WithRegistry(registry))},
			{Name: "tracing", Handler: middleware.OpenTelemetry()},
		},
	}

	var hub *inspect.Hub
	switch {
	case !events:
	case cfg.Revalidate.Secret == "":
		warn("No revalidation secret set; the cache event stream stays off")
	default:
		hubCfg := inspect.DefaultConfig()
		hubCfg.Secret = cfg.Revalidate.Secret
		hubCfg.Logger = logger
		hub = inspect.NewHub(hubCfg)
		defer hub.Close()
		opts.observers = append(opts.observers, hub)
	}

	var broadcaster *revalidate.Broadcaster
	if url := cfg.Revalidate.NATS.URL; url != "" {
		nc, err := nats.Connect(url,
			nats.Name("verdant-"+cfg.BuildID),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			return verrors.New("V163").WithDetail("Could not connect to " + url).Wrap(err)
		}
		defer nc.Drain()

		origin := fmt.Sprintf("%s-%d", cfg.BuildID, time.Now().UnixNano())
		broadcaster = revalidate.NewBroadcaster(nc, origin,
			revalidate.WithSubject(cfg.Revalidate.NATS.Subject),
			revalidate.WithBroadcastLogger(logger),
			revalidate.WithMessageTimeout(cfg.Cache.RegenerationTimeout.Std()),
		)
		opts.publisher = broadcaster
	}

	app, err := newApp(cfg, logger, opts)
	if err != nil {
		return err
	}
	isr.NewCollector(app.Cache(), isr.CollectorConfig{Registry: registry})

	if broadcaster != nil {
		// Peer announcements regenerate through the engine so they are
		// not announced again.
		sub, err := broadcaster.Subscribe(ctx, app.Engine())
		if err != nil {
			return verrors.New("V163").Wrap(err)
		}
		defer sub.Unsubscribe()
	}

	if prewarm {
		paths, err := app.Prerender(ctx)
		if err != nil {
			return err
		}
		info("Prewarmed %d pages", len(paths))
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      newRouter(cfg, app, registry, hub),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	success("Serving at %s", cfg.URL())
	info("API:        %s", cfg.Paths.APIBase)
	info("Navigation: %s", cfg.Paths.DataPrefix)
	info("Metrics:    %s", cfg.Paths.Metrics)
	if hub != nil {
		info("Events:     %s", cfg.Paths.Events)
	}
	if cfg.Revalidate.Secret == "" {
		warn("No revalidation secret set; on-demand revalidation is disabled")
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return verrors.New("V162").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return verrors.New("V162").Wrap(err)
	}
	app.Cache().Wait()
	return nil
}

// newRouter mounts the app behind chi alongside the operational
// endpoints.
func newRouter(cfg *config.Config, app *verdant.App, registry *prometheus.Registry, hub *inspect.Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle(cfg.Paths.Metrics, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	if hub != nil {
		r.Handle(cfg.Paths.Events, hub)
	}
	r.Handle("/*", app)
	return r
}
