package navigation

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vango-dev/verdant/pkg/isr"
	"github.com/vango-dev/verdant/pkg/router"
	"github.com/vango-dev/verdant/pkg/web"
)

// DefaultPrefix is the path prefix of navigation requests.
const DefaultPrefix = "/__data"

// FromHeader names the path the client is navigating away from.
const FromHeader = "X-Verdant-From"

// Reload tells the client to fall back to a full document load.
type Reload struct {
	Reload bool   `json:"reload"`
	Path   string `json:"path"`
}

// Handler serves GET <prefix>/<path> with the payload for <path>.
type Handler struct {
	builder *Builder
	prefix  string
	logger  *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithPrefix sets the mount prefix (default "/__data").
func WithPrefix(prefix string) HandlerOption {
	return func(h *Handler) {
		h.prefix = "/" + strings.Trim(prefix, "/")
	}
}

// WithLogger sets the logger for build failures.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a navigation handler.
func NewHandler(builder *Builder, opts ...HandlerOption) *Handler {
	h := &Handler{builder: builder, prefix: DefaultPrefix, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Prefix returns the mount prefix.
func (h *Handler) Prefix() string { return h.prefix }

// Owns reports whether path is a navigation request.
func (h *Handler) Owns(path string) bool {
	return path == h.prefix || strings.HasPrefix(path, h.prefix+"/")
}

// Serve answers a navigation request.
func (h *Handler) Serve(r *http.Request) (*web.Response, error) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		resp := web.ErrorJSON(http.StatusMethodNotAllowed, "method not allowed")
		resp.Header.Set("Allow", "GET, HEAD")
		return resp, nil
	}

	target, err := router.Canonicalize(strings.TrimPrefix(r.URL.Path, h.prefix))
	if err != nil {
		return web.ErrorJSON(http.StatusBadRequest, "invalid path"), nil
	}

	reg := h.builder.engine.Registry()
	if _, _, ok := reg.Resolve(target); !ok {
		return web.JSON(http.StatusNotFound, &Payload{
			Route:    RouteInfo{Path: target},
			Preload:  []string{},
			NotFound: true,
			BuildID:  h.builder.buildID,
		}), nil
	}

	if from := r.Header.Get(FromHeader); from != "" {
		from, err = router.Canonicalize(from)
		if err != nil || !CanNavigate(reg, from, target) {
			return web.JSON(http.StatusOK, Reload{Reload: true, Path: target}), nil
		}
	} else if !navigable(reg, target) {
		return web.JSON(http.StatusOK, Reload{Reload: true, Path: target}), nil
	}

	p, err := h.builder.Build(r.Context(), target)
	if errors.Is(err, ErrNotNavigable) {
		return web.JSON(http.StatusOK, Reload{Reload: true, Path: target}), nil
	}
	if err != nil {
		h.logger.Error("navigation payload failed", "path", target, "error", err)
		return web.ErrorJSON(http.StatusInternalServerError, "internal server error"), nil
	}

	status := http.StatusOK
	if p.NotFound {
		status = http.StatusNotFound
	}
	resp := web.JSON(status, p)
	resp.Header.Set("Cache-Control", "no-store")
	if p.Cache != "" {
		resp.Header.Set(isr.StatusHeader, string(p.Cache))
	}
	return resp, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, _ := h.Serve(r)
	_ = resp.WriteTo(w)
}
