package revalidate

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vango-dev/verdant/pkg/isr"
	"github.com/vango-dev/verdant/pkg/page"
	"github.com/vango-dev/verdant/pkg/router"
	"github.com/vango-dev/verdant/pkg/web"
)

// DefaultPath is where the endpoint is mounted.
const DefaultPath = "/__verdant/revalidate"

const maxRequestBytes = 4 << 10

// Revalidator regenerates the cached output of one path. *page.Engine
// implements it.
type Revalidator interface {
	Revalidate(ctx context.Context, path string) (isr.Entry, error)
}

// Publisher announces a successful revalidation to other instances.
type Publisher interface {
	Publish(ctx context.Context, path string) error
}

// Request is the endpoint input. Fields may also come from the query.
type Request struct {
	Path   string `json:"path"`
	Secret string `json:"secret"`
}

// Response is the endpoint output.
type Response struct {
	Revalidated bool   `json:"revalidated"`
	Path        string `json:"path"`
	Now         int64  `json:"now,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Handler is the on-demand revalidation endpoint.
type Handler struct {
	target    Revalidator
	secret    []byte
	limiter   *clientLimiter
	clientKey func(*http.Request) string
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithRateLimit allows each client r requests per second with the given
// burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(h *Handler) {
		h.limiter = newClientLimiter(r, burst)
	}
}

// WithClientKey sets how requests are grouped for rate limiting. The
// default is RemoteIP.
func WithClientKey(key func(*http.Request) string) Option {
	return func(h *Handler) {
		if key != nil {
			h.clientKey = key
		}
	}
}

// WithPublisher announces successes, e.g. through a Broadcaster.
func WithPublisher(p Publisher) Option {
	return func(h *Handler) {
		h.publisher = p
	}
}

// WithLogger sets the logger for failures.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithClock overrides the time used for rate limiting and reported in
// responses.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

// NewHandler creates the endpoint. An empty secret rejects every request.
// The default rate limit is 10 requests per second with a burst of 20 per
// client.
func NewHandler(target Revalidator, secret string, opts ...Option) *Handler {
	h := &Handler{
		target:    target,
		secret:    []byte(secret),
		limiter:   newClientLimiter(rate.Limit(10), 20),
		clientKey: RemoteIP,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve handles one revalidation request. Rejected requests never touch
// the cache.
func (h *Handler) Serve(r *http.Request) (*web.Response, error) {
	if r.Method != http.MethodPost {
		resp := web.ErrorJSON(http.StatusMethodNotAllowed, "method not allowed")
		resp.Header.Set("Allow", http.MethodPost)
		return resp, nil
	}

	req, err := readRequest(r)
	if err != nil {
		return web.ErrorJSON(http.StatusBadRequest, "invalid request body"), nil
	}

	if !h.limiter.allow(h.clientKey(r), h.now()) {
		return web.ErrorJSON(http.StatusTooManyRequests, "too many requests"), nil
	}

	if req.Secret == "" {
		return web.ErrorJSON(http.StatusUnauthorized, "missing secret"), nil
	}
	if len(h.secret) == 0 || subtle.ConstantTimeCompare([]byte(req.Secret), h.secret) != 1 {
		return web.ErrorJSON(http.StatusForbidden, "invalid secret"), nil
	}

	if req.Path == "" {
		return web.ErrorJSON(http.StatusBadRequest, "missing path"), nil
	}
	path, err := router.Canonicalize(req.Path)
	if err != nil || !strings.HasPrefix(req.Path, "/") {
		return web.ErrorJSON(http.StatusBadRequest, "invalid path"), nil
	}

	if _, err := h.target.Revalidate(r.Context(), path); err != nil {
		switch {
		case errors.Is(err, page.ErrUnknownRoute):
			return web.JSON(http.StatusNotFound, Response{Path: path, Error: "no page matches path"}), nil
		case errors.Is(err, page.ErrNotCacheable):
			return web.JSON(http.StatusBadRequest, Response{Path: path, Error: "page is not cached"}), nil
		}
		h.logger.Error("revalidation failed", "path", path, "error", err)
		return web.JSON(http.StatusInternalServerError, Response{Path: path, Error: "revalidation failed"}), nil
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(r.Context(), path); err != nil {
			h.logger.Warn("revalidation broadcast failed", "path", path, "error", err)
		}
	}

	h.logger.Info("revalidated", "path", path)
	return web.JSON(http.StatusOK, Response{Revalidated: true, Path: path, Now: h.now().UnixMilli()}), nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, _ := h.Serve(r)
	_ = resp.WriteTo(w)
}

// readRequest merges query fields with an optional JSON body; body fields
// win.
func readRequest(r *http.Request) (Request, error) {
	q := r.URL.Query()
	req := Request{Path: q.Get("path"), Secret: q.Get("secret")}
	if r.Body == nil {
		return req, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return req, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return req, nil
	}
	var body Request
	if err := json.Unmarshal(raw, &body); err != nil {
		return req, err
	}
	if body.Path != "" {
		req.Path = body.Path
	}
	if body.Secret != "" {
		req.Secret = body.Secret
	}
	return req, nil
}
