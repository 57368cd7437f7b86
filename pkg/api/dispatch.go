package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vango-dev/verdant/pkg/web"
)

// DefaultBase is the path the dispatcher is mounted under.
const DefaultBase = "/api"

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// Dispatcher serves a flattened API table.
type Dispatcher struct {
	table        *Table
	base         string
	runtime      *Runtime
	maxBodyBytes int64
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithBase sets the mount path (default "/api").
func WithBase(base string) DispatcherOption {
	return func(d *Dispatcher) {
		d.base = "/" + strings.Trim(base, "/")
	}
}

// WithProduction disables output validation.
func WithProduction(production bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.runtime.Production = production
	}
}

// WithLogger sets the logger for hidden handler errors.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.runtime.Logger = logger
		}
	}
}

// WithMaxBodyBytes caps request body size; larger bodies get 413.
func WithMaxBodyBytes(n int64) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxBodyBytes = n
		}
	}
}

// NewDispatcher creates a dispatcher for table.
func NewDispatcher(table *Table, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		table:        table,
		base:         DefaultBase,
		runtime:      &Runtime{Logger: slog.Default()},
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Base returns the mount path.
func (d *Dispatcher) Base() string { return d.base }

// Table returns the flattened table.
func (d *Dispatcher) Table() *Table { return d.table }

// Owns reports whether path falls under the dispatcher's base.
func (d *Dispatcher) Owns(path string) bool {
	return path == d.base || strings.HasPrefix(path, d.base+"/")
}

// Serve dispatches r and returns the buffered response. The error return
// is always nil; it exists so Serve fits a middleware chain.
func (d *Dispatcher) Serve(r *http.Request) (*web.Response, error) {
	rel := strings.TrimPrefix(r.URL.Path, d.base)
	if rel == "" {
		rel = "/"
	}

	entry, params, ok := d.table.Match(rel)
	if !ok {
		return web.ErrorJSON(http.StatusNotFound, "not found"), nil
	}

	e, ok := entry.Methods[r.Method]
	if !ok {
		resp := web.ErrorJSON(http.StatusMethodNotAllowed, "method not allowed")
		resp.Header.Set("Allow", entry.Allow())
		return resp, nil
	}

	var body []byte
	if e.DeclaresBody() && r.Body != nil {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(nil, r.Body, d.maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return web.ErrorJSON(http.StatusRequestEntityTooLarge, "request body too large"), nil
			}
			return web.ErrorJSON(http.StatusBadRequest, "could not read request body"), nil
		}
	}

	return e.Call(r.Context(), d.runtime, Call{
		Method:      r.Method,
		Params:      params,
		Query:       r.URL.Query(),
		Body:        body,
		ContentType: r.Header.Get("Content-Type"),
		Request:     r,
	}), nil
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, _ := d.Serve(r)
	_ = resp.WriteTo(w)
}
