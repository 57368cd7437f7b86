package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/vango-dev/verdant/pkg/web"
)

// Recover turns a panic further down the chain into a 500 response and
// logs the panic value with its stack.
func Recover(logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(r *http.Request, next Next) (resp *web.Response, err error) {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("panic in request handler",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", fmt.Sprint(p),
					"stack", string(debug.Stack()))
				resp, err = web.ErrorJSON(http.StatusInternalServerError, "internal server error"), nil
			}
		}()
		return next(r)
	}
}

// RequireHeader rejects requests whose header name does not equal value
// with 401, without calling next.
func RequireHeader(name, value string) Handler {
	return func(r *http.Request, next Next) (*web.Response, error) {
		if r.Header.Get(name) != value {
			return web.ErrorJSON(http.StatusUnauthorized, "unauthorized"), nil
		}
		return next(r)
	}
}

// SetHeader sets a response header on every successful response.
func SetHeader(key, value string) Handler {
	return func(r *http.Request, next Next) (*web.Response, error) {
		resp, err := next(r)
		if err != nil || resp == nil {
			return resp, err
		}
		if resp.Header == nil {
			resp.Header = make(http.Header)
		}
		resp.Header.Set(key, value)
		return resp, nil
	}
}
