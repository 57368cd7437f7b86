package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/vango-dev/verdant/pkg/router"
	"github.com/vango-dev/verdant/pkg/web"
)

// None marks a schema slot the endpoint does not declare.
type None struct{}

var noneType = reflect.TypeOf(None{})

// Input is what a handler receives. Request is the raw request and may be
// nil when the endpoint is invoked directly.
type Input[P, Q, B any] struct {
	Params  P
	Query   Q
	Body    B
	Request *http.Request
}

// Call carries one invocation of an endpoint.
type Call struct {
	Method      string
	Params      router.Params
	Query       url.Values
	Body        []byte
	ContentType string
	Request     *http.Request
}

// Runtime holds the settings an endpoint call depends on.
type Runtime struct {
	// Production skips output validation.
	Production bool

	// Logger receives handler errors that are hidden from clients.
	Logger *slog.Logger
}

var defaultRuntime = &Runtime{Logger: slog.Default()}

func (rt *Runtime) logger() *slog.Logger {
	if rt == nil || rt.Logger == nil {
		return slog.Default()
	}
	return rt.Logger
}

// Endpoint is a leaf of the API tree: one method bound to one handler with
// declared params, query, body and output schemas.
type Endpoint struct {
	method  string
	path    string
	summary string
	status  int

	params reflect.Type
	query  reflect.Type
	body   reflect.Type
	output reflect.Type

	paramNames []string

	invoke func(ctx context.Context, rt *Runtime, c Call) (*web.Response, error)
}

// Option configures an endpoint.
type Option func(*Endpoint)

// WithPath sets an explicit path template for the endpoint, relative to
// its position in the tree. Required when the params schema declares more
// than one field:
//
//	api.Get(getComment, api.WithPath("/:post/comments/:comment"))
func WithPath(template string) Option {
	return func(e *Endpoint) {
		e.path = template
	}
}

// WithSummary sets a human-readable summary carried into route metadata.
func WithSummary(summary string) Option {
	return func(e *Endpoint) {
		e.summary = summary
	}
}

// WithStatus sets the success status code (default 200).
func WithStatus(code int) Option {
	return func(e *Endpoint) {
		e.status = code
	}
}

// Get declares a GET endpoint.
func Get[P, Q, B, O any](h func(context.Context, Input[P, Q, B]) (O, error), opts ...Option) *Endpoint {
	return Handle(http.MethodGet, h, opts...)
}

// Post declares a POST endpoint.
func Post[P, Q, B, O any](h func(context.Context, Input[P, Q, B]) (O, error), opts ...Option) *Endpoint {
	return Handle(http.MethodPost, h, opts...)
}

// Put declares a PUT endpoint.
func Put[P, Q, B, O any](h func(context.Context, Input[P, Q, B]) (O, error), opts ...Option) *Endpoint {
	return Handle(http.MethodPut, h, opts...)
}

// Patch declares a PATCH endpoint.
func Patch[P, Q, B, O any](h func(context.Context, Input[P, Q, B]) (O, error), opts ...Option) *Endpoint {
	return Handle(http.MethodPatch, h, opts...)
}

// Delete declares a DELETE endpoint.
func Delete[P, Q, B, O any](h func(context.Context, Input[P, Q, B]) (O, error), opts ...Option) *Endpoint {
	return Handle(http.MethodDelete, h, opts...)
}

// Handle declares an endpoint for an arbitrary method.
func Handle[P, Q, B, O any](method string, h func(context.Context, Input[P, Q, B]) (O, error), opts ...Option) *Endpoint {
	e := &Endpoint{
		method: strings.ToUpper(method),
		status: http.StatusOK,
		params: reflect.TypeOf((*P)(nil)).Elem(),
		query:  reflect.TypeOf((*Q)(nil)).Elem(),
		body:   reflect.TypeOf((*B)(nil)).Elem(),
		output: reflect.TypeOf((*O)(nil)).Elem(),
	}
	for _, t := range []reflect.Type{e.params, e.query, e.body} {
		if t != noneType && t.Kind() != reflect.Struct {
			panic("api: params, query and body schemas must be struct types, got " + t.String())
		}
	}
	e.paramNames = taggedNames(e.params, "param")
	for _, opt := range opts {
		opt(e)
	}

	e.invoke = func(ctx context.Context, rt *Runtime, c Call) (*web.Response, error) {
		in := Input[P, Q, B]{Request: c.Request}
		var issues []web.Issue

		if e.DeclaresParams() {
			issues = append(issues, decodeParams(c.Params, &in.Params)...)
			if len(issues) == 0 {
				issues = append(issues, validateStruct("params", in.Params)...)
			}
		}
		if len(issues) == 0 && e.DeclaresQuery() {
			issues = append(issues, decodeValues(c.Query, &in.Query, "query")...)
			if len(issues) == 0 {
				issues = append(issues, validateStruct("query", in.Query)...)
			}
		}
		if len(issues) > 0 {
			return invalid(issues), nil
		}

		if e.DeclaresBody() && e.method != http.MethodGet && e.method != http.MethodHead {
			if !isJSONContentType(c.ContentType) {
				return web.ErrorJSON(http.StatusBadRequest, "expected application/json request body"), nil
			}
			if err := json.Unmarshal(c.Body, &in.Body); err != nil {
				return invalid([]web.Issue{{Path: "body", Code: "invalid_json", Message: err.Error()}}), nil
			}
			if issues := validateStruct("body", in.Body); len(issues) > 0 {
				return invalid(issues), nil
			}
		}

		out, err := h(ctx, in)
		if err != nil {
			return nil, err
		}

		if resp, ok := any(out).(*web.Response); ok && resp != nil {
			return resp, nil
		}
		if e.output == noneType {
			return web.NewResponse(http.StatusNoContent, nil), nil
		}
		if rt == nil || !rt.Production {
			if issues := validateOutput(out); len(issues) > 0 {
				rt.logger().Error("api output failed validation",
					"method", e.method,
					"issues", len(issues),
					"first", issues[0].Path+": "+issues[0].Message)
				return web.JSON(http.StatusInternalServerError, web.ErrorBody{
					Error:  "response failed output validation",
					Issues: issues,
				}), nil
			}
		}
		return web.JSON(e.status, out), nil
	}
	return e
}

// Method returns the HTTP method.
func (e *Endpoint) Method() string { return e.method }

// Summary returns the summary set with WithSummary.
func (e *Endpoint) Summary() string { return e.summary }

// ParamNames returns the declared path parameter names in field order.
func (e *Endpoint) ParamNames() []string { return e.paramNames }

// DeclaresParams reports whether a params schema was declared.
func (e *Endpoint) DeclaresParams() bool { return e.params != noneType }

// DeclaresQuery reports whether a query schema was declared.
func (e *Endpoint) DeclaresQuery() bool { return e.query != noneType }

// DeclaresBody reports whether a body schema was declared.
func (e *Endpoint) DeclaresBody() bool { return e.body != noneType }

// Call runs the endpoint: method check, input decoding and validation,
// the handler, and output validation outside production. It always
// produces a response; internal failures are logged through rt and
// reported to the client as a generic 500.
func (e *Endpoint) Call(ctx context.Context, rt *Runtime, c Call) *web.Response {
	if rt == nil {
		rt = defaultRuntime
	}
	if !strings.EqualFold(c.Method, e.method) {
		resp := web.ErrorJSON(http.StatusMethodNotAllowed, "method not allowed")
		resp.Header.Set("Allow", e.method)
		return resp
	}

	resp, err := e.invoke(ctx, rt, c)
	if err == nil {
		return resp
	}

	resp, known := web.ResponseFor(err)
	var httpErr *web.HTTPError
	if !known || (errors.As(err, &httpErr) && httpErr.Code >= 500) {
		attrs := []any{"method", e.method, "error", err}
		if c.Request != nil {
			attrs = append(attrs, "path", c.Request.URL.Path)
		}
		rt.logger().Error("api handler failed", attrs...)
	}
	return resp
}

func invalid(issues []web.Issue) *web.Response {
	return web.ErrorJSON(http.StatusBadRequest, "validation failed", issues...)
}

func isJSONContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
