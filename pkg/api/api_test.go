package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vango-dev/verdant/pkg/router"
	"github.com/vango-dev/verdant/pkg/web"
)

type productParams struct {
	ID string `param:"id" validate:"required"`
}

type listQuery struct {
	Limit int      `query:"limit" validate:"omitempty,min=1,max=100"`
	Tags  []string `query:"tag"`
}

type updateBody struct {
	Name  string  `json:"name" validate:"required"`
	Price float64 `json:"price" validate:"gt=0"`
}

type product struct {
	ID    string  `json:"id" validate:"required"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

var quietRuntime = &Runtime{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

func getProduct(_ context.Context, in Input[productParams, None, None]) (product, error) {
	return product{ID: in.Params.ID, Name: "Widget", Price: 9.5}, nil
}

func decodeError(t *testing.T, resp *web.Response) web.ErrorBody {
	t.Helper()
	var body web.ErrorBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		t.Fatalf("unmarshal %s: %v", resp.Body, err)
	}
	return body
}

// =============================================================================
// Flattening
// =============================================================================

func TestFlattenMethodGroup(t *testing.T) {
	noop := func(context.Context, Input[None, None, None]) (None, error) { return None{}, nil }

	table, err := Flatten(Group{
		"update": Group{
			"GET": Get(noop),
			"PUT": Put(noop),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(table.Entries) != 1 {
		t.Fatalf("entries = %d, want 1: %v", len(table.Entries), table.Entries)
	}
	entry := table.Entries["/update"]
	if entry == nil {
		t.Fatal("missing /update entry")
	}
	if entry.Allow() != "GET, PUT" {
		t.Errorf("Allow() = %q", entry.Allow())
	}

	d := NewDispatcher(table)
	resp, _ := d.Serve(httptest.NewRequest(http.MethodDelete, "/api/update", nil))
	if resp.Status != http.StatusMethodNotAllowed {
		t.Errorf("DELETE status = %d, want 405", resp.Status)
	}
	if resp.Header.Get("Allow") != "GET, PUT" {
		t.Errorf("Allow header = %q", resp.Header.Get("Allow"))
	}
}

func TestFlattenSingleParamRewritesSegment(t *testing.T) {
	table := MustFlatten(Group{
		"products": Group{
			"get":  Get(getProduct),
			"list": Get(func(context.Context, Input[None, listQuery, None]) ([]product, error) { return nil, nil }),
		},
	})

	if _, ok := table.Entries["/products/:id"]; !ok {
		t.Errorf("expected /products/:id, got %v", keys(table))
	}
	if _, ok := table.Entries["/products/list"]; !ok {
		t.Errorf("expected /products/list, got %v", keys(table))
	}

	// The literal wins over the param at the same position.
	entry, params, ok := table.Match("/products/list")
	if !ok || entry.Path != "/products/list" || len(params) != 0 {
		t.Errorf("Match(/products/list) = %v %v %v", entry, params, ok)
	}
	entry, params, ok = table.Match("/products/42")
	if !ok || entry.Path != "/products/:id" || params["id"] != "42" {
		t.Errorf("Match(/products/42) = %v %v %v", entry, params, ok)
	}
}

type twoParams struct {
	Post    string `param:"post"`
	Comment string `param:"comment"`
}

func TestFlattenMultipleParams(t *testing.T) {
	h := func(context.Context, Input[twoParams, None, None]) (None, error) { return None{}, nil }

	_, err := Flatten(Group{"comment": Get(h)})
	if !errors.Is(err, ErrAmbiguousParams) {
		t.Fatalf("err = %v, want ErrAmbiguousParams", err)
	}

	_, err = Flatten(Group{"comment": Get(h, WithPath("/:post/:other"))})
	if !errors.Is(err, ErrPathParamMismatch) {
		t.Fatalf("err = %v, want ErrPathParamMismatch", err)
	}

	table, err := Flatten(Group{"posts": Group{"comment": Get(h, WithPath("/:post/comments/:comment"))}})
	if err != nil {
		t.Fatal(err)
	}
	_, params, ok := table.Match("/posts/7/comments/3")
	if !ok || params["post"] != "7" || params["comment"] != "3" {
		t.Errorf("Match = %v, %v", params, ok)
	}
}

func TestFlattenErrors(t *testing.T) {
	noop := func(context.Context, Input[None, None, None]) (None, error) { return None{}, nil }

	tests := []struct {
		name string
		root Group
		want error
	}{
		{"duplicate method", Group{"a": Get(getProduct), "b": Get(getProduct)}, ErrDuplicateMethod},
		{"key mismatch", Group{"x": Methods{"GET": Post(noop)}}, ErrMethodKeyMismatch},
		{"nil node", Group{"x": nil}, ErrNilNode},
		{"shape conflict", Group{
			"a": Get(getProduct),
			"b": Get(func(context.Context, Input[struct {
				Slug string `param:"slug"`
			}, None, None]) (None, error) {
				return None{}, nil
			}),
		}, router.ErrDuplicatePattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Flatten(tt.root); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMetaSortedByPathThenMethod(t *testing.T) {
	noop := func(context.Context, Input[None, None, None]) (None, error) { return None{}, nil }
	withBody := func(context.Context, Input[productParams, None, updateBody]) (product, error) { return product{}, nil }

	table := MustFlatten(Group{
		"z": Get(noop, WithSummary("last")),
		"products": Group{
			"item": Methods{
				"PUT": Put(withBody),
				"GET": Get(getProduct),
			},
		},
	})

	want := []RouteMeta{
		{Path: "/products/:id", Method: "GET", Params: true, ParamNames: []string{"id"}},
		{Path: "/products/:id", Method: "PUT", Params: true, Body: true, ParamNames: []string{"id"}},
		{Path: "/z", Method: "GET", Summary: "last"},
	}
	if len(table.Meta) != len(want) {
		t.Fatalf("meta = %+v", table.Meta)
	}
	for i, w := range want {
		got := table.Meta[i]
		if got.Path != w.Path || got.Method != w.Method || got.Params != w.Params ||
			got.Query != w.Query || got.Body != w.Body || got.Summary != w.Summary ||
			strings.Join(got.ParamNames, ",") != strings.Join(w.ParamNames, ",") {
			t.Errorf("meta[%d] = %+v, want %+v", i, got, w)
		}
	}

	raw, err := table.MetaJSON()
	if err != nil || !strings.Contains(string(raw), `"paramNames"`) {
		t.Errorf("MetaJSON = %s, %v", raw, err)
	}
}

func keys(t *Table) []string {
	var out []string
	for k := range t.Entries {
		out = append(out, k)
	}
	return out
}

// =============================================================================
// Endpoint calls
// =============================================================================

func TestCallParams(t *testing.T) {
	e := Get(getProduct)

	resp := e.Call(context.Background(), quietRuntime, Call{Method: "GET", Params: router.Params{"id": "42"}})
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.Status, resp.Body)
	}
	var got product
	if err := json.Unmarshal(resp.Body, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "42" {
		t.Errorf("ID = %q, want 42", got.ID)
	}

	resp = e.Call(context.Background(), quietRuntime, Call{Method: "GET", Params: router.Params{}})
	if resp.Status != http.StatusBadRequest {
		t.Fatalf("missing id status = %d, want 400", resp.Status)
	}
	body := decodeError(t, resp)
	if len(body.Issues) != 1 || body.Issues[0].Path != "params.id" {
		t.Errorf("issues = %+v", body.Issues)
	}
}

func TestCallMethodMismatch(t *testing.T) {
	called := false
	e := Get(func(context.Context, Input[None, None, None]) (None, error) {
		called = true
		return None{}, nil
	})

	resp := e.Call(context.Background(), quietRuntime, Call{Method: "DELETE"})
	if resp.Status != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.Status)
	}
	if called {
		t.Error("handler ran on method mismatch")
	}
}

func TestCallQuery(t *testing.T) {
	var seen listQuery
	e := Get(func(_ context.Context, in Input[None, listQuery, None]) ([]product, error) {
		seen = in.Query
		return []product{}, nil
	})

	resp := e.Call(context.Background(), quietRuntime, Call{
		Method: "GET",
		Query:  map[string][]string{"limit": {"5"}, "tag": {"a", "b"}},
	})
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.Status, resp.Body)
	}
	if seen.Limit != 5 || len(seen.Tags) != 2 {
		t.Errorf("query = %+v", seen)
	}

	tests := []struct {
		name  string
		query map[string][]string
		code  string
	}{
		{"not a number", map[string][]string{"limit": {"many"}}, "invalid_type"},
		{"out of range", map[string][]string{"limit": {"500"}}, "max"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := e.Call(context.Background(), quietRuntime, Call{Method: "GET", Query: tt.query})
			if resp.Status != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.Status)
			}
			body := decodeError(t, resp)
			if len(body.Issues) == 0 || body.Issues[0].Code != tt.code || body.Issues[0].Path != "query.limit" {
				t.Errorf("issues = %+v", body.Issues)
			}
		})
	}
}

func TestCallBody(t *testing.T) {
	called := false
	e := Put(func(_ context.Context, in Input[productParams, None, updateBody]) (product, error) {
		called = true
		return product{ID: in.Params.ID, Name: in.Body.Name, Price: in.Body.Price}, nil
	})
	params := router.Params{"id": "1"}

	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantIssue   string
	}{
		{"ok", "application/json", `{"name":"Gadget","price":3}`, 200, ""},
		{"charset ok", "application/json; charset=utf-8", `{"name":"Gadget","price":3}`, 200, ""},
		{"wrong content type", "text/plain", `{"name":"Gadget","price":3}`, 400, ""},
		{"missing content type", "", `{"name":"Gadget","price":3}`, 400, ""},
		{"invalid json", "application/json", `{"name":`, 400, "body"},
		{"schema failure", "application/json", `{"price":-1}`, 400, "body.name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			resp := e.Call(context.Background(), quietRuntime, Call{
				Method: "PUT", Params: params, Body: []byte(tt.body), ContentType: tt.contentType,
			})
			if resp.Status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", resp.Status, tt.wantStatus, resp.Body)
			}
			if tt.wantStatus != 200 && called {
				t.Error("handler ran despite rejected input")
			}
			if tt.wantIssue != "" {
				body := decodeError(t, resp)
				if len(body.Issues) == 0 || body.Issues[0].Path != tt.wantIssue {
					t.Errorf("issues = %+v, want first path %q", body.Issues, tt.wantIssue)
				}
			}
		})
	}
}

func TestCallErrorMapping(t *testing.T) {
	custom := web.Redirect(http.StatusSeeOther, "/login")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"response passthrough", custom, http.StatusSeeOther, ""},
		{"http error", web.Forbidden("nope"), http.StatusForbidden, `{"error":"nope"}`},
		{"plain error hidden", errors.New("sql: connection refused on 10.0.0.3"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Get(func(context.Context, Input[None, None, None]) (product, error) {
				return product{}, tt.err
			})
			resp := e.Call(context.Background(), quietRuntime, Call{Method: "GET"})
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.Status, tt.wantStatus)
			}
			if tt.wantBody != "" && string(resp.Body) != tt.wantBody {
				t.Errorf("body = %s, want %s", resp.Body, tt.wantBody)
			}
		})
	}

	t.Run("response as value", func(t *testing.T) {
		e := Get(func(context.Context, Input[None, None, None]) (*web.Response, error) {
			return web.Text(http.StatusAccepted, "queued"), nil
		})
		resp := e.Call(context.Background(), quietRuntime, Call{Method: "GET"})
		if resp.Status != http.StatusAccepted || string(resp.Body) != "queued" {
			t.Errorf("resp = %d %s", resp.Status, resp.Body)
		}
	})
}

func TestCallOutputValidation(t *testing.T) {
	bad := Get(func(context.Context, Input[None, None, None]) (product, error) {
		return product{Name: "no id"}, nil
	})

	resp := bad.Call(context.Background(), quietRuntime, Call{Method: "GET"})
	if resp.Status != http.StatusInternalServerError {
		t.Errorf("development status = %d, want 500", resp.Status)
	}

	prod := &Runtime{Production: true, Logger: quietRuntime.Logger}
	resp = bad.Call(context.Background(), prod, Call{Method: "GET"})
	if resp.Status != http.StatusOK {
		t.Errorf("production status = %d, want 200", resp.Status)
	}
}

func TestCallNoneOutput(t *testing.T) {
	e := Delete(func(context.Context, Input[productParams, None, None]) (None, error) { return None{}, nil })
	resp := e.Call(context.Background(), quietRuntime, Call{Method: "DELETE", Params: router.Params{"id": "1"}})
	if resp.Status != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.Status)
	}
}

// =============================================================================
// Dispatcher
// =============================================================================

func TestDispatcher(t *testing.T) {
	update := Put(func(_ context.Context, in Input[productParams, None, updateBody]) (product, error) {
		return product{ID: in.Params.ID, Name: in.Body.Name, Price: in.Body.Price}, nil
	})
	table := MustFlatten(Group{
		"products": Group{
			"item": Methods{"GET": Get(getProduct), "PUT": update},
		},
	})
	d := NewDispatcher(table, WithLogger(quietRuntime.Logger), WithMaxBodyBytes(64))

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"get", "GET", "/api/products/42", "", 200},
		{"put", "PUT", "/api/products/42", `{"name":"New","price":1}`, 200},
		{"unknown path", "GET", "/api/nothing", "", 404},
		{"wrong method", "POST", "/api/products/42", "", 405},
		{"body too large", "PUT", "/api/products/42", `{"name":"` + strings.Repeat("x", 100) + `","price":1}`, 413},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			d.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestDispatcherOwns(t *testing.T) {
	d := NewDispatcher(MustFlatten(Group{}), WithBase("internal-api/"))
	if d.Base() != "/internal-api" {
		t.Fatalf("Base() = %q", d.Base())
	}
	for path, want := range map[string]bool{
		"/internal-api":     true,
		"/internal-api/x":   true,
		"/internal-apiary":  false,
		"/api/internal-api": false,
	} {
		if got := d.Owns(path); got != want {
			t.Errorf("Owns(%q) = %v, want %v", path, got, want)
		}
	}
}
