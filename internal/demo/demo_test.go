package demo

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
	"time"

	"github.com/vango-dev/verdant/pkg/api"
	"github.com/vango-dev/verdant/pkg/isr"
	"github.com/vango-dev/verdant/pkg/page"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newEngine(t *testing.T, store *Store) *page.Engine {
	t.Helper()
	reg := page.NewRegistry()
	for _, def := range Pages(store) {
		if err := reg.Add(def); err != nil {
			t.Fatalf("Add(%s): %v", def.Pattern, err)
		}
	}
	return page.NewEngine(reg, isr.New(isr.WithLogger(quiet)), page.WithLogger(quiet))
}

// =============================================================================
// Store
// =============================================================================

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore(Seed()...)
	s.now = func() time.Time { return time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC) }

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].ID != "1" || list[2].ID != "3" {
		t.Fatalf("List() = %+v", list)
	}

	if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Get(nope) error = %v", err)
	}

	name := "Steel Trowel"
	p, err := s.Update(ctx, "1", ProductUpdate{Name: &name})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != name || p.PriceCents != 1299 || p.UpdatedAt.Year() != 2025 {
		t.Errorf("Update() = %+v", p)
	}
	if got, _ := s.Get(ctx, "1"); got.Name != name {
		t.Errorf("Get after update = %+v", got)
	}
	if _, err := s.Update(ctx, "nope", ProductUpdate{}); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Update(nope) error = %v", err)
	}
}

// =============================================================================
// Pages
// =============================================================================

func TestPages(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, NewStore(Seed()...))

	out, err := e.Serve(ctx, "/products/2")
	if err != nil {
		t.Fatal(err)
	}
	body := string(out.Result().Body)
	if !strings.Contains(body, "Watering Can") || !strings.Contains(body, "$34.50") {
		t.Errorf("product body = %s", body)
	}
	if !strings.Contains(body, "<title>Watering Can</title>") {
		t.Errorf("missing title in %s", body)
	}

	out, err = e.Serve(ctx, "/products/99")
	if err != nil {
		t.Fatal(err)
	}
	if !out.NotFound {
		t.Error("/products/99 should be not found")
	}

	out, err = e.Serve(ctx, "/shop/3")
	if err != nil {
		t.Fatal(err)
	}
	if out.Redirect != "/products/3" || out.RedirectStatus != http.StatusTemporaryRedirect {
		t.Errorf("redirect = %q %d", out.Redirect, out.RedirectStatus)
	}

	out, err = e.Serve(ctx, "/stock")
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != isr.StatusMiss || !strings.Contains(string(out.Result().Body), "Seed Tray") {
		t.Errorf("stock outcome = %v", out.Status)
	}
}

func TestPrerenderCatalog(t *testing.T) {
	e := newEngine(t, NewStore(Seed()...))
	paths, err := e.Prerender(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"/": true, "/about": true, "/products": true, "/products/1": true, "/products/2": true, "/products/3": true}
	if len(paths) != len(want) {
		t.Fatalf("Prerender() = %v", paths)
	}
	for _, p := range paths {
		if !want[p] {
			t.Errorf("unexpected prerendered path %s", p)
		}
	}
}

// =============================================================================
// API
// =============================================================================

func TestCatalogAPI(t *testing.T) {
	store := NewStore(Seed()...)
	engine := newEngine(t, store)
	ctx := context.Background()

	// Warm the cached product page.
	if _, err := engine.Serve(ctx, "/products/1"); err != nil {
		t.Fatal(err)
	}

	table, err := api.Flatten(NewCatalog(store, engine, quiet).Routes())
	if err != nil {
		t.Fatal(err)
	}
	d := api.NewDispatcher(table, api.WithBase("/api"), api.WithLogger(quiet))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		want   string
	}{
		{"list", "GET", "/api/products/list", "", 200, `"total":3`},
		{"list in stock", "GET", "/api/products/list?inStock=true", "", 200, `"total":2`},
		{"get", "GET", "/api/products/2", "", 200, `"name":"Watering Can"`},
		{"get missing", "GET", "/api/products/9", "", 404, "product not found"},
		{"update", "PUT", "/api/products/1", `{"priceCents":1500}`, 200, `"priceCents":1500`},
		{"update invalid", "PUT", "/api/products/1", `{"priceCents":-1}`, 400, "body.priceCents"},
		{"wrong method", "DELETE", "/api/products/1", "", 405, "method not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			d.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body = %s, want %q", rec.Body, tt.want)
			}
		})
	}

	// The update regenerated the product page.
	out, err := engine.Serve(ctx, "/products/1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out.Result().Body), "$15.00") {
		t.Errorf("product page not refreshed: %s", out.Result().Body)
	}
}

func TestCatalogMeta(t *testing.T) {
	table := api.MustFlatten(NewCatalog(NewStore(), nil, quiet).Routes())
	raw, err := table.MetaJSON()
	if err != nil {
		t.Fatal(err)
	}
	var meta []map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatal(err)
	}
	var paths []string
	for _, m := range meta {
		paths = append(paths, m["method"].(string)+" "+m["path"].(string))
	}
	got := strings.Join(paths, ",")
	for _, want := range []string{"GET /products/list", "GET /products/:id", "PUT /products/:id"} {
		if !strings.Contains(got, want) {
			t.Errorf("meta %s missing %s", got, want)
		}
	}
}
