package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/vango-dev/verdant/pkg/page"
	"github.com/vango-dev/verdant/pkg/render"
	"github.com/vango-dev/verdant/pkg/router"
)

// CatalogWindow is how long catalog pages stay fresh.
const CatalogWindow = time.Minute

// Pages returns the demo page definitions.
func Pages(store *Store) []page.Definition {
	return []page.Definition{
		{
			Pattern:         "/",
			Kind:            page.Static(),
			ClientNavigable: true,
			Metadata:        title("Verdant Garden Supply"),
			Render:          render.Templ(homeView),
		},
		{
			Pattern:         "/about",
			Kind:            page.Static(),
			ClientNavigable: true,
			Metadata:        title("About"),
			Render:          render.Templ(aboutView),
		},
		{
			Pattern:         "/products",
			Kind:            page.Revalidating(CatalogWindow),
			ClientNavigable: true,
			Load: func(ctx context.Context, _ router.Params) (any, error) {
				return store.List(ctx)
			},
			Metadata: title("Products"),
			Render:   render.Templ(listView, "catalog.js"),
		},
		{
			Pattern:         "/products/:id",
			Kind:            page.Revalidating(CatalogWindow),
			ClientNavigable: true,
			Interactive:     true,
			StaticParams: func(ctx context.Context) ([]router.Params, error) {
				products, err := store.List(ctx)
				if err != nil {
					return nil, err
				}
				params := make([]router.Params, len(products))
				for i, p := range products {
					params[i] = router.Params{"id": p.ID}
				}
				return params, nil
			},
			Load: func(ctx context.Context, params router.Params) (any, error) {
				p, err := store.Get(ctx, params["id"])
				if errors.Is(err, ErrProductNotFound) {
					return nil, page.ErrNotFound
				}
				return p, err
			},
			Metadata: func(_ context.Context, params router.Params, data any) (page.Metadata, error) {
				p := data.(Product)
				return page.Metadata{
					Title:       p.Name,
					Description: p.Description,
					Canonical:   "/products/" + params["id"],
					OpenGraph:   page.OpenGraph{Title: p.Name, Type: "product"},
				}, nil
			},
			Render: render.Templ(productView, "catalog.js", "product.js"),
		},
		{
			// Old catalog links.
			Pattern: "/shop/*rest",
			Redirect: func(_ context.Context, params router.Params) (string, bool) {
				if params["rest"] == "" {
					return "/products", true
				}
				return "/products/" + params["rest"], true
			},
			Render: render.Templ(homeView),
		},
		{
			Pattern:  "/stock",
			Kind:     page.Dynamic(),
			Metadata: title("Stock levels"),
			Load: func(ctx context.Context, _ router.Params) (any, error) {
				return store.List(ctx)
			},
			Render: render.Templ(stockView),
		},
	}
}

func title(t string) func(context.Context, router.Params, any) (page.Metadata, error) {
	return func(context.Context, router.Params, any) (page.Metadata, error) {
		return page.Metadata{Title: t}, nil
	}
}

func price(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func write(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func homeView(render.Input) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return write(w, `<main><h1>Verdant Garden Supply</h1><a href="/products">Browse products</a></main>`)
	})
}

func aboutView(render.Input) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return write(w, `<main><h1>About</h1><p>Hand tools for small gardens.</p></main>`)
	})
}

func listView(in render.Input) templ.Component {
	products, _ := in.Data.([]Product)
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if err := write(w, `<main><h1>Products</h1><ul>`); err != nil {
			return err
		}
		for _, p := range products {
			if err := write(w, `<li><a href="/products/%s">%s</a> %s</li>`,
				templ.EscapeString(p.ID), templ.EscapeString(p.Name), price(p.PriceCents)); err != nil {
				return err
			}
		}
		return write(w, `</ul></main>`)
	})
}

func productView(in render.Input) templ.Component {
	p, _ := in.Data.(Product)
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		stock := "In stock"
		if p.Stock == 0 {
			stock = "Sold out"
		}
		return write(w, `<main><h1>%s</h1><p>%s</p><p class="price">%s</p><p class="stock">%s</p></main>`,
			templ.EscapeString(p.Name), templ.EscapeString(p.Description), price(p.PriceCents), stock)
	})
}

func stockView(in render.Input) templ.Component {
	products, _ := in.Data.([]Product)
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if err := write(w, `<main><h1>Stock levels</h1><table>`); err != nil {
			return err
		}
		for _, p := range products {
			if err := write(w, `<tr><td>%s</td><td>%d</td></tr>`, templ.EscapeString(p.Name), p.Stock); err != nil {
				return err
			}
		}
		return write(w, `</table></main>`)
	})
}
