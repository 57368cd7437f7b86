package demo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vango-dev/verdant/pkg/api"
	"github.com/vango-dev/verdant/pkg/revalidate"
	"github.com/vango-dev/verdant/pkg/web"
)

// ProductParams binds the product id path parameter.
type ProductParams struct {
	ID string `param:"id" validate:"required"`
}

// ListQuery filters the product list.
type ListQuery struct {
	InStock bool `query:"inStock"`
}

// ProductList is the list endpoint output.
type ProductList struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

// Catalog serves the product API and keeps catalog pages fresh after
// writes.
type Catalog struct {
	store  *Store
	pages  revalidate.Revalidator
	logger *slog.Logger
}

// NewCatalog creates the API handlers. pages may be nil.
func NewCatalog(store *Store, pages revalidate.Revalidator, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{store: store, pages: pages, logger: logger}
}

// Routes returns the API tree:
//
//	GET /products/list
//	GET /products/:id
//	PUT /products/:id
func (c *Catalog) Routes() api.Group {
	return api.Group{
		"products": api.Group{
			"list": api.Get(c.list, api.WithSummary("List products")),
			"item": api.Methods{
				"GET": api.Get(c.get, api.WithSummary("Get one product")),
				"PUT": api.Put(c.update, api.WithSummary("Update a product")),
			},
		},
	}
}

func (c *Catalog) list(ctx context.Context, in api.Input[api.None, ListQuery, api.None]) (ProductList, error) {
	products, err := c.store.List(ctx)
	if err != nil {
		return ProductList{}, err
	}
	if in.Query.InStock {
		kept := products[:0]
		for _, p := range products {
			if p.Stock > 0 {
				kept = append(kept, p)
			}
		}
		products = kept
	}
	return ProductList{Products: products, Total: len(products)}, nil
}

func (c *Catalog) get(ctx context.Context, in api.Input[ProductParams, api.None, api.None]) (Product, error) {
	p, err := c.store.Get(ctx, in.Params.ID)
	if errors.Is(err, ErrProductNotFound) {
		return Product{}, web.NotFound("product not found")
	}
	return p, err
}

func (c *Catalog) update(ctx context.Context, in api.Input[ProductParams, api.None, ProductUpdate]) (Product, error) {
	p, err := c.store.Update(ctx, in.Params.ID, in.Body)
	if errors.Is(err, ErrProductNotFound) {
		return Product{}, web.NotFound("product not found")
	}
	if err != nil {
		return Product{}, err
	}
	c.refresh(ctx, "/products/"+p.ID, "/products")
	return p, nil
}

// refresh regenerates catalog pages. Failures are logged; the write has
// already happened.
func (c *Catalog) refresh(ctx context.Context, paths ...string) {
	if c.pages == nil {
		return
	}
	for _, path := range paths {
		if _, err := c.pages.Revalidate(ctx, path); err != nil {
			c.logger.Warn("page refresh failed", "path", path, "error", err)
		}
	}
}
