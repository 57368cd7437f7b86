// Package api dispatches typed JSON endpoints declared as a tree.
//
// Endpoints are built with generic constructors whose type parameters are
// the params, query, body and output schemas. Use None for a slot the
// endpoint does not declare:
//
//	type ProductParams struct {
//	    ID string `param:"id" validate:"required"`
//	}
//
//	getProduct := api.Get(func(ctx context.Context, in api.Input[ProductParams, api.None, api.None]) (Product, error) {
//	    return store.Get(ctx, in.Params.ID)
//	})
//
// Endpoints are arranged in a tree of Groups. A Group whose children are
// all endpoints keyed by HTTP method names collapses into one path:
//
//	table, err := api.Flatten(api.Group{
//	    "products": api.Group{
//	        "list": listProducts,         // GET /products/list
//	        "get":  getProduct,           // GET /products/:id
//	        "update": api.Group{          // GET, PUT /products/update
//	            "GET": getDraft,
//	            "PUT": saveDraft,
//	        },
//	    },
//	})
//
// A route whose params schema has exactly one `param` field takes that
// field name as its last path segment. Routes with more than one must say
// where each goes with WithPath.
//
// # Errors
//
// Schema failures produce 400 with a list of issues. A handler may return
// a *web.Response (as its value or its error) to send it unchanged, or a
// *web.HTTPError for a specific status. Any other error becomes a generic
// 500 and is logged, never echoed.
package api
