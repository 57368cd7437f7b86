// Package verdant serves pages and a typed JSON API from one route table.
//
// Pages come in three kinds: dynamic pages render on every request,
// static pages render once, and revalidating pages are served from cache
// and regenerated in the background once their window elapses. The API
// is declared as a tree of endpoints whose params, query and body are
// decoded and validated before the handler runs.
//
//	app, err := verdant.New(verdant.Config{
//	    RevalidateSecret: os.Getenv("VERDANT_REVALIDATE_SECRET"),
//	}, verdant.Routes{
//	    Pages: []page.Definition{
//	        {Pattern: "/", Kind: page.Static(), Render: render.Templ(home)},
//	        {Pattern: "/products/:id", Kind: page.Revalidating(time.Minute), Load: loadProduct, Render: render.Templ(product)},
//	    },
//	    API: api.Group{
//	        "products": api.Group{"item": api.Get(getProduct)},
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":3000", app)
//
// Requests are canonicalized first; a non-canonical path gets a 308 to
// its canonical form. The middleware chain then wraps, in order, the API
// dispatcher, the client navigation endpoint, the on-demand revalidation
// endpoint and finally page rendering.
package verdant
