// Package router matches URL paths against route patterns.
//
// A pattern is a "/"-separated template whose segments are literals,
// named parameters (":id") or a trailing catch-all ("*path"):
//
//	/                   → "/"
//	/about              → "/about"
//	/products/:id       → "/products/42"          {id: "42"}
//	/catch-all/*path    → "/catch-all/a/b/c"      {path: "a/b/c"}
//	                    → "/catch-all/"           {path: ""}
//
// When several patterns could match the same path, a literal segment wins
// over a parameter at the same position and a parameter wins over a
// catch-all.
//
// # Usage
//
//	t := router.NewTree[*Route]()
//	t.Insert(router.MustParsePattern("/products/:id"), route)
//
//	route, params, pattern, ok := t.Match("/products/42")
//	// params["id"] == "42"
//
// The package also provides the glob primitive used for middleware gating
// and active-link checks, and request path canonicalization.
package router
