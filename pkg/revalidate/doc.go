// Package revalidate implements on-demand revalidation: an authenticated
// endpoint that regenerates one cached page immediately, and a NATS
// broadcaster that repeats the regeneration on every other instance.
//
//	POST /__verdant/revalidate
//	{"path": "/products/42", "secret": "..."}
//
// A missing secret answers 401 and a wrong one 403; neither touches the
// cache.
package revalidate
