// Package page defines page routes and serves them.
//
// Every page has a Kind:
//
//	page.Dynamic()                   // rendered on every request
//	page.Static()                    // rendered once, cached until revalidated on demand
//	page.Revalidating(time.Minute)   // cached, regenerated in the background when stale
//
// A Definition's Redirect runs before any cached output is looked at, so
// redirects are always decided per request. A loader may instead return
// ErrNotFound or RedirectTo; neither outcome is cached.
package page
