// Package middleware composes request handlers around page and API
// dispatch.
//
// A Rule pairs a Handler with Include and Exclude path globs. The chain
// decides per request which rules apply and nests them in declaration
// order, first rule outermost:
//
//	chain := middleware.MustCompile(
//	    middleware.Rule{Name: "recover", Handler: middleware.Recover(logger)},
//	    middleware.Rule{
//	        Name:    "auth",
//	        Include: []string{"/api/**", "/admin/**"},
//	        Handler: middleware.RequireHeader("Authorization", "Bearer t0ken"),
//	    },
//	)
//	next := chain.Then(dispatch)
//
// A Handler receives the request and a continuation. Returning without
// calling next short-circuits the rest of the chain.
//
// # Observability
//
// Prometheus records request counts and durations; expose them with
// promhttp.Handler(). OpenTelemetry opens a server span per request and
// passes its context down through the request.
package middleware
