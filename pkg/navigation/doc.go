// Package navigation serves the data payloads used for in-session page
// transitions.
//
// A client already showing a page fetches GET /__data/<path> with the
// X-Verdant-From header set to its current path. When both pages are
// client-navigable it receives a Payload carrying the target's data, head
// updates and chunks to preload; otherwise it receives {"reload":true}
// and performs a full document load.
//
// Payload data comes through page.Engine, so revalidating pages report
// HIT, STALE or MISS exactly like document requests.
package navigation
