// Package isr caches generated page output and regenerates it in the
// background once it goes stale (incremental static regeneration).
//
// Each key moves through four states:
//
//	MISS ──generate──▶ FRESH ──window elapses──▶ STALE ──request──▶ REVALIDATING
//	                     ▲                                              │
//	                     └──────────────── success ─────────────────────┘
//
// A failed regeneration leaves the previous output in place, so visitors
// never see an error caused by a background refresh. A generator that
// reports ErrNotFound removes the key instead.
package isr
