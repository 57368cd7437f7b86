package page

import (
	"fmt"
	"time"

	"github.com/vango-dev/verdant/pkg/isr"
)

type mode uint8

const (
	modeDynamic mode = iota
	modeStatic
	modeRevalidating
)

// Kind is how a page's output is produced and kept. The zero Kind is
// Dynamic. Build one with Static, Revalidating or Dynamic.
type Kind struct {
	mode   mode
	window time.Duration
}

// Static pages are generated once and served from cache until revalidated
// on demand.
func Static() Kind {
	return Kind{mode: modeStatic}
}

// Revalidating pages are cached and regenerated in the background once
// older than window.
func Revalidating(window time.Duration) Kind {
	return Kind{mode: modeRevalidating, window: window}
}

// Dynamic pages are rendered on every request and never cached.
func Dynamic() Kind {
	return Kind{mode: modeDynamic}
}

// Cached reports whether output goes through the cache.
func (k Kind) Cached() bool {
	return k.mode != modeDynamic
}

// IsDynamic reports whether the page renders per request.
func (k Kind) IsDynamic() bool {
	return k.mode == modeDynamic
}

// Window returns the revalidation window; isr.Forever for static pages.
func (k Kind) Window() time.Duration {
	if k.mode == modeRevalidating {
		return k.window
	}
	return isr.Forever
}

// String returns "static", "dynamic" or "revalidate=<window>".
func (k Kind) String() string {
	switch k.mode {
	case modeStatic:
		return "static"
	case modeRevalidating:
		return fmt.Sprintf("revalidate=%s", k.window)
	default:
		return "dynamic"
	}
}

func (k Kind) validate() error {
	if k.mode == modeRevalidating && k.window <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidWindow, k.window)
	}
	return nil
}
