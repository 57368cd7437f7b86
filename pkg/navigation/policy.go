package navigation

import (
	"sync"

	"github.com/vango-dev/verdant/pkg/page"
	"github.com/vango-dev/verdant/pkg/router"
)

// CanNavigate reports whether a transition from one path to another may
// skip a document load. Both paths must resolve to client-navigable pages.
func CanNavigate(reg *page.Registry, from, to string) bool {
	return navigable(reg, from) && navigable(reg, to)
}

func navigable(reg *page.Registry, path string) bool {
	route, _, ok := reg.Resolve(path)
	return ok && route.ClientNavigable
}

var (
	globMu    sync.RWMutex
	globCache = map[string]*router.Glob{}
)

// IsActive reports whether current matches glob, for active-link styling.
// An invalid glob matches nothing.
func IsActive(current, glob string) bool {
	globMu.RLock()
	g, ok := globCache[glob]
	globMu.RUnlock()
	if !ok {
		var err error
		g, err = router.CompileGlob(glob)
		if err != nil {
			return false
		}
		globMu.Lock()
		globCache[glob] = g
		globMu.Unlock()
	}
	return g.Match(current)
}
