package navigation

import (
	"context"
	"errors"
	"fmt"

	"github.com/vango-dev/verdant/pkg/page"
	"github.com/vango-dev/verdant/pkg/router"
)

// ErrNotNavigable means the target page requires a full document load.
var ErrNotNavigable = errors.New("target page is not client-navigable")

// Builder assembles payloads from the page engine.
type Builder struct {
	engine  *page.Engine
	buildID string
}

// NewBuilder creates a builder. buildID is stamped into every payload.
func NewBuilder(engine *page.Engine, buildID string) *Builder {
	return &Builder{engine: engine, buildID: buildID}
}

// BuildID returns the build id stamped into payloads.
func (b *Builder) BuildID() string { return b.buildID }

// Build produces the payload for path. Data is drawn through the engine,
// so cached pages answer from the cache exactly as a document request
// would. Targets that are not client-navigable are refused with
// ErrNotNavigable before anything is loaded.
func (b *Builder) Build(ctx context.Context, path string) (*Payload, error) {
	path, err := router.ValidateNavPath(path)
	if err != nil {
		return nil, err
	}

	if route, _, ok := b.engine.Registry().Resolve(path); ok && !route.ClientNavigable {
		return nil, fmt.Errorf("%w: %s", ErrNotNavigable, path)
	}

	out, err := b.engine.Serve(ctx, path)
	if err != nil {
		return nil, err
	}

	p := &Payload{
		Route:   RouteInfo{Path: path},
		Preload: []string{},
		BuildID: b.buildID,
		Cache:   out.Status,
	}
	if out.Route != nil {
		p.Route.Pattern = out.Route.Parsed.String()
		p.Route.Kind = out.Route.Kind.String()
		p.Route.Hydrate = out.Route.Interactive
		p.Route.Params = out.Params
	}

	switch {
	case out.NotFound:
		p.NotFound = true
	case out.Redirect != "":
		p.Redirect = out.Redirect
	default:
		res := out.Result()
		p.Data = res.Data
		if len(res.Chunks) > 0 {
			p.Preload = res.Chunks
		}
		if meta, ok := res.Head.(page.Metadata); ok {
			p.Head = headFrom(meta)
		}
	}

	p.Hash, err = Hash(p.BuildID, p.Route.Path, p.Route.Pattern, p.Data)
	if err != nil {
		return nil, err
	}
	return p, nil
}
