package render

import (
	"context"

	"github.com/vango-dev/verdant/pkg/router"
)

// Input is what a page renderer receives.
type Input struct {
	// Pattern is the route pattern that matched, e.g. "/products/:id".
	Pattern string

	// Path is the concrete request path.
	Path string

	// Params are the bound route parameters.
	Params router.Params

	// Data is the page loader's output.
	Data any
}

// Output is rendered page content plus the client chunks it needs.
type Output struct {
	HTML   []byte
	Chunks []string
}

// Renderer turns loaded data into page body markup. The framework wraps
// the output in the document shell; renderers produce only the body.
type Renderer interface {
	Render(ctx context.Context, in Input) (Output, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, in Input) (Output, error)

// Render implements Renderer.
func (f RendererFunc) Render(ctx context.Context, in Input) (Output, error) {
	return f(ctx, in)
}
