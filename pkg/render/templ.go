package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/a-h/templ"
)

// Templ adapts a templ component constructor to Renderer. The chunks are
// reported as the page's client chunks on every render.
//
//	render.Templ(func(in render.Input) templ.Component {
//	    return views.Product(in.Data.(catalog.Product))
//	}, "/assets/product.js")
func Templ(component func(Input) templ.Component, chunks ...string) Renderer {
	return RendererFunc(func(ctx context.Context, in Input) (Output, error) {
		c := component(in)
		if c == nil {
			return Output{}, fmt.Errorf("render: nil component for %s", in.Path)
		}
		var buf bytes.Buffer
		if err := c.Render(ctx, &buf); err != nil {
			return Output{}, err
		}
		return Output{HTML: buf.Bytes(), Chunks: chunks}, nil
	})
}
