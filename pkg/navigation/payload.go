package navigation

import (
	"github.com/vango-dev/verdant/pkg/isr"
	"github.com/vango-dev/verdant/pkg/page"
	"github.com/vango-dev/verdant/pkg/router"
)

// Payload is the JSON document served for an in-session navigation.
type Payload struct {
	// Data is the target page's loader output.
	Data any `json:"data,omitempty"`

	Route   RouteInfo `json:"route"`
	Preload []string  `json:"preload"`
	Head    Head      `json:"head"`

	// Redirect and NotFound short-circuit rendering on the receiving side.
	Redirect string `json:"redirect,omitempty"`
	NotFound bool   `json:"notFound,omitempty"`

	BuildID string `json:"buildId"`
	Hash    string `json:"hash"`

	// Cache is the cache status the data was served with.
	Cache isr.Status `json:"-"`
}

// RouteInfo describes the target route.
type RouteInfo struct {
	Path    string        `json:"path"`
	Pattern string        `json:"pattern,omitempty"`
	Kind    string        `json:"kind,omitempty"`
	Hydrate bool          `json:"hydrate"`
	Params  router.Params `json:"params,omitempty"`
}

// Head is merged into the document head by the receiving side.
type Head struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Canonical   string         `json:"canonical,omitempty"`
	OpenGraph   page.OpenGraph `json:"openGraph"`
}

func headFrom(m page.Metadata) Head {
	return Head{
		Title:       m.Title,
		Description: m.Description,
		Canonical:   m.Canonical,
		OpenGraph:   m.OpenGraph,
	}
}
