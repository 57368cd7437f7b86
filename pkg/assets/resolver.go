package assets

import (
	"path"
	"strings"
)

// Resolver turns a chunk name into the URL a page should load.
type Resolver interface {
	Asset(chunk string) string
}

type manifestResolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver resolves chunks through m and joins them onto prefix.
func NewResolver(m *Manifest, prefix string) Resolver {
	return &manifestResolver{manifest: m, prefix: prefix}
}

func (r *manifestResolver) Asset(chunk string) string {
	if external(chunk) {
		return chunk
	}
	return join(r.prefix, r.manifest.Resolve(chunk))
}

type passthrough struct {
	prefix string
}

// Passthrough joins chunk names onto prefix without fingerprinting.
func Passthrough(prefix string) Resolver {
	return passthrough{prefix: prefix}
}

func (p passthrough) Asset(chunk string) string {
	if external(chunk) {
		return chunk
	}
	return join(p.prefix, chunk)
}

// ResolveAll applies r to every chunk. A nil r leaves chunks unchanged.
func ResolveAll(r Resolver, chunks []string) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		if r == nil {
			out[i] = c
			continue
		}
		out[i] = r.Asset(c)
	}
	return out
}

// external reports whether chunk is already an absolute path or URL.
func external(chunk string) bool {
	return strings.HasPrefix(chunk, "/") || strings.Contains(chunk, "://")
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
