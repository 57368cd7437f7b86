// Package assets maps client chunk names to the fingerprinted URLs pages
// preload.
//
// A build step writes a manifest from chunk names to hashed file names:
//
//	{
//	  "catalog.js": "catalog.3f9a1c2e.js",
//	  "product.js": "product.8b7d0e41.js"
//	}
//
// Pages keep referring to chunks by name; the resolver rewrites them when
// the document and navigation payloads are generated:
//
//	manifest, err := assets.Load("dist/manifest.json")
//	resolver := assets.NewResolver(manifest, "/assets")
//	resolver.Asset("catalog.js") // "/assets/catalog.3f9a1c2e.js"
package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Manifest maps chunk names to fingerprinted file names. It is safe for
// concurrent use.
type Manifest struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{entries: make(map[string]string)}
}

// Load reads a JSON manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON manifest.
func Parse(data []byte) (*Manifest, error) {
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("assets: manifest: %w", err)
	}
	if entries == nil {
		entries = make(map[string]string)
	}
	return &Manifest{entries: entries}, nil
}

// Resolve returns the fingerprinted name for chunk, or chunk unchanged
// when the manifest does not list it.
func (m *Manifest) Resolve(chunk string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if resolved, ok := m.entries[chunk]; ok {
		return resolved
	}
	return chunk
}

// Set adds or replaces an entry.
func (m *Manifest) Set(chunk, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[chunk] = resolved
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}
