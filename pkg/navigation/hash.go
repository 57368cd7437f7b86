package navigation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

var (
	// ErrHashMismatch means a payload's hash does not cover its contents.
	ErrHashMismatch = errors.New("navigation payload hash mismatch")

	// ErrPathMismatch means a payload answers a different path than the
	// one requested.
	ErrPathMismatch = errors.New("navigation payload is for a different path")
)

// Hash computes the integrity hash of a payload: xxhash64 over the build
// id, path, pattern and canonical JSON of the data, in hex. It detects
// mismatched payloads; it is not a security boundary.
func Hash(buildID, path, pattern string, data any) (string, error) {
	canonical, err := canonicalJSON(data)
	if err != nil {
		return "", fmt.Errorf("navigation: hash data: %w", err)
	}
	d := xxhash.New()
	for _, part := range []string{buildID, path, pattern} {
		_, _ = d.WriteString(part)
		_, _ = d.Write([]byte{0})
	}
	_, _ = d.Write(canonical)
	return fmt.Sprintf("%016x", d.Sum64()), nil
}

// Verify checks that p answers expectedPath and that its hash matches.
func Verify(p *Payload, expectedPath string) error {
	if p.Route.Path != expectedPath {
		return fmt.Errorf("%w: got %s, want %s", ErrPathMismatch, p.Route.Path, expectedPath)
	}
	want, err := Hash(p.BuildID, p.Route.Path, p.Route.Pattern, p.Data)
	if err != nil {
		return err
	}
	if p.Hash != want {
		return ErrHashMismatch
	}
	return nil
}

// canonicalJSON re-encodes v through a generic value so struct field
// order and map order hash the same way once a payload is decoded.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
