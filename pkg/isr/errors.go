package isr

import "errors"

var (
	// ErrNotFound from a generator means the key no longer exists. The
	// cached entry, if any, is removed.
	ErrNotFound = errors.New("not found")

	// ErrTimeout means a regeneration exceeded the cache timeout. Existing
	// output stays in place.
	ErrTimeout = errors.New("isr: regeneration timed out")

	// ErrNilResult means a generator returned neither output nor error.
	ErrNilResult = errors.New("isr: generator returned nil result")
)
