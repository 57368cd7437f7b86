package isr

import (
	"context"
	"time"
)

// State is the freshness state of a cache key.
type State uint8

const (
	// Miss means no output exists for the key.
	Miss State = iota

	// Fresh output is served as is.
	Fresh

	// Stale output is served while a regeneration is started.
	Stale

	// Revalidating output is stale with a regeneration in flight.
	Revalidating
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Miss:
		return "MISS"
	case Fresh:
		return "FRESH"
	case Stale:
		return "STALE"
	case Revalidating:
		return "REVALIDATING"
	default:
		return "UNKNOWN"
	}
}

// Status is reported to clients in the cache status header.
type Status string

const (
	StatusHit   Status = "HIT"
	StatusStale Status = "STALE"
	StatusMiss  Status = "MISS"
)

// StatusHeader carries the Status on page and navigation responses.
const StatusHeader = "X-Verdant-Cache"

// Forever is a revalidation window that never elapses. Output cached with
// it stays fresh until revalidated on demand.
const Forever time.Duration = 0

// Result is one generated output.
type Result struct {
	// Body is the rendered document.
	Body []byte

	// Data is the loader output, reused by client navigation payloads.
	Data any

	// Chunks are the client chunks the page needs.
	Chunks []string

	// Head is the resolved page metadata.
	Head any
}

// Generator produces output for a key. It should honor ctx; the cache
// abandons it when the regeneration timeout elapses either way.
type Generator func(ctx context.Context) (*Result, error)

// Entry is a snapshot of a cached key.
type Entry struct {
	Key         string
	Result      *Result
	GeneratedAt time.Time
	Revalidate  time.Duration
	State       State
}

// StaleAt returns when the entry stops being fresh, or the zero time for
// entries that never go stale.
func (e Entry) StaleAt() time.Time {
	if e.Revalidate <= Forever {
		return time.Time{}
	}
	return e.GeneratedAt.Add(e.Revalidate)
}

// entry is the mutable record behind a key.
type entry struct {
	result       *Result
	generatedAt  time.Time
	revalidate   time.Duration
	regenerating bool
}

func (e *entry) fresh(now time.Time) bool {
	return e.revalidate <= Forever || now.Sub(e.generatedAt) < e.revalidate
}

func (e *entry) state(now time.Time) State {
	switch {
	case e.regenerating:
		return Revalidating
	case e.fresh(now):
		return Fresh
	default:
		return Stale
	}
}

func (e *entry) snapshot(key string, state State) Entry {
	return Entry{
		Key:         key,
		Result:      e.result,
		GeneratedAt: e.generatedAt,
		Revalidate:  e.revalidate,
		State:       state,
	}
}

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
