package isr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds a single regeneration.
const DefaultTimeout = 10 * time.Second

// Cache holds generated output per key and decides, per request, whether
// to serve it, serve it while regenerating, or generate it first.
//
// At most one regeneration runs per key at any time. Cold requests for the
// same key share one generation; a stale key starts exactly one background
// regeneration no matter how many requests observe it.
//
// The cache lives for the process and never evicts.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	observers Observers

	group singleflight.Group
	wg    sync.WaitGroup

	// seq orders Revalidate calls against the start of generations.
	seq uint64

	clock   Clock
	logger  *slog.Logger
	timeout time.Duration
	tracer  trace.Tracer
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock sets the time source.
func WithClock(clock Clock) Option {
	return func(c *Cache) {
		c.clock = clock
	}
}

// WithLogger sets the logger for background failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout sets the regeneration timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(c *Cache) {
		c.observers = append(c.observers, o)
	}
}

// WithTracer sets the tracer used for regeneration spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Cache) {
		c.tracer = t
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		clock:   systemClock{},
		logger:  slog.Default(),
		timeout: DefaultTimeout,
		tracer:  otel.Tracer("verdant/isr"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddObserver registers an observer after construction.
func (c *Cache) AddObserver(o Observer) {
	c.mu.Lock()
	c.observers = append(c.observers, o)
	c.mu.Unlock()
}

func (c *Cache) observer() Observer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.observers
}

// Get returns output for key, generating it with gen when needed.
//
//   - No entry: gen runs now and the caller waits (MISS). A failure is
//     returned and nothing is cached.
//   - Fresh entry: served unchanged (HIT).
//   - Stale entry: served immediately (STALE); one background
//     regeneration starts unless one is already running.
func (c *Cache) Get(ctx context.Context, key string, revalidate time.Duration, gen Generator) (Entry, Status, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		now := c.clock.Now()
		if e.fresh(now) && !e.regenerating {
			snap := e.snapshot(key, Fresh)
			c.mu.Unlock()
			c.observer().Served(key, StatusHit)
			return snap, StatusHit, nil
		}

		state := Revalidating
		if !e.regenerating {
			state = Stale
			e.regenerating = true
			c.wg.Add(1)
			go c.regenerateInBackground(key, revalidate, gen)
		}
		snap := e.snapshot(key, state)
		c.mu.Unlock()
		c.observer().Served(key, StatusStale)
		return snap, StatusStale, nil
	}
	c.mu.Unlock()

	snap, _, err := c.run(ctx, key, revalidate, gen)
	if err != nil {
		return Entry{Key: key, State: Miss}, StatusMiss, err
	}
	c.observer().Served(key, StatusMiss)
	return snap, StatusMiss, nil
}

// Revalidate regenerates key now, regardless of its window, and waits for
// the result. A regeneration already running for key is joined; when that
// regeneration started before the call, one more runs after it so the
// returned output was generated after Revalidate was called. On failure
// the previous output stays in place.
func (c *Cache) Revalidate(ctx context.Context, key string, revalidate time.Duration, gen Generator) (Entry, error) {
	c.mu.Lock()
	c.seq++
	called := c.seq
	c.mu.Unlock()

	for {
		c.mu.Lock()
		if e, ok := c.entries[key]; ok {
			e.regenerating = true
		}
		c.mu.Unlock()

		snap, started, err := c.run(ctx, key, revalidate, gen)
		if started > called {
			return snap, err
		}
	}
}

func (c *Cache) regenerateInBackground(key string, revalidate time.Duration, gen Generator) {
	defer c.wg.Done()
	if _, _, err := c.run(context.Background(), key, revalidate, gen); err != nil {
		c.logger.Warn("background regeneration failed; serving previous output",
			"key", key,
			"error", err)
	}
}

// flight is the shared outcome of one coalesced generation.
type flight struct {
	entry   Entry
	started uint64
}

// run performs one coalesced regeneration of key and records its outcome.
// It also reports the sequence number taken when that generation started,
// which may predate the call when run joined a generation in progress.
func (c *Cache) run(ctx context.Context, key string, revalidate time.Duration, gen Generator) (Entry, uint64, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		c.seq++
		f := flight{started: c.seq}
		c.mu.Unlock()

		start := time.Now()
		res, err := c.generate(ctx, key, gen)
		c.observer().Regenerated(key, time.Since(start), err)

		c.mu.Lock()
		defer c.mu.Unlock()

		if err != nil {
			if e, ok := c.entries[key]; ok {
				if errors.Is(err, ErrNotFound) {
					delete(c.entries, key)
				} else {
					e.regenerating = false
				}
			}
			return f, err
		}

		e := &entry{result: res, generatedAt: c.clock.Now(), revalidate: revalidate}
		c.entries[key] = e
		f.entry = e.snapshot(key, Fresh)
		return f, nil
	})
	f, _ := v.(flight)
	if err != nil {
		return Entry{}, f.started, err
	}
	return f.entry, f.started, nil
}

// generate runs gen under the cache timeout. The caller's cancellation is
// detached: joined callers must not lose a shared generation because the
// first caller went away.
func (c *Cache) generate(ctx context.Context, key string, gen Generator) (*Result, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "isr.generate",
		trace.WithAttributes(attribute.String("isr.key", key)))
	defer span.End()

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("isr: generator panicked: %v", p)}
			}
		}()
		res, err := gen(ctx)
		done <- outcome{res: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}

	if out.err == nil && out.res == nil {
		out.err = ErrNilResult
	}
	if errors.Is(out.err, context.DeadlineExceeded) {
		out.err = fmt.Errorf("%w after %s: %w", ErrTimeout, c.timeout, out.err)
	}
	if out.err != nil {
		span.RecordError(out.err)
		span.SetStatus(codes.Error, out.err.Error())
		return nil, out.err
	}
	return out.res, nil
}

// Peek returns the current snapshot for key without generating anything.
func (c *Cache) Peek(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry{Key: key, State: Miss}, false
	}
	return e.snapshot(key, e.state(c.clock.Now())), true
}

// Keys returns the cached keys in sorted order.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Delete removes key. A regeneration already running for it will store
// its result when it finishes.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Wait blocks until every background regeneration started so far has
// finished.
func (c *Cache) Wait() {
	c.wg.Wait()
}
