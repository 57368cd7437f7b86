package verdant

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/vango-dev/verdant/pkg/assets"
	"github.com/vango-dev/verdant/pkg/isr"
	"github.com/vango-dev/verdant/pkg/middleware"
	"github.com/vango-dev/verdant/pkg/navigation"
	"github.com/vango-dev/verdant/pkg/revalidate"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config holds the runtime settings of an App. Zero values take the
// defaults from DefaultConfig.
type Config struct {
	// APIBase is where the API tree is mounted. Default: "/api".
	APIBase string

	// DataPrefix is where client navigation payloads are served.
	// Default: "/__data".
	DataPrefix string

	// RevalidatePath is the on-demand revalidation endpoint.
	// Default: "/__verdant/revalidate".
	RevalidatePath string

	// RevalidateSecret authenticates on-demand revalidation. When empty
	// every revalidation request is refused.
	RevalidateSecret string

	// RevalidateRate and RevalidateBurst limit revalidation requests.
	RevalidateRate  rate.Limit
	RevalidateBurst int

	// Publisher is told about every successful on-demand revalidation,
	// typically a revalidate.Broadcaster fanning out to peers.
	Publisher revalidate.Publisher

	// Production skips API output validation.
	Production bool

	// BuildID stamps navigation payloads. Default: a random UUID.
	BuildID string

	// Lang is the document lang attribute. Default: "en".
	Lang string

	// ChunkPrefix is prepended to client chunk names in preload links.
	ChunkPrefix string

	// Assets resolves chunk names, e.g. through a fingerprint manifest.
	// When set it takes precedence over ChunkPrefix.
	Assets assets.Resolver

	// LoaderTimeout bounds one page loader call. Zero keeps
	// page.DefaultLoadTimeout.
	LoaderTimeout time.Duration

	// RegenerationTimeout bounds one cache regeneration.
	// Default: isr.DefaultTimeout.
	RegenerationTimeout time.Duration

	// MaxBodyBytes caps API request bodies. Default: 1 MiB.
	MaxBodyBytes int64

	// Middleware rules wrap every request in declaration order.
	Middleware []middleware.Rule

	// Observers receive cache transitions.
	Observers []isr.Observer

	// Tracer records regeneration spans. Nil uses the global provider.
	Tracer trace.Tracer

	// Logger is the structured logger. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultConfig returns the defaults applied to zero Config fields.
func DefaultConfig() Config {
	return Config{
		APIBase:             "/api",
		DataPrefix:          navigation.DefaultPrefix,
		RevalidatePath:      revalidate.DefaultPath,
		RevalidateRate:      10,
		RevalidateBurst:     20,
		Lang:                "en",
		RegenerationTimeout: isr.DefaultTimeout,
		MaxBodyBytes:        1 << 20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.APIBase == "" {
		c.APIBase = d.APIBase
	}
	if c.DataPrefix == "" {
		c.DataPrefix = d.DataPrefix
	}
	if c.RevalidatePath == "" {
		c.RevalidatePath = d.RevalidatePath
	}
	if c.RevalidateRate == 0 {
		c.RevalidateRate = d.RevalidateRate
	}
	if c.RevalidateBurst == 0 {
		c.RevalidateBurst = d.RevalidateBurst
	}
	if c.Lang == "" {
		c.Lang = d.Lang
	}
	if c.RegenerationTimeout == 0 {
		c.RegenerationTimeout = d.RegenerationTimeout
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.BuildID == "" {
		c.BuildID = uuid.NewString()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
