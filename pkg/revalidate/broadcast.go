package revalidate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the NATS subject revalidations are announced on.
const DefaultSubject = "verdant.revalidate"

// Conn is the part of *nats.Conn the broadcaster uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Message is published after a successful on-demand revalidation.
type Message struct {
	Path   string `json:"path"`
	Origin string `json:"origin"`
}

// Broadcaster fans revalidations out to every instance sharing a NATS
// subject, so each process cache regenerates the path.
type Broadcaster struct {
	conn    Conn
	subject string
	origin  string
	timeout time.Duration
	logger  *slog.Logger
}

// BroadcastOption configures a Broadcaster.
type BroadcastOption func(*Broadcaster)

// WithSubject overrides DefaultSubject.
func WithSubject(subject string) BroadcastOption {
	return func(b *Broadcaster) {
		b.subject = subject
	}
}

// WithBroadcastLogger sets the logger.
func WithBroadcastLogger(logger *slog.Logger) BroadcastOption {
	return func(b *Broadcaster) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMessageTimeout bounds each peer-triggered revalidation.
func WithMessageTimeout(d time.Duration) BroadcastOption {
	return func(b *Broadcaster) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// NewBroadcaster creates a broadcaster. origin identifies this instance;
// its own messages are ignored on receipt.
func NewBroadcaster(conn Conn, origin string, opts ...BroadcastOption) *Broadcaster {
	b := &Broadcaster{
		conn:    conn,
		subject: DefaultSubject,
		origin:  origin,
		timeout: 30 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish announces path.
func (b *Broadcaster) Publish(_ context.Context, path string) error {
	data, err := json.Marshal(Message{Path: path, Origin: b.origin})
	if err != nil {
		return err
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		return fmt.Errorf("revalidate: publish %s: %w", path, err)
	}
	return nil
}

// Subscribe revalidates target for every path announced by other
// instances. Each message gets its own timeout derived from ctx.
func (b *Broadcaster) Subscribe(ctx context.Context, target Revalidator) (*nats.Subscription, error) {
	return b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		var m Message
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			b.logger.Warn("dropping malformed revalidation message", "error", err)
			return
		}
		if m.Origin == b.origin || m.Path == "" {
			return
		}

		msgCtx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		if _, err := target.Revalidate(msgCtx, m.Path); err != nil {
			b.logger.Error("peer revalidation failed", "path", m.Path, "origin", m.Origin, "error", err)
			return
		}
		b.logger.Debug("peer revalidation", "path", m.Path, "origin", m.Origin)
	})
}
