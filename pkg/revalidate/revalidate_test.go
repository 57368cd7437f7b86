package revalidate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"

	"github.com/vango-dev/verdant/pkg/isr"
	"github.com/vango-dev/verdant/pkg/page"
	"github.com/vango-dev/verdant/pkg/render"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeTarget struct {
	mu    sync.Mutex
	paths []string
	err   map[string]error
}

func (f *fakeTarget) Revalidate(_ context.Context, path string) (isr.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err[path]; err != nil {
		return isr.Entry{}, err
	}
	f.paths = append(f.paths, path)
	return isr.Entry{Key: path, State: isr.Fresh}, nil
}

func (f *fakeTarget) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

type fakePublisher struct{ paths []string }

func (p *fakePublisher) Publish(_ context.Context, path string) error {
	p.paths = append(p.paths, path)
	return nil
}

func newTestHandler(target Revalidator, opts ...Option) *Handler {
	opts = append([]Option{
		WithLogger(quiet),
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
	}, opts...)
	return NewHandler(target, "s3cret", opts...)
}

// =============================================================================
// Handler Tests
// =============================================================================

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		url        string
		body       string
		wantStatus int
		wantCalls  int
	}{
		{name: "json body", method: "POST", url: "/", body: `{"path":"/blog/hello","secret":"s3cret"}`, wantStatus: 200, wantCalls: 1},
		{name: "query", method: "POST", url: "/?path=/blog/hello&secret=s3cret", wantStatus: 200, wantCalls: 1},
		{name: "path normalized", method: "POST", url: "/", body: `{"path":"/blog/hello/","secret":"s3cret"}`, wantStatus: 200, wantCalls: 1},
		{name: "missing secret", method: "POST", url: "/", body: `{"path":"/blog/hello"}`, wantStatus: 401},
		{name: "wrong secret", method: "POST", url: "/", body: `{"path":"/blog/hello","secret":"nope"}`, wantStatus: 403},
		{name: "missing path", method: "POST", url: "/", body: `{"secret":"s3cret"}`, wantStatus: 400},
		{name: "relative path", method: "POST", url: "/", body: `{"path":"blog","secret":"s3cret"}`, wantStatus: 400},
		{name: "bad json", method: "POST", url: "/", body: `{`, wantStatus: 400},
		{name: "unknown route", method: "POST", url: "/", body: `{"path":"/nowhere","secret":"s3cret"}`, wantStatus: 404},
		{name: "dynamic route", method: "POST", url: "/", body: `{"path":"/live","secret":"s3cret"}`, wantStatus: 400},
		{name: "failure", method: "POST", url: "/", body: `{"path":"/broken","secret":"s3cret"}`, wantStatus: 500},
		{name: "get", method: "GET", url: "/?path=/blog/hello&secret=s3cret", wantStatus: 405},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &fakeTarget{err: map[string]error{
				"/nowhere": fmt.Errorf("%w: /nowhere", page.ErrUnknownRoute),
				"/live":    fmt.Errorf("%w: /live", page.ErrNotCacheable),
				"/broken":  errors.New("database unavailable"),
			}}
			h := newTestHandler(target)

			req := httptest.NewRequest(tt.method, tt.url, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body)
			}
			if got := len(target.calls()); got != tt.wantCalls {
				t.Errorf("revalidations = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestHandlerResponseBodies(t *testing.T) {
	target := &fakeTarget{err: map[string]error{"/broken": errors.New("database unavailable")}}
	h := newTestHandler(target)

	serve := func(body string) Response {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/", strings.NewReader(body)))
		var resp Response
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp
	}

	ok := serve(`{"path":"/blog/hello","secret":"s3cret"}`)
	if !ok.Revalidated || ok.Path != "/blog/hello" || ok.Now != 1700000000000 {
		t.Errorf("success = %+v", ok)
	}

	failed := serve(`{"path":"/broken","secret":"s3cret"}`)
	if failed.Revalidated || failed.Path != "/broken" || failed.Error != "revalidation failed" {
		t.Errorf("failure = %+v", failed)
	}
}

func TestHandlerRateLimit(t *testing.T) {
	target := &fakeTarget{}
	h := newTestHandler(target, WithRateLimit(rate.Limit(0.001), 2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/", strings.NewReader(`{"path":"/a","secret":"s3cret"}`)))
		codes = append(codes, rec.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
	if len(target.calls()) != 2 {
		t.Errorf("revalidations = %d, want 2", len(target.calls()))
	}
}

func TestHandlerRateLimitPerClient(t *testing.T) {
	target := &fakeTarget{}
	h := newTestHandler(target, WithRateLimit(rate.Limit(0.001), 1))

	post := func(addr, secret string) int {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"path":"/a","secret":"`+secret+`"}`))
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	// A flood of bad guesses from one address only drains its own bucket.
	for i := 0; i < 5; i++ {
		post("203.0.113.9:1234", "guess")
	}
	if code := post("203.0.113.9:4321", "s3cret"); code != http.StatusTooManyRequests {
		t.Errorf("flooding client status = %d, want 429", code)
	}
	if code := post("198.51.100.7:5678", "s3cret"); code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", code)
	}
	if got := target.calls(); len(got) != 1 {
		t.Errorf("revalidations = %v, want one", got)
	}
}

func TestHandlerClientKey(t *testing.T) {
	target := &fakeTarget{}
	h := newTestHandler(target,
		WithRateLimit(rate.Limit(0.001), 1),
		WithClientKey(func(r *http.Request) string { return r.Header.Get("X-Tenant") }),
	)

	codes := make([]int, 0, 3)
	for _, tenant := range []string{"a", "a", "b"} {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"path":"/a","secret":"s3cret"}`))
		req.Header.Set("X-Tenant", tenant)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != 200 || codes[1] != http.StatusTooManyRequests || codes[2] != 200 {
		t.Errorf("codes = %v, want [200 429 200]", codes)
	}
}

func TestClientLimiterForgetsIdleClients(t *testing.T) {
	l := newClientLimiter(rate.Limit(1), 1)
	start := time.UnixMilli(1700000000000)

	l.allow("a", start)
	l.allow("b", start.Add(limiterTTL/2))
	if got := l.clients(); got != 2 {
		t.Fatalf("clients = %d, want 2", got)
	}

	// The next call after the TTL sweeps "a"; "b" is still recent.
	l.allow("c", start.Add(limiterTTL+time.Second))
	if got := l.clients(); got != 2 {
		t.Errorf("clients after sweep = %d, want 2", got)
	}
}

func TestRemoteIP(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("POST", "/", nil)
		r.RemoteAddr = tt.addr
		if got := RemoteIP(r); got != tt.want {
			t.Errorf("RemoteIP(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestHandlerEmptySecretRejectsAll(t *testing.T) {
	target := &fakeTarget{}
	h := NewHandler(target, "", WithLogger(quiet))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/", strings.NewReader(`{"path":"/a","secret":"anything"}`)))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestHandlerPublishes(t *testing.T) {
	pub := &fakePublisher{}
	h := newTestHandler(&fakeTarget{}, WithPublisher(pub))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/", strings.NewReader(`{"path":"/a","secret":"s3cret"}`)))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/", strings.NewReader(`{"path":"/a","secret":"bad"}`)))

	if len(pub.paths) != 1 || pub.paths[0] != "/a" {
		t.Errorf("published = %v, want [/a]", pub.paths)
	}
}

func TestHandlerAgainstEngine(t *testing.T) {
	reg := page.NewRegistry()
	var renders int
	reg.MustAdd(page.Definition{
		Pattern: "/about",
		Kind:    page.Static(),
		Render: render.RendererFunc(func(context.Context, render.Input) (render.Output, error) {
			renders++
			return render.Output{HTML: []byte(fmt.Sprintf("v%d", renders))}, nil
		}),
	})
	engine := page.NewEngine(reg, isr.New(isr.WithLogger(quiet)), page.WithLogger(quiet))
	ctx := context.Background()
	if _, err := engine.Serve(ctx, "/about"); err != nil {
		t.Fatal(err)
	}

	h := newTestHandler(engine)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/", strings.NewReader(`{"path":"/about","secret":"s3cret"}`)))
	if rec.Code != 200 {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	out, _ := engine.Serve(ctx, "/about")
	if out.Status != isr.StatusHit || !strings.Contains(string(out.Result().Body), "v2") {
		t.Errorf("after revalidation: status %s body %s", out.Status, out.Result().Body)
	}
}

// =============================================================================
// Broadcaster Tests
// =============================================================================

// loopConn delivers published messages to subscribers synchronously.
type loopConn struct {
	mu   sync.Mutex
	subs map[string][]nats.MsgHandler
}

func (c *loopConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	handlers := append([]nats.MsgHandler(nil), c.subs[subject]...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(&nats.Msg{Subject: subject, Data: data})
	}
	return nil
}

func (c *loopConn) Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs == nil {
		c.subs = map[string][]nats.MsgHandler{}
	}
	c.subs[subject] = append(c.subs[subject], cb)
	return nil, nil
}

func TestBroadcaster(t *testing.T) {
	conn := &loopConn{}
	local, peer := &fakeTarget{}, &fakeTarget{}

	a := NewBroadcaster(conn, "instance-a", WithBroadcastLogger(quiet))
	b := NewBroadcaster(conn, "instance-b", WithBroadcastLogger(quiet))
	if _, err := a.Subscribe(context.Background(), local); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe(context.Background(), peer); err != nil {
		t.Fatal(err)
	}

	if err := a.Publish(context.Background(), "/blog/hello"); err != nil {
		t.Fatal(err)
	}

	if got := local.calls(); len(got) != 0 {
		t.Errorf("origin revalidated its own message: %v", got)
	}
	if got := peer.calls(); len(got) != 1 || got[0] != "/blog/hello" {
		t.Errorf("peer revalidations = %v", got)
	}
}

func TestBroadcasterIgnoresMalformed(t *testing.T) {
	conn := &loopConn{}
	target := &fakeTarget{}
	b := NewBroadcaster(conn, "a", WithSubject("custom"), WithBroadcastLogger(quiet))
	_, _ = b.Subscribe(context.Background(), target)

	_ = conn.Publish("custom", []byte("not json"))
	_ = conn.Publish("custom", []byte(`{"origin":"b"}`))
	_ = conn.Publish(DefaultSubject, []byte(`{"path":"/x","origin":"b"}`))

	if got := target.calls(); len(got) != 0 {
		t.Errorf("revalidations = %v, want none", got)
	}
}
