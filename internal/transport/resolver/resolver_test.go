package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// hostRewriter sends every request to target while keeping the original
// URL on the response, so redirects look as if they hit the real hosts.
type hostRewriter struct {
	target *url.URL
	fail   map[string]bool // paths that fail at the network level
	calls  atomic.Int32
}

func (h *hostRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	h.calls.Add(1)
	if h.fail[req.URL.Path] {
		return nil, errors.New("connection reset by peer")
	}
	out := req.Clone(req.Context())
	out.URL.Scheme = h.target.Scheme
	out.URL.Host = h.target.Host
	resp, err := http.DefaultTransport.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

func newTestResolver(t *testing.T, handler http.Handler, cfg Config, fail ...string) (*Resolver, *hostRewriter) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	target, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	rw := &hostRewriter{target: target, fail: make(map[string]bool)}
	for _, p := range fail {
		rw.fail[p] = true
	}
	r := New(cfg, zap.NewNop()).WithHTTPClient(&http.Client{Transport: rw})
	return r, rw
}

func redirects(routes map[string]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if dst, ok := routes[req.URL.Path]; ok {
			http.Redirect(w, req, dst, http.StatusMovedPermanently)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestResolve_ReplacesAllOccurrences(t *testing.T) {
	r, _ := newTestResolver(t, redirects(map[string]string{
		"/abc": "https://go.dev/blog",
		"/xyz": "https://pkg.go.dev/net/http",
	}), Config{})

	in := "read https://t.co/abc and https://t.co/xyz, again https://t.co/abc"
	got := r.Resolve(context.Background(), in)

	want := "read https://go.dev/blog and https://pkg.go.dev/net/http, again https://go.dev/blog"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestResolve_FailSoftPerLink(t *testing.T) {
	r, _ := newTestResolver(t, redirects(map[string]string{
		"/good": "https://example.com/landing",
	}), Config{}, "/bad")

	got := r.Resolve(context.Background(), "a https://t.co/bad b https://t.co/good")
	if got != "a https://t.co/bad b https://example.com/landing" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_NoPrefixCorruption(t *testing.T) {
	r, _ := newTestResolver(t, redirects(map[string]string{
		"/ab":   "https://short.example",
		"/abcd": "https://long.example",
	}), Config{})

	got := r.Resolve(context.Background(), "https://t.co/ab https://t.co/abcd")
	if got != "https://short.example https://long.example" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_Timeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-req.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	})
	r, _ := newTestResolver(t, slow, Config{Timeout: 20 * time.Millisecond})

	in := "slow https://t.co/slow"
	if got := r.Resolve(context.Background(), in); got != in {
		t.Errorf("timed out link should stay unchanged, got %q", got)
	}
}

func TestResolve_NoLinksSkipsNetwork(t *testing.T) {
	r, rw := newTestResolver(t, redirects(nil), Config{})

	got := r.Resolve(context.Background(), "fish &amp;amp; chips &gt; salad")
	if got != "fish & chips > salad" {
		t.Errorf("got %q", got)
	}
	if n := rw.calls.Load(); n != 0 {
		t.Errorf("expected no HTTP calls, got %d", n)
	}
}

func TestResolve_UnescapesAfterResolution(t *testing.T) {
	r, _ := newTestResolver(t, redirects(map[string]string{"/q": "https://example.com/?a=1&b=2"}), Config{})

	got := r.Resolve(context.Background(), "Q&amp;A https://t.co/q")
	if !strings.HasPrefix(got, "Q&A https://example.com/?a=1") {
		t.Errorf("got %q", got)
	}
}

func TestResolve_DedupesLookups(t *testing.T) {
	r, rw := newTestResolver(t, redirects(map[string]string{"/d": "https://example.com/dest"}), Config{Concurrency: 1})

	r.Resolve(context.Background(), "https://t.co/d https://t.co/d https://t.co/d")
	// one HEAD to t.co plus one for the redirect target
	if n := rw.calls.Load(); n != 2 {
		t.Errorf("expected 2 round trips, got %d", n)
	}
}

func TestResolve_CanceledContext(t *testing.T) {
	r, _ := newTestResolver(t, redirects(map[string]string{"/c": "https://example.com"}), Config{RequestsPerSec: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := "https://t.co/c"
	if got := r.Resolve(ctx, in); got != in {
		t.Errorf("canceled lookup should leave text unchanged, got %q", got)
	}
}

func TestNew_Defaults(t *testing.T) {
	r := New(Config{}, nil)
	if r.timeout != DefaultTimeout || r.concurrency != DefaultConcurrency {
		t.Errorf("timeout = %v concurrency = %d", r.timeout, r.concurrency)
	}
	if r.limiter != nil {
		t.Error("limiter should be disabled by default")
	}
}
