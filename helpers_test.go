package goguard

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goGuard/store"
)

// testBackend is an httptest-backed stand-in for the identity backend.
// Tests install handlers per path; every request is counted so assertions
// can pin exact call counts (single-flight, retry-once).
type testBackend struct {
	mux *http.ServeMux
	srv *httptest.Server

	mu    sync.Mutex
	calls map[string]int
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	b := &testBackend{
		mux:   http.NewServeMux(),
		calls: make(map[string]int),
	}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[r.URL.Path]++
		b.mu.Unlock()
		b.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *testBackend) handle(path string, handler http.HandlerFunc) {
	b.mux.HandleFunc(path, handler)
}

func (b *testBackend) callCount(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

func (b *testBackend) url() string {
	return b.srv.URL
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// makeTestToken builds an unsigned three-segment token with the given
// expiry. Liveness checks only decode the payload, so no signature is
// needed.
func makeTestToken(exp time.Time) string {
	return makeTestTokenClaims(map[string]any{
		"sub":   "user-1",
		"email": "alice@example.com",
		"name":  "Alice",
		"exp":   exp.Unix(),
	})
}

func makeTestTokenClaims(claims map[string]any) string {
	enc := func(v any) string {
		raw, _ := json.Marshal(v)
		return base64.RawURLEncoding.EncodeToString(raw)
	}
	return enc(map[string]string{"alg": "none", "typ": "JWT"}) + "." + enc(claims) + "."
}

func liveTestCredentials() store.Credentials {
	return store.Credentials{
		Token:        makeTestToken(time.Now().Add(time.Hour)),
		RefreshToken: "refresh-1",
		UserJSON:     `{"id":"user-1","email":"alice@example.com","name":"Alice"}`,
	}
}

type guardTestOptions struct {
	sink     EventSink
	redirect func(string)
	routes   []RouteRule
	config   func(*Config)
}

type guardTestOption func(*guardTestOptions)

func withTestSink(sink EventSink) guardTestOption {
	return func(o *guardTestOptions) { o.sink = sink }
}

func withTestRedirect(redirect func(string)) guardTestOption {
	return func(o *guardTestOptions) { o.redirect = redirect }
}

func withTestRoute(rule RouteRule) guardTestOption {
	return func(o *guardTestOptions) { o.routes = append(o.routes, rule) }
}

func withTestConfig(mutate func(*Config)) guardTestOption {
	return func(o *guardTestOptions) { o.config = mutate }
}

// newTestGuard builds a guard against the test backend with an in-memory
// store seeded with the given credentials.
func newTestGuard(t *testing.T, backend *testBackend, seed store.Credentials, opts ...guardTestOption) (*Guard, *store.Memory) {
	t.Helper()

	var options guardTestOptions
	for _, opt := range opts {
		opt(&options)
	}

	cfg := defaultConfig()
	cfg.Endpoints.BaseURL = backend.url()
	cfg.Logout.RedirectGrace = 5 * time.Millisecond
	if options.config != nil {
		options.config(&cfg)
	}

	mem := store.NewMemory()
	if err := mem.Save(t.Context(), seed); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}

	builder := New().
		WithConfig(cfg).
		WithCredentialStore(mem)
	if options.sink != nil {
		builder = builder.WithEventSink(options.sink)
	}
	if options.redirect != nil {
		builder = builder.WithRedirectHandler(options.redirect)
	}
	for _, rule := range options.routes {
		builder = builder.WithRoute(rule)
	}

	guard, err := builder.Build()
	if err != nil {
		t.Fatalf("guard build: %v", err)
	}
	t.Cleanup(guard.Close)
	return guard, mem
}

// waitForEvent receives one event or fails the test after a timeout.
func waitForEvent(t *testing.T, sink *ChannelSink) Event {
	t.Helper()
	select {
	case event := <-sink.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}
