package goguard

import (
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func okValidateHandler(w http.ResponseWriter, _ *http.Request) {
	writeTestJSON(w, http.StatusOK, map[string]any{
		"user": map[string]string{"id": "user-1"},
	})
}

func okRefreshHandler(w http.ResponseWriter, _ *http.Request) {
	writeTestJSON(w, http.StatusOK, map[string]any{
		"access_token":  makeTestToken(time.Now().Add(time.Hour)),
		"refresh_token": "refresh-2",
	})
}

func TestDoPassesThroughOnSuccess(t *testing.T) {
	backend := newTestBackend(t)
	backend.handle("GET /auth/validate-session", okValidateHandler)
	backend.handle("GET /api/profile", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]string{"name": "Alice"})
	})

	guard, _ := newTestGuard(t, backend, liveTestCredentials())

	resp, err := guard.Coordinator().Do(t.Context(), "/api/profile", RequestOptions{})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Fatal("expected response body")
	}
	if n := backend.callCount("/auth/refresh"); n != 0 {
		t.Fatalf("refresh endpoint called %d times, want 0", n)
	}
}

func TestDoRetriesOnceAfterInFlightExpiry(t *testing.T) {
	var apiHits atomic.Int32

	backend := newTestBackend(t)
	backend.handle("GET /auth/validate-session", okValidateHandler)
	backend.handle("POST /auth/refresh", okRefreshHandler)
	backend.handle("GET /api/orders", func(w http.ResponseWriter, _ *http.Request) {
		// First hit simulates a token that expired between validation
		// and dispatch; the retried request succeeds.
		if apiHits.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]string{"orders": "none"})
	})

	guard, _ := newTestGuard(t, backend, liveTestCredentials())
	coordinator := guard.Coordinator()

	resp, err := coordinator.Do(t.Context(), "/api/orders", RequestOptions{})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := apiHits.Load(); got != 2 {
		t.Fatalf("api endpoint hit %d times, want 2", got)
	}
	if n := backend.callCount("/auth/refresh"); n != 1 {
		t.Fatalf("refresh endpoint called %d times, want 1", n)
	}
	if got := coordinator.metrics.Value(MetricRequestRetry); got != 1 {
		t.Fatalf("retry counter = %d, want 1", got)
	}
}

func TestDoTerminalAfterSecondUnauthorized(t *testing.T) {
	backend := newTestBackend(t)
	backend.handle("GET /auth/validate-session", okValidateHandler)
	backend.handle("POST /auth/refresh", okRefreshHandler)
	backend.handle("GET /api/orders", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	guard, _ := newTestGuard(t, backend, liveTestCredentials())

	_, err := guard.Coordinator().Do(t.Context(), "/api/orders", RequestOptions{})
	if !errors.Is(err, ErrRequestUnauthorized) {
		t.Fatalf("err = %v, want ErrRequestUnauthorized", err)
	}
	if n := backend.callCount("/api/orders"); n != 2 {
		t.Fatalf("api endpoint hit %d times, want exactly 2", n)
	}
}

func TestDoRefreshesBeforeSendWhenValidationUnauthorized(t *testing.T) {
	backend := newTestBackend(t)
	backend.handle("GET /auth/validate-session", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	backend.handle("POST /auth/refresh", okRefreshHandler)
	backend.handle("GET /api/profile", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]string{"name": "Alice"})
	})

	guard, _ := newTestGuard(t, backend, liveTestCredentials())

	resp, err := guard.Coordinator().Do(t.Context(), "/api/profile", RequestOptions{})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()

	if n := backend.callCount("/auth/refresh"); n != 1 {
		t.Fatalf("refresh endpoint called %d times, want 1", n)
	}
}

func TestDoSurfacesRefreshFailure(t *testing.T) {
	backend := newTestBackend(t)
	backend.handle("GET /auth/validate-session", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	backend.handle("POST /auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	guard, mem := newTestGuard(t, backend, liveTestCredentials())

	_, err := guard.Coordinator().Do(t.Context(), "/api/profile", RequestOptions{})
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("err = %v, want ErrRefreshFailed", err)
	}

	creds, loadErr := mem.Load(t.Context())
	if loadErr != nil {
		t.Fatalf("load: %v", loadErr)
	}
	if creds.Token != "" || creds.RefreshToken != "" || creds.UserJSON != "" {
		t.Fatalf("credentials not wiped after refresh failure: %+v", creds)
	}
}
