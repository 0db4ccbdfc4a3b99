package goguard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestCreatePaymentOrderMergesCSRFToken(t *testing.T) {
	backend := newTestBackend(t)
	backend.handle("GET /auth/validate-session", okValidateHandler)
	backend.handle("GET /payments/csrf-token", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]string{"csrf_token": "csrf-abc"})
	})
	backend.handle("POST /payments/create-order", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode order body: %v", err)
		}
		if body["csrf_token"] != "csrf-abc" {
			t.Errorf("csrf_token = %v, want csrf-abc", body["csrf_token"])
		}
		if body["amount"] != float64(1299) {
			t.Errorf("amount = %v, want 1299", body["amount"])
		}
		writeTestJSON(w, http.StatusCreated, map[string]string{"order_id": "order-1"})
	})

	guard, _ := newTestGuard(t, backend, liveTestCredentials())

	body, err := guard.Coordinator().CreatePaymentOrder(t.Context(), map[string]interface{}{"amount": 1299})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !strings.Contains(string(body), "order-1") {
		t.Fatalf("unexpected order response: %s", body)
	}
}

func TestCreatePaymentOrderProceedsWithoutCSRF(t *testing.T) {
	backend := newTestBackend(t)
	backend.handle("GET /auth/validate-session", okValidateHandler)
	backend.handle("GET /payments/csrf-token", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	backend.handle("POST /payments/create-order", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, present := body["csrf_token"]; present {
			t.Error("csrf_token field present despite unavailable endpoint")
		}
		writeTestJSON(w, http.StatusCreated, map[string]string{"order_id": "order-2"})
	})

	guard, _ := newTestGuard(t, backend, liveTestCredentials())
	coordinator := guard.Coordinator()

	if _, err := coordinator.CreatePaymentOrder(t.Context(), map[string]interface{}{"amount": 5}); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if got := coordinator.metrics.Value(MetricCSRFUnavailable); got != 1 {
		t.Fatalf("csrf unavailable counter = %d, want 1", got)
	}
}

func TestCreatePaymentOrderBlockedOnInvalidSession(t *testing.T) {
	backend := newTestBackend(t)
	backend.handle("GET /auth/validate-session", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	guard, mem := newTestGuard(t, backend, liveTestCredentials())

	_, err := guard.Coordinator().CreatePaymentOrder(t.Context(), map[string]interface{}{"amount": 5})
	if !errors.Is(err, ErrPaymentSessionInvalid) {
		t.Fatalf("err = %v, want ErrPaymentSessionInvalid", err)
	}

	// No implicit refresh and no order attempt on the blocked path.
	if n := backend.callCount("/auth/refresh"); n != 0 {
		t.Fatalf("refresh endpoint called %d times, want 0", n)
	}
	if n := backend.callCount("/payments/create-order"); n != 0 {
		t.Fatalf("order endpoint called %d times, want 0", n)
	}

	creds, loadErr := mem.Load(t.Context())
	if loadErr != nil {
		t.Fatalf("load: %v", loadErr)
	}
	if !creds.Complete() {
		t.Fatal("credentials disturbed by blocked payment")
	}
}

func TestCreatePaymentOrderBlockedOnNetworkError(t *testing.T) {
	backend := newTestBackend(t)
	guard, mem := newTestGuard(t, backend, liveTestCredentials())
	backend.srv.Close()

	_, err := guard.Coordinator().CreatePaymentOrder(t.Context(), map[string]interface{}{"amount": 5})
	if !errors.Is(err, ErrPaymentSessionInvalid) {
		t.Fatalf("err = %v, want ErrPaymentSessionInvalid", err)
	}

	creds, loadErr := mem.Load(t.Context())
	if loadErr != nil {
		t.Fatalf("load: %v", loadErr)
	}
	if !creds.Complete() {
		t.Fatal("credentials disturbed by unreachable backend")
	}
}

func TestCreatePaymentOrderRejectedSurfacesMessage(t *testing.T) {
	backend := newTestBackend(t)
	backend.handle("GET /auth/validate-session", okValidateHandler)
	backend.handle("GET /payments/csrf-token", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]string{"csrf_token": "csrf-abc"})
	})
	backend.handle("POST /payments/create-order", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "card declined"})
	})

	sink := NewChannelSink(8)
	guard, _ := newTestGuard(t, backend, liveTestCredentials(), withTestSink(sink))

	_, err := guard.Coordinator().CreatePaymentOrder(t.Context(), map[string]interface{}{"amount": 5})
	if !errors.Is(err, ErrPaymentRejected) {
		t.Fatalf("err = %v, want ErrPaymentRejected", err)
	}
	if !strings.Contains(err.Error(), "card declined") {
		t.Fatalf("err = %v, want backend message included", err)
	}

	event := waitForEvent(t, sink)
	if event.EventType != "payment_rejected" {
		t.Fatalf("event type = %q, want payment_rejected", event.EventType)
	}
}
