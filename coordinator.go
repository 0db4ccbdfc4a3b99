package goguard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/MrEthical07/goGuard/internal/events"
	"github.com/MrEthical07/goGuard/internal/flows"
	"github.com/MrEthical07/goGuard/store"
	"github.com/MrEthical07/goGuard/token"
)

const (
	eventTypeLogout          = "logout"
	eventTypeRefreshFailure  = "refresh_failure"
	eventTypeAccessDenied    = "access_denied"
	eventTypePaymentRejected = "payment_rejected"

	logoutReasonRefreshFailed = "token_refresh_failed"
	logoutReasonUserRequested = "logout"

	csrfField = "csrf_token"
)

// Coordinator owns session liveness against the identity backend,
// de-duplicates concurrent refresh attempts, and wraps authenticated calls
// with transparent recovery. Construct it through [Builder.Build]; all
// methods are then safe for concurrent use.
//
//	Docs: docs/coordinator.md
type Coordinator struct {
	config     Config
	store      store.CredentialStore
	authority  Authority
	inspector  *token.Inspector
	httpClient *http.Client
	metrics    *Metrics
	events     *events.Dispatcher
	redirect   func(path string)

	refreshGroup singleflight.Group
}

type validatePayload struct {
	User      *User `json:"user"`
	ExpiresAt int64 `json:"expires_at"`
}

type refreshPayload struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ValidateSession asks the backend whether the persisted session is still
// good. It performs no local mutation whatever the answer: a 401 maps to
// [ValidationUnauthorized] (the only reason that warrants a refresh), any
// other non-2xx to [ValidationError], and a transport failure to
// [ValidationNetworkError] so flaky connectivity never reads as a dead
// session. A missing bearer token short-circuits to unauthorized without a
// network round-trip.
func (c *Coordinator) ValidateSession(ctx context.Context) ValidationResult {
	started := time.Now()

	creds, err := c.store.Load(ctx)
	if err != nil {
		c.metricInc(MetricValidateNetworkError)
		return ValidationResult{Valid: false, Reason: ValidationNetworkError}
	}

	res := flows.RunValidate(ctx, flows.ValidateDeps{
		HasCredential: func() bool { return creds.Token != "" },
		Send: func(ctx context.Context) flows.HTTPResult {
			return c.send(ctx, http.MethodGet, c.config.Endpoints.ValidateSession, creds.Token, nil)
		},
	})
	c.metricObserve(MetricValidateLatency, time.Since(started))

	switch res.Outcome {
	case flows.ValidateOutcomeValid:
		var payload validatePayload
		if err := json.Unmarshal(res.Body, &payload); err != nil {
			c.metricInc(MetricValidateError)
			return ValidationResult{Valid: false, Reason: ValidationError}
		}
		c.metricInc(MetricValidateSuccess)
		out := ValidationResult{Valid: true, User: payload.User}
		if payload.ExpiresAt > 0 {
			out.ExpiresAt = time.Unix(payload.ExpiresAt, 0)
		}
		return out
	case flows.ValidateOutcomeUnauthorized:
		c.metricInc(MetricValidateUnauthorized)
		return ValidationResult{Valid: false, Reason: ValidationUnauthorized}
	case flows.ValidateOutcomeNetwork:
		c.metricInc(MetricValidateNetworkError)
		return ValidationResult{Valid: false, Reason: ValidationNetworkError}
	default:
		c.metricInc(MetricValidateError)
		return ValidationResult{Valid: false, Reason: ValidationError}
	}
}

// RefreshSession rotates the session credentials. The call is
// single-flight: a caller arriving while a refresh is outstanding joins it
// instead of issuing a second network call, and every member of the burst
// observes the same outcome. The gate resets once the attempt settles, so
// a later wave triggers a fresh attempt rather than reusing a stale
// result. On failure the terminal auth-failure path runs exactly once and
// [ErrRefreshFailed] is returned.
//
// The elected caller's context drives the network call; joiners that
// cancel early still leave the shared attempt running.
func (c *Coordinator) RefreshSession(ctx context.Context) (RefreshResult, error) {
	v, err, shared := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		return c.refreshOnce(ctx)
	})
	if shared {
		c.metricInc(MetricRefreshShared)
	}
	if err != nil {
		return RefreshResult{Shared: shared}, err
	}

	out := v.(RefreshResult)
	out.Shared = shared
	return out, nil
}

// refreshOnce is the elected single-flight body: one network attempt, one
// outcome, one terminal path invocation on failure.
func (c *Coordinator) refreshOnce(ctx context.Context) (RefreshResult, error) {
	creds, loadErr := c.store.Load(ctx)
	if loadErr != nil {
		creds = store.Credentials{}
	}

	res := flows.RunRefresh(ctx, flows.RefreshDeps{
		RefreshToken: func() string { return creds.RefreshToken },
		Send: func(ctx context.Context, refreshToken string) flows.HTTPResult {
			body, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})
			return c.send(ctx, http.MethodPost, c.config.Endpoints.Refresh, creds.Token, body)
		},
	})

	if res.Failure != flows.RefreshFailureNone {
		c.metricInc(MetricRefreshFailure)
		c.emitEvent(ctx, events.Event{
			EventType: eventTypeRefreshFailure,
			Reason:    logoutReasonRefreshFailed,
			Success:   false,
			Error:     refreshFailureDetail(res),
		})
		c.handleAuthFailure(ctx, logoutReasonRefreshFailed)
		return RefreshResult{}, ErrRefreshFailed
	}

	var payload refreshPayload
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		c.metricInc(MetricRefreshFailure)
		c.handleAuthFailure(ctx, logoutReasonRefreshFailed)
		return RefreshResult{}, ErrRefreshFailed
	}

	next := creds
	if payload.AccessToken != "" {
		next.Token = payload.AccessToken
	}
	if payload.RefreshToken != "" {
		next.RefreshToken = payload.RefreshToken
	}
	if payload.User != nil {
		if userJSON, err := json.Marshal(payload.User); err == nil {
			next.UserJSON = string(userJSON)
		}
	}
	if err := c.store.Save(ctx, next); err != nil {
		log.Print("goGuard: credential save failed after refresh")
	}

	c.metricInc(MetricRefreshSuccess)
	return RefreshResult{Success: true, User: payload.User}, nil
}

func refreshFailureDetail(res flows.RefreshResult) string {
	switch res.Failure {
	case flows.RefreshFailureNoToken:
		return "no refresh token"
	case flows.RefreshFailureNetwork:
		if res.Err != nil {
			return res.Err.Error()
		}
		return "network failure"
	default:
		return fmt.Sprintf("backend status %d", res.Status)
	}
}

// Do executes an authenticated request against the configured backend:
// validate, refresh when (and only when) validation reports unauthorized,
// send, and on a 401 response refresh once and resend once. A second 401
// after the retry is terminal and surfaces as [ErrRequestUnauthorized];
// refresh failure anywhere surfaces as [ErrRefreshFailed] after the
// terminal path has already run. The bounded retry tolerates the race
// between validation and dispatch without ever looping.
func (c *Coordinator) Do(ctx context.Context, endpoint string, opts RequestOptions) (*http.Response, error) {
	vr := c.ValidateSession(ctx)
	if !vr.Valid && vr.Reason == ValidationUnauthorized {
		if _, err := c.RefreshSession(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.sendRequest(ctx, endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// Session was good moments ago but the request still bounced: the
	// token expired in flight. One refresh, one resend.
	drainAndClose(resp)
	if _, err := c.RefreshSession(ctx); err != nil {
		return nil, err
	}
	c.metricInc(MetricRequestRetry)

	resp, err = c.sendRequest(ctx, endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drainAndClose(resp)
		c.metricInc(MetricRequestUnauthorized)
		return nil, ErrRequestUnauthorized
	}
	return resp, nil
}

// CreatePaymentOrder submits a payment with the stricter precondition:
// the session must already be valid, and no implicit refresh is
// attempted. An invalid session fails immediately with
// [ErrPaymentSessionInvalid] so payment never rides a just-repaired
// session without the caller re-confirming intent. A CSRF token is fetched
// best-effort and merged under the csrf_token field; its absence is
// logged, never fatal. Non-2xx responses surface the backend message
// wrapped in [ErrPaymentRejected].
func (c *Coordinator) CreatePaymentOrder(ctx context.Context, payment map[string]interface{}) ([]byte, error) {
	creds, _ := c.store.Load(ctx)

	res := flows.RunPayment(ctx, flows.PaymentDeps{
		Validate: func(ctx context.Context) flows.ValidateResult {
			vr := c.ValidateSession(ctx)
			if vr.Valid {
				return flows.ValidateResult{Outcome: flows.ValidateOutcomeValid}
			}
			return flows.ValidateResult{Outcome: flows.ValidateOutcomeUnauthorized}
		},
		FetchCSRF: func(ctx context.Context) (string, bool) {
			return c.fetchCSRFToken(ctx, creds.Token)
		},
		Send: func(ctx context.Context, csrfToken string) flows.HTTPResult {
			body := make(map[string]interface{}, len(payment)+1)
			for k, v := range payment {
				body[k] = v
			}
			if csrfToken != "" {
				body[csrfField] = csrfToken
			}
			encoded, err := json.Marshal(body)
			if err != nil {
				return flows.HTTPResult{Err: err}
			}
			return c.send(ctx, http.MethodPost, c.config.Endpoints.CreateOrder, creds.Token, encoded)
		},
	})

	switch res.Failure {
	case flows.PaymentFailureNone:
		c.metricInc(MetricPaymentSuccess)
		return res.Body, nil
	case flows.PaymentFailureSessionInvalid:
		c.metricInc(MetricPaymentBlocked)
		return nil, ErrPaymentSessionInvalid
	case flows.PaymentFailureNetwork:
		c.metricInc(MetricPaymentRejected)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, res.Err)
	default:
		c.metricInc(MetricPaymentRejected)
		message := paymentMessage(res.Body)
		c.emitEvent(ctx, events.Event{
			EventType: eventTypePaymentRejected,
			Success:   false,
			Error:     message,
			Metadata:  map[string]string{"status": fmt.Sprintf("%d", res.Status)},
		})
		return nil, fmt.Errorf("%w: %s", ErrPaymentRejected, message)
	}
}

func paymentMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return "payment failed"
}

func (c *Coordinator) fetchCSRFToken(ctx context.Context, bearer string) (string, bool) {
	res := c.send(ctx, http.MethodGet, c.config.Endpoints.CSRFToken, bearer, nil)
	if !res.OK() {
		c.metricInc(MetricCSRFUnavailable)
		log.Print("goGuard: csrf token unavailable, proceeding without it")
		return "", false
	}

	var payload struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(res.Body, &payload); err != nil || payload.CSRFToken == "" {
		c.metricInc(MetricCSRFUnavailable)
		log.Print("goGuard: csrf token unavailable, proceeding without it")
		return "", false
	}
	return payload.CSRFToken, true
}

// handleAuthFailure is the single terminal path for an unrecoverable
// session: wipe all three credential fields, clear the authority cache,
// broadcast the logout event, and schedule the login redirect after the
// configured grace period so a user-visible notice can render first.
// Every other failure funnels here; callers never duplicate the cleanup.
func (c *Coordinator) handleAuthFailure(ctx context.Context, reason string) {
	userID := c.currentUserID(ctx)

	if err := c.store.Clear(ctx); err != nil {
		log.Print("goGuard: credential wipe failed during auth failure handling")
	}
	c.metricInc(MetricCredentialsWiped)

	if c.authority != nil {
		c.authority.ClearCache()
	}

	c.emitEvent(ctx, events.Event{
		EventType: eventTypeLogout,
		UserID:    userID,
		Reason:    reason,
		Success:   true,
	})
	c.metricInc(MetricLogout)

	if c.redirect != nil {
		target := c.config.Logout.LoginPath
		time.AfterFunc(c.config.Logout.RedirectGrace, func() {
			c.redirect(target)
		})
	}
}

// logoutBackend notifies the backend of an explicit logout. Best-effort:
// failure never blocks the local wipe.
func (c *Coordinator) logoutBackend(ctx context.Context) {
	creds, err := c.store.Load(ctx)
	if err != nil || creds.Token == "" {
		return
	}
	if res := c.send(ctx, http.MethodPost, c.config.Endpoints.Logout, creds.Token, nil); !res.OK() {
		log.Print("goGuard: backend logout call failed, continuing with local logout")
	}
}

func (c *Coordinator) currentUserID(ctx context.Context) string {
	creds, err := c.store.Load(ctx)
	if err != nil || creds.UserJSON == "" {
		return ""
	}
	var user User
	if err := json.Unmarshal([]byte(creds.UserJSON), &user); err != nil {
		return ""
	}
	return user.ID
}

// send issues one backend call and flattens it to the transport-level
// result the flows layer classifies.
func (c *Coordinator) send(ctx context.Context, method, path, bearer string, body []byte) flows.HTTPResult {
	resp, err := c.roundTrip(ctx, method, path, bearer, body, nil)
	if err != nil {
		return flows.HTTPResult{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return flows.HTTPResult{Err: err}
	}
	return flows.HTTPResult{Status: resp.StatusCode, Body: data}
}

// sendRequest issues a caller-shaped request through Do. The caller owns
// the response body.
func (c *Coordinator) sendRequest(ctx context.Context, endpoint string, opts RequestOptions) (*http.Response, error) {
	creds, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	return c.roundTrip(ctx, method, endpoint, creds.Token, opts.Body, opts.Header)
}

func (c *Coordinator) roundTrip(ctx context.Context, method, path, bearer string, body []byte, header http.Header) (*http.Response, error) {
	url := strings.TrimSuffix(c.config.Endpoints.BaseURL, "/") + path

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.HTTP.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.HTTP.UserAgent)
	}

	return c.httpClient.Do(req)
}

func (c *Coordinator) emitEvent(ctx context.Context, event events.Event) {
	if c.events == nil {
		return
	}
	event.Timestamp = time.Now()
	if event.CorrelationID == "" {
		if id := correlationIDFromContext(ctx); id != "" {
			event.CorrelationID = id
		} else {
			event.CorrelationID = uuid.NewString()
		}
	}
	if event.Route == "" {
		event.Route = originRouteFromContext(ctx)
	}
	c.events.Emit(ctx, event)
}

func (c *Coordinator) metricInc(id MetricID) {
	c.metrics.Inc(id)
}

func (c *Coordinator) metricObserve(id MetricID, d time.Duration) {
	c.metrics.Observe(id, d)
}

// MetricsSnapshot returns a deep copy of all metric counters and
// histograms, for the exporters under metrics/export.
func (c *Coordinator) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// EventsDropped reports how many events the dispatcher discarded under
// backpressure.
func (c *Coordinator) EventsDropped() uint64 {
	return c.events.Dropped()
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}
