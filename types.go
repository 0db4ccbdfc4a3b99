package goguard

import (
	"io"
	"net/http"
	"time"

	internalevents "github.com/MrEthical07/goGuard/internal/events"
)

// User is the persisted profile record carried alongside the credential
// pair. It is written by the identity backend on login and refresh and read
// back by [Guard.CurrentUser].
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ValidationReason classifies why [Coordinator.ValidateSession] reported an
// invalid session.
//
//	Docs: docs/coordinator.md
type ValidationReason string

const (
	// ValidationUnauthorized means the backend answered 401. This is the
	// only reason that triggers a refresh attempt.
	ValidationUnauthorized ValidationReason = "unauthorized"
	// ValidationError means the backend answered a non-2xx status other
	// than 401.
	ValidationError ValidationReason = "error"
	// ValidationNetworkError means no response reached the backend. It
	// never invalidates an otherwise good session.
	ValidationNetworkError ValidationReason = "network_error"
)

// ValidationResult is returned by [Coordinator.ValidateSession].
// Reason is set iff Valid is false.
type ValidationResult struct {
	Valid     bool
	User      *User
	ExpiresAt time.Time
	Reason    ValidationReason
}

// RefreshResult is returned by [Coordinator.RefreshSession]. All callers
// that joined the same in-flight refresh observe the same result.
type RefreshResult struct {
	Success bool
	User    *User
	// Shared reports whether this caller joined a refresh started by
	// another caller instead of issuing its own network call.
	Shared bool
}

// VerdictReason is the machine-readable reason attached to every
// [Verdict]. Exactly one reason is set per access check.
//
//	Docs: docs/guard.md
type VerdictReason string

const (
	// ReasonAuthorized is an exported constant or variable used by the session guard.
	ReasonAuthorized VerdictReason = "authorized"
	// ReasonUnauthenticated is an exported constant or variable used by the session guard.
	ReasonUnauthenticated VerdictReason = "unauthenticated"
	// ReasonInsufficientPermissions is an exported constant or variable used by the session guard.
	ReasonInsufficientPermissions VerdictReason = "insufficient_permissions"
	// ReasonInsufficientRoles is an exported constant or variable used by the session guard.
	ReasonInsufficientRoles VerdictReason = "insufficient_roles"
)

// Verdict is the guard's access decision. Denial is normal data, not an
// error: RedirectTo names the navigation target and is set iff Allowed is
// false.
type Verdict struct {
	Allowed    bool
	Reason     VerdictReason
	RedirectTo string
}

// RouteRule maps a route identifier to its authorization requirements.
// RequiredPermissions use AND semantics (every listed permission must be
// held); AcceptableRoles use OR semantics (holding any one suffices). A
// route with no registered rule requires only a live session. The AND/OR
// asymmetry is deliberate and load-bearing; see docs/guard.md.
type RouteRule struct {
	Route               string
	RequiredPermissions []string
	AcceptableRoles     []string
}

// RequestOptions shapes a request issued through [Coordinator.Do].
// The zero value sends a GET with no body.
type RequestOptions struct {
	Method string
	Header http.Header
	Body   []byte
}

// Event is the notification record emitted on logout, refresh failure, and
// access denial.
//
//	Docs: docs/events.md
type Event = internalevents.Event

// EventSink receives [Event] values from the guard's event dispatcher.
type EventSink = internalevents.Sink

// NoOpSink is an [EventSink] that silently discards all events.
type NoOpSink = internalevents.NoOpSink

// ChannelSink is a buffered channel-based [EventSink].
type ChannelSink = internalevents.ChannelSink

// JSONWriterSink is an [EventSink] that writes JSON-encoded events to an
// [io.Writer], one object per line.
type JSONWriterSink = internalevents.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalevents.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalevents.NewJSONWriterSink(w)
}
