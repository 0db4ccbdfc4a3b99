package goguard

import "errors"

var (
	// ErrGuardNotReady is an exported constant or variable used by the session guard.
	ErrGuardNotReady = errors.New("guard not initialized")
	// ErrSessionInvalid is an exported constant or variable used by the session guard.
	ErrSessionInvalid = errors.New("invalid session")
	// ErrRefreshFailed is an exported constant or variable used by the session guard.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrRequestUnauthorized is an exported constant or variable used by the session guard.
	ErrRequestUnauthorized = errors.New("request unauthorized after refresh retry")
	// ErrBackendUnavailable is an exported constant or variable used by the session guard.
	ErrBackendUnavailable = errors.New("auth backend unavailable")
	// ErrPaymentSessionInvalid is an exported constant or variable used by the session guard.
	ErrPaymentSessionInvalid = errors.New("payment requires an already-valid session")
	// ErrPaymentRejected is an exported constant or variable used by the session guard.
	ErrPaymentRejected = errors.New("payment rejected")
	// ErrRouteRuleDuplicate is an exported constant or variable used by the session guard.
	ErrRouteRuleDuplicate = errors.New("route rule already registered")
	// ErrRouteRulesFrozen is an exported constant or variable used by the session guard.
	ErrRouteRulesFrozen = errors.New("route rules frozen after first authorization")
)
