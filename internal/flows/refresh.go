package flows

import "context"

// RefreshFailureKind classifies refresh flow failures for root-level
// mapping. Any failure, whatever the kind, routes the caller into the
// terminal auth-failure path exactly once per attempt.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNoToken
	RefreshFailureNetwork
	RefreshFailureBackend
)

// RefreshResult carries either the successful response body or failure
// metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Status  int
	Body    []byte
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	RefreshToken func() string
	Send         func(ctx context.Context, refreshToken string) HTTPResult
}

// RunRefresh executes one network refresh attempt. Single-flight
// coordination is the caller's concern; this flow assumes it is the one
// elected attempt.
func RunRefresh(ctx context.Context, deps RefreshDeps) RefreshResult {
	refreshToken := deps.RefreshToken()
	if refreshToken == "" {
		return RefreshResult{Failure: RefreshFailureNoToken}
	}

	res := deps.Send(ctx, refreshToken)
	if res.Err != nil {
		return RefreshResult{Failure: RefreshFailureNetwork, Err: res.Err}
	}
	if !res.OK() {
		return RefreshResult{Failure: RefreshFailureBackend, Status: res.Status, Body: res.Body}
	}

	return RefreshResult{Failure: RefreshFailureNone, Status: res.Status, Body: res.Body}
}
