package flows

import (
	"context"
	"net/http"
)

// ValidateOutcome classifies a session validation attempt for root-level
// mapping.
type ValidateOutcome int

const (
	ValidateOutcomeValid ValidateOutcome = iota
	ValidateOutcomeUnauthorized
	ValidateOutcomeError
	ValidateOutcomeNetwork
)

// ValidateResult carries the classified outcome plus the raw response body
// for the root package to decode on success.
type ValidateResult struct {
	Outcome ValidateOutcome
	Body    []byte
}

// ValidateDeps captures validation flow dependencies.
type ValidateDeps struct {
	// HasCredential reports whether a bearer token is persisted at all.
	// Without one the backend would answer 401 anyway, so the flow
	// short-circuits to unauthorized with no network round-trip.
	HasCredential func() bool
	Send          func(ctx context.Context) HTTPResult
}

// RunValidate executes the validation classification without root package
// dependencies. It performs no local mutation whatever the outcome.
func RunValidate(ctx context.Context, deps ValidateDeps) ValidateResult {
	if deps.HasCredential != nil && !deps.HasCredential() {
		return ValidateResult{Outcome: ValidateOutcomeUnauthorized}
	}

	res := deps.Send(ctx)
	if res.Err != nil {
		return ValidateResult{Outcome: ValidateOutcomeNetwork}
	}

	switch {
	case res.OK():
		return ValidateResult{Outcome: ValidateOutcomeValid, Body: res.Body}
	case res.Status == http.StatusUnauthorized:
		return ValidateResult{Outcome: ValidateOutcomeUnauthorized}
	default:
		return ValidateResult{Outcome: ValidateOutcomeError}
	}
}
