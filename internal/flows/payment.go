package flows

import "context"

// PaymentFailureKind classifies payment flow failures for root-level
// mapping.
type PaymentFailureKind int

const (
	PaymentFailureNone PaymentFailureKind = iota
	PaymentFailureSessionInvalid
	PaymentFailureNetwork
	PaymentFailureBackend
)

// PaymentResult carries either the order response body or failure metadata.
// CSRFUsed reports whether a CSRF token was obtained and merged.
type PaymentResult struct {
	Failure  PaymentFailureKind
	Err      error
	Status   int
	Body     []byte
	CSRFUsed bool
}

// PaymentDeps captures payment flow dependencies.
type PaymentDeps struct {
	Validate func(ctx context.Context) ValidateResult
	// FetchCSRF is best-effort: a missing token is reported, never fatal.
	// The backend stays the final arbiter of whether CSRF is mandatory.
	FetchCSRF func(ctx context.Context) (string, bool)
	Send      func(ctx context.Context, csrfToken string) HTTPResult
}

// RunPayment enforces the stricter payment precondition: the session must
// already be valid, with no implicit refresh-and-continue. An invalid
// session fails immediately so a just-repaired session cannot carry a
// payment the caller did not re-confirm.
func RunPayment(ctx context.Context, deps PaymentDeps) PaymentResult {
	if vr := deps.Validate(ctx); vr.Outcome != ValidateOutcomeValid {
		return PaymentResult{Failure: PaymentFailureSessionInvalid}
	}

	csrfToken, csrfOK := deps.FetchCSRF(ctx)

	res := deps.Send(ctx, csrfToken)
	if res.Err != nil {
		return PaymentResult{Failure: PaymentFailureNetwork, Err: res.Err, CSRFUsed: csrfOK}
	}
	if !res.OK() {
		return PaymentResult{Failure: PaymentFailureBackend, Status: res.Status, Body: res.Body, CSRFUsed: csrfOK}
	}

	return PaymentResult{Failure: PaymentFailureNone, Status: res.Status, Body: res.Body, CSRFUsed: csrfOK}
}
