// Package goguard is a client-resident session and authorization guard for
// single-page and backend-for-frontend applications. It decides, before any
// protected action executes, whether the current actor holds a live session
// and whether that actor may reach a given route or perform a given action.
//
// The package is designed for concurrent callers: Coordinator and Guard
// methods are safe to call from multiple goroutines after initialization
// through [Builder.Build].
//
// # Architecture boundaries
//
// goguard is the public surface. It exposes [Coordinator], [Guard],
// [Builder], [Config], and value types (ValidationResult, Verdict,
// RouteRule, Event). All internal coordination — flow decision logic and
// event dispatch — lives under internal/ and is never exported. Token
// inspection, credential persistence, the authority oracle, and HTTP
// adapters live in the token, store, authority, and middleware subpackages.
//
// # What this package must NOT do
//
//   - Render any user interface. Denials are returned as data (a Verdict),
//     never as presentation.
//   - Verify token signatures. The identity backend is the sole authority
//     on token validity; local inspection is a liveness optimization only.
//   - Issue more than one network refresh for any burst of concurrent
//     callers. Refresh is single-flight by contract.
//
// # Failure contract
//
// Authorization denials are normal outcomes and always surface as a Verdict
// with a machine-readable reason. Unrecoverable session failures funnel
// through one terminal path: credentials wiped, authority cache cleared, a
// logout event emitted, and the login redirect scheduled after a configured
// grace period.
package goguard
