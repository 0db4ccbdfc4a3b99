// Package flows holds the pure decision logic of the guard: classification
// of backend responses, the refresh outcome mapping, the route
// authorization state machine, and the payment precondition checks. Flow
// functions receive their dependencies as explicit structs so the root
// package can wire transports, stores, and caches without import cycles,
// and so every branch is testable without a network.
package flows
