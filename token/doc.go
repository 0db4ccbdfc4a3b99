// Package token provides local, signature-free inspection of bearer
// tokens. The guard uses it for the synchronous liveness check that runs
// on every route transition: structural shape, payload decode, and expiry
// against wall-clock time. It deliberately does NOT verify signatures —
// the identity backend is the sole authority on token validity, and a
// locally "live" token can still be rejected remotely.
package token
