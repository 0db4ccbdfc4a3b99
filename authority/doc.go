// Package authority resolves and caches the actor's roles and permissions.
// The guard treats it as a memoized, force-refreshable oracle: lookups are
// served from a TTL-bounded snapshot, a force refresh bypasses the memo,
// and fetch errors propagate so callers can fail closed. It never grants
// on uncertainty.
package authority
