// Package store persists the credential triple: bearer token, refresh
// token, and serialized user record. The three fields live under three
// fixed keys and are cleared together, never partially — partial state is
// indistinguishable from "no session" by design. The coordinator's
// success and failure paths are the only writers; the guard only reads.
package store
