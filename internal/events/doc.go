// Package events carries the notification pipeline: the Event model, sink
// implementations, and the asynchronous dispatcher. The root package
// re-exports the public pieces; nothing here is imported by callers
// directly.
package events
