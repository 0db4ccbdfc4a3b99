package flows

// HTTPResult is the transport-level outcome of one backend call. When Err
// is set no response reached the backend and Status and Body are
// meaningless; this distinction is load-bearing for the error taxonomy
// (network failure must never read as an authorization denial).
type HTTPResult struct {
	Status int
	Body   []byte
	Err    error
}

// OK reports a 2xx status on a call that produced a response.
func (r HTTPResult) OK() bool {
	return r.Err == nil && r.Status >= 200 && r.Status < 300
}
