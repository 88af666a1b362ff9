package upstream

import "fmt"

// HTTPError is an upstream response with status >= 400. Snippet is short and
// already redacted.
type HTTPError struct {
	Status   int
	Endpoint string
	Snippet  string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream %s returned %d: %s", e.Endpoint, e.Status, e.Snippet)
}

// IsStatus reports whether err is an HTTPError with one of the given codes.
func IsStatus(err error, statuses ...int) bool {
	httpErr, ok := err.(*HTTPError)
	if !ok {
		return false
	}
	for _, status := range statuses {
		if httpErr.Status == status {
			return true
		}
	}
	return false
}

// UnreachableError is a transport-level failure: connect refused, timeout,
// DNS failure.
type UnreachableError struct {
	Endpoint string
	Err      error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("upstream %s unreachable: %v", e.Endpoint, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// BadResponseError is a 2xx response whose payload could not be used.
type BadResponseError struct {
	Endpoint string
	Reason   string
}

func (e *BadResponseError) Error() string {
	return fmt.Sprintf("bad upstream response from %s: %s", e.Endpoint, e.Reason)
}
