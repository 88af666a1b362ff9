// Package errors holds the upstream failure sentinels shared between the
// credential layer and the HTTP boundary. Error types with a single owner
// (auth failures, resolution errors, duplicate submissions) live with their
// owning packages instead.
package errors

import "errors"

var (
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	ErrUpstreamBadResponse = errors.New("bad upstream response")
)
