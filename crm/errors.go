package crm

import (
	"errors"
	"fmt"

	"github.com/inboxcrm/connector/crm/dedup"
)

// ErrInvalidInput marks caller-supplied data the adapter refuses to send
// upstream.
var ErrInvalidInput = errors.New("invalid input")

// DuplicateSubmissionError reports that the message was already logged. Not
// a hard failure: it carries the pre-existing record so callers can surface
// "already logged".
type DuplicateSubmissionError struct {
	Existing dedup.RecordRef
}

func (e *DuplicateSubmissionError) Error() string {
	return fmt.Sprintf("already recorded as %s/%s", e.Existing.Module, e.Existing.ID)
}
