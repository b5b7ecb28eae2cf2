package confluence

import (
	"errors"
	"fmt"
)

// NotFoundError reports a fetch or find against a nonexistent target.
// Fatal for that target; never retried.
type NotFoundError struct {
	Kind string // "page", "property"
	Ref  string // ID or space/title reference
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Ref)
}

// ConflictError reports a write rejected because the expected version is no
// longer current. The only error class the syncer retries.
type ConflictError struct {
	ID              string
	ExpectedVersion int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict writing %s (expected version %d)", e.ID, e.ExpectedVersion)
}

// TransportError reports any other non-success response or network
// failure. Never retried by the syncer; surfaced immediately.
type TransportError struct {
	Op         string // "fetch", "write", "labels", ...
	StatusCode int    // 0 when the request never got a response
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}
