package supervisor

import (
	"errors"
	"fmt"
)

// UnavailableError reports a non-2xx response from an upstream component.
// It carries the calling operation's name and the upstream status so the
// failure can be surfaced to the original client.
type UnavailableError struct {
	Op         string
	StatusCode int
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s is unavailable (upstream status %d)", e.Op, e.StatusCode)
}

// NoContentError reports an upstream 204. It is a valid "nothing found"
// outcome, not a failure; callers decide whether it short-circuits the run.
type NoContentError struct {
	Op string
}

func (e *NoContentError) Error() string {
	return fmt.Sprintf("%s returned no content", e.Op)
}

// UnexpectedError reports a malformed or unclassifiable upstream response.
type UnexpectedError struct {
	Op  string
	Err error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("%s returned an unexpected response: %v", e.Op, e.Err)
}

func (e *UnexpectedError) Unwrap() error { return e.Err }

// IsNoContent reports whether err is a NoContentError anywhere in its chain.
func IsNoContent(err error) bool {
	var nc *NoContentError
	return errors.As(err, &nc)
}

// IsUnavailable reports whether err is an UnavailableError anywhere in its chain.
func IsUnavailable(err error) bool {
	var ua *UnavailableError
	return errors.As(err, &ua)
}
