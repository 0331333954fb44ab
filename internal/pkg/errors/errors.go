package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources (component,
	// import job, or an MPN absent from every configured part source).
	ErrNotFound = errors.New("not found")
	// ErrPreconditionFailed marks operations whose inputs are present but
	// unusable, e.g. a replacement search on a component with no
	// normalized package.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)
