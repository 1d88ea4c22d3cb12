package tagmanager

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAction is returned by ParseCommand for names outside the command set.
	ErrUnknownAction = errors.New("unknown action")
	// ErrLoadTimeout is recorded when a container load exceeds its bound.
	ErrLoadTimeout = errors.New("container load timed out")
	// ErrLoadCanceled is recorded when a pending load is superseded or the session exits.
	ErrLoadCanceled = errors.New("container load canceled")
	// ErrRefreshUnavailable is returned by an SDK that has no remote source to refresh from.
	ErrRefreshUnavailable = errors.New("container refresh unavailable")
)

// NotInitializedError is returned by gated actions before a container is available.
type NotInitializedError struct {
	Action Action
}

func (e *NotInitializedError) Error() string {
	return string(e.Action) + " failed - not initialized"
}

// NewNotInitializedError returns the error reported for action before initialization.
func NewNotInitializedError(action Action) error {
	return &NotInitializedError{Action: action}
}

// IsNotInitialized reports whether err is a NotInitializedError.
func IsNotInitialized(err error) bool {
	var target *NotInitializedError
	return errors.As(err, &target)
}

// ArgumentError describes a missing or malformed positional argument.
type ArgumentError struct {
	Index  int
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument %d: %s", e.Index, e.Reason)
}

// IsArgumentError reports whether err is an ArgumentError.
func IsArgumentError(err error) bool {
	var target *ArgumentError
	return errors.As(err, &target)
}
