package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotImplemented indicates the method name is not recognized.
	ErrNotImplemented = errors.New("method not implemented")

	// ErrControlUnavailable indicates the hidden volume view has no slider to drive.
	ErrControlUnavailable = errors.New("unable to locate volume slider")

	// ErrInvalidArguments indicates a call carried missing or mistyped arguments.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrInactive indicates the bridge has not been started.
	ErrInactive = errors.New("volume bridge is not active")

	// ErrDisposed indicates the bridge has been closed.
	ErrDisposed = errors.New("volume bridge is disposed")
)

// Wire codes reported with a MethodError.
const (
	// CodeControlUnavailable stays "-1" for existing application-side callers.
	CodeControlUnavailable = "-1"
	CodeInvalidArguments   = "bad_args"
	CodeUnavailable        = "unavailable"
	CodeInternal           = "internal"
)

// MethodError is a coded failure returned to the application layer.
type MethodError struct {
	Code    string
	Message string
	Details any
	Err     error
}

func (e *MethodError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *MethodError) Unwrap() error {
	return e.Err
}

// ToMethodError maps a bridge error onto its wire code.
// ErrNotImplemented is not a MethodError and yields nil.
func ToMethodError(err error) *MethodError {
	if err == nil || errors.Is(err, ErrNotImplemented) {
		return nil
	}
	var me *MethodError
	if errors.As(err, &me) {
		return me
	}
	switch {
	case errors.Is(err, ErrControlUnavailable):
		return &MethodError{
			Code:    CodeControlUnavailable,
			Message: "Unable to get volume slider",
			Details: err.Error(),
			Err:     err,
		}
	case errors.Is(err, ErrInvalidArguments):
		return &MethodError{Code: CodeInvalidArguments, Message: err.Error(), Err: err}
	case errors.Is(err, ErrInactive), errors.Is(err, ErrDisposed):
		return &MethodError{Code: CodeUnavailable, Message: err.Error(), Err: err}
	default:
		return &MethodError{Code: CodeInternal, Message: err.Error(), Err: err}
	}
}

// SentinelForCode returns the sentinel a wire code was produced from, or nil.
func SentinelForCode(code string) error {
	switch code {
	case CodeControlUnavailable:
		return ErrControlUnavailable
	case CodeInvalidArguments:
		return ErrInvalidArguments
	default:
		return nil
	}
}
