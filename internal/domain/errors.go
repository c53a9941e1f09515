package domain

import "errors"

// CallError is a recoverable protocol failure reported to the originating
// connection only. Code is what goes on the wire.
type CallError struct {
	Code string
	msg  string
}

func (e *CallError) Error() string { return e.msg }

var (
	ErrTargetNotFound      = &CallError{Code: "TargetNotFound", msg: "user not found"}
	ErrTargetBusy          = &CallError{Code: "TargetBusy", msg: "user is busy in another call"}
	ErrCallerBusy          = &CallError{Code: "CallerBusy", msg: "you are already in a call"}
	ErrInvalidTarget       = &CallError{Code: "InvalidTarget", msg: "cannot call yourself"}
	ErrDuplicateConnection = &CallError{Code: "DuplicateConnection", msg: "connection already joined"}
	ErrStaleInvitation     = &CallError{Code: "StaleInvitation", msg: "invitation is no longer valid"}
	ErrCallerGone          = &CallError{Code: "CallerGone", msg: "caller not found"}
	ErrInvalidName         = &CallError{Code: "InvalidName", msg: "invalid username"}
	ErrNotJoined           = &CallError{Code: "NotJoined", msg: "join first"}
	ErrRateLimited         = &CallError{Code: "RateLimited", msg: "too many call requests"}
)

// Code extracts the wire code of err, or "Internal" for anything that is
// not a CallError.
func Code(err error) string {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return "Internal"
}
