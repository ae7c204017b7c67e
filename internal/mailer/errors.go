package mailer

import (
	"errors"
	"fmt"
)

// ErrAuthenticationFailed is returned by SendEmails when the relay rejects
// the resolved credentials. The failing recipient's outcome is persisted
// before the call aborts; remaining recipients are never attempted.
var ErrAuthenticationFailed = errors.New("relay credentials were rejected")

// BadRequestError indicates invalid caller input detected before any
// dispatch for the offending recipient. Nothing is persisted for it.
type BadRequestError struct {
	msg string
}

// Error implements error.
func (e *BadRequestError) Error() string {
	return e.msg
}

func badRequestf(format string, args ...any) *BadRequestError {
	return &BadRequestError{msg: fmt.Sprintf(format, args...)}
}

// IsBadRequest reports whether err is a caller-input error.
func IsBadRequest(err error) bool {
	var target *BadRequestError
	return errors.As(err, &target)
}
