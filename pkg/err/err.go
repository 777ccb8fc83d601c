package errprocess

import (
	"errors"
	"fmt"

	"support_chat_service/pkg/logger"
)

// Kind classifies an error so handlers can map it to a transport status
type Kind int

const (
	// KindValidation input rejected before any persistence
	KindValidation Kind = iota + 1
	// KindNotFound unknown entity id
	KindNotFound
	// KindForbidden role or ownership mismatch
	KindForbidden
	// KindTransientStore durable-store timeout/conflict, caller may retry
	KindTransientStore
	// KindNotInitialized component used before its lifecycle started
	KindNotInitialized
)

// Error carries a kind plus a human readable message
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap expose the wrapped cause
func (e *Error) Unwrap() error { return e.Err }

// Validation create a ValidationError
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// NotFound create a NotFoundError
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// Forbidden create a ForbiddenError, logged for audit
func Forbidden(msg string) error {
	logger.Log.Warn("forbidden: " + msg)
	return &Error{Kind: KindForbidden, Msg: msg}
}

// TransientStore wrap a durable-store failure the caller may safely retry
func TransientStore(msg string, cause error) error {
	return &Error{Kind: KindTransientStore, Msg: msg, Err: cause}
}

// NotInitialized create a NotInitializedError
func NotInitialized(component string) error {
	return &Error{Kind: KindNotInitialized, Msg: component + " not initialized"}
}

// IsKind report whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}
