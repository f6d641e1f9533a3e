package errors

import (
	"errors"
	"fmt"
)

// New returns an error with the given message. It exists so that callers
// don't have to import both this package and the standard errors package.
func New(message string) error {
	return errors.New(message)
}

// ContextError annotates an error with what the caller was doing when the
// error occurred. Contexts stack as the error propagates up, so the final
// message reads outermost to innermost.
type ContextError struct {
	Context string
	Err     error
}

func (err ContextError) Error() string {
	return fmt.Sprintf("%s: %s", err.Context, err.Err)
}

// Unwrap makes ContextError compatible with errors.Is and errors.As.
func (err ContextError) Unwrap() error {
	return err.Err
}

// WithContext wraps the given error with a short description of what was
// being attempted. The description should be a lowercase clause, e.g.
// "parse config".
func WithContext(err error, context string) error {
	return ContextError{Context: context, Err: err}
}

// RootCause returns the innermost error after stripping all context
// annotations. Useful for type assertions against the original error.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(ContextError)
		if !ok {
			return err
		}
		err = ctxErr.Err
	}
}

// FriendlyError is an error message meant to be shown to users verbatim,
// without the context chain that developers want in logs.
type FriendlyError struct {
	Message string
}

func (err FriendlyError) Error() string {
	return err.Message
}

// FriendlyMessage implements the interface checked by GetPrintableMessage.
func (err FriendlyError) FriendlyMessage() string {
	return err.Message
}

// NewFriendlyError creates an error that will be shown to the user exactly
// as formatted here.
func NewFriendlyError(format string, args ...interface{}) error {
	return FriendlyError{Message: fmt.Sprintf(format, args...)}
}

type friendlyMessager interface {
	FriendlyMessage() string
}

// GetPrintableMessage returns the message that should be printed to the
// user for the given error. If any error in the chain provides a friendly
// message, that message wins; otherwise the full context chain is printed.
func GetPrintableMessage(err error) string {
	for cur := err; ; {
		if friendly, ok := cur.(friendlyMessager); ok {
			return friendly.FriendlyMessage()
		}

		ctxErr, ok := cur.(ContextError)
		if !ok {
			break
		}
		cur = ctxErr.Err
	}
	return err.Error()
}
