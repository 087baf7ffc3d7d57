package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by the operator action that can recover from it.
type Kind string

const (
	Validation     Kind = "validation"
	Authentication Kind = "authentication"
	Submission     Kind = "submission"
	Ingestion      Kind = "ingestion"
)

const genericMessage = "Something went wrong."

// Error is the failure surfaced to the operator. Message is shown verbatim;
// Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Field(kind Kind, field, message string) *Error {
	return &Error{Kind: kind, Field: field, Message: message}
}

// Message returns the single human-readable line for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return genericMessage
}

func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
