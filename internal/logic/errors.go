package logic

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures so handlers can map them to
// transport status codes without string matching.
type ErrorKind string

const (
	// KindNotFound: unresolvable team/match/model/experiment/prediction.
	KindNotFound ErrorKind = "not_found"
	// KindValidation: malformed or logically inconsistent input.
	KindValidation ErrorKind = "validation"
	// KindConflict: double feedback, promotion race, re-evaluating a
	// completed experiment.
	KindConflict ErrorKind = "conflict"
	// KindTransientStore: store unavailable or timed out; safe to retry.
	KindTransientStore ErrorKind = "transient_store"
)

// Error is the structured error carried across the engine. Draws,
// "continue" decisions and empty detections are success values and never
// use this type.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// TransientStore wraps a store failure that the caller may retry.
func TransientStore(msg string, err error) error {
	return &Error{Kind: KindTransientStore, Message: msg, Err: err}
}

// KindOf extracts the kind from an error chain, or "" for plain errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
