package calendar

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for the transport layer.
type Kind string

const (
	KindClient      Kind = "client"
	KindAuth        Kind = "auth"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindUpstream    Kind = "upstream"
	KindPersistence Kind = "persistence"
	KindInternal    Kind = "internal"
)

var (
	// ErrNotFound is returned by stores when a row is absent or owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyMaterialized is returned by stores when an item already left the planned state.
	ErrAlreadyMaterialized = errors.New("calendar item already materialized")
)

// Error is the boundary error of the planner and materializer. Message is safe
// to show to clients; RawOutput carries the generator text when it was unusable.
type Error struct {
	Kind      Kind
	Message   string
	RawOutput string
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Details returns the underlying cause message, or "" when there is none.
func (e *Error) Details() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// KindOf reports the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func clientError(msg string) *Error {
	return &Error{Kind: KindClient, Message: msg}
}

func notFoundError(msg string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: msg, Err: err}
}

func conflictError(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func upstreamError(msg, raw string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, RawOutput: raw, Err: err}
}

func persistenceError(msg string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}
