package chain

import (
	"errors"
	"fmt"
)

// Result is the value threaded from one handler to the next. The zero value
// means no handler has produced a value yet, which is distinct from a
// produced empty value.
type Result struct {
	value any
	ok    bool
}

func None() Result { return Result{} }

func Some(v any) Result { return Result{value: v, ok: true} }

// Value returns the held value and whether there is one.
func (r Result) Value() (any, bool) { return r.value, r.ok }

func (r Result) IsNone() bool { return !r.ok }

// String returns the held value when it is a string.
func (r Result) String() string {
	s, _ := r.value.(string)
	return s
}

type outcomeKind uint8

const (
	kindNext outcomeKind = iota
	kindReturn
	kindAwait
	kindStop
	kindAbort
	kindFail
)

// Outcome is what a handler hands back to the dispatcher.
type Outcome struct {
	kind   outcomeKind
	value  any
	err    error
	future *Future
}

// Next continues with the current result unchanged.
func Next() Outcome { return Outcome{kind: kindNext} }

// Return makes v the result seen by the next handler.
func Return(v any) Outcome { return Outcome{kind: kindReturn, value: v} }

// Await suspends the chain until f settles.
func Await(f *Future) Outcome {
	if f == nil {
		return Fail(errors.New("chain: await on nil future"))
	}
	return Outcome{kind: kindAwait, future: f}
}

// Go runs fn asynchronously and awaits it.
func Go(fn func() (any, error)) Outcome { return Await(Async(fn)) }

// Stop ends the chain and responds with the current body and status.
func Stop() Outcome { return Outcome{kind: kindStop} }

// Throw ends the chain with an explicit status and message.
func Throw(status int, message string) Outcome {
	return Outcome{kind: kindAbort, err: &AbortError{StatusCode: status, Message: message}}
}

// Fail ends the chain with an unexpected failure.
func Fail(err error) Outcome {
	if err == nil {
		err = errors.New("chain: unknown failure")
	}
	return Outcome{kind: kindFail, err: err}
}

// From converts a (value, error) pair. An *AbortError becomes an abort, any
// other error a failure, and a nil error returns v.
func From(v any, err error) Outcome {
	if err == nil {
		return Return(v)
	}
	var ae *AbortError
	if errors.As(err, &ae) {
		return Outcome{kind: kindAbort, err: ae}
	}
	return Fail(err)
}

// AbortError carries an intentional status code and message.
type AbortError struct {
	StatusCode int
	Message    string
}

// NewAbortError is useful for functions returning (value, error) that are
// adapted with From.
func NewAbortError(status int, message string) *AbortError {
	return &AbortError{StatusCode: status, Message: message}
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%d - %s", e.StatusCode, e.Message)
}
