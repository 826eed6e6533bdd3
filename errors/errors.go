// Package errors provides the two user-visible error kinds the plan
// cache core can raise: malformed input (BadValue) and a failed
// planner post-condition (InternalError). Operations in this module
// report failure through a normal return value (one of these errors,
// or a false ok flag in the planner) rather than panicking, per the
// core's "no non-local control transfer" policy.
package errors

import (
	"fmt"
	"path"
	"runtime"
)

// Kind distinguishes the two error categories the core can produce.
type Kind int32

const (
	BadValue Kind = iota
	InternalError
)

func (k Kind) String() string {
	switch k {
	case BadValue:
		return "BadValue"
	case InternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Error is the interface every failure returned from this module
// satisfies. It carries enough structure for admin handlers to embed
// {code, errmsg} into a command result without string-parsing.
type Error interface {
	error
	Kind() Kind
	Message() string
	Cause() error
	Object() map[string]interface{}
}

type planErr struct {
	kind    Kind
	message string
	cause   error
	caller  string
}

func (e *planErr) Error() string {
	switch {
	case e.message != "" && e.cause != nil:
		return e.message + " - cause: " + e.cause.Error()
	case e.message != "":
		return e.message
	case e.cause != nil:
		return e.cause.Error()
	default:
		return "unspecified error"
	}
}

func (e *planErr) Kind() Kind       { return e.kind }
func (e *planErr) Message() string  { return e.message }
func (e *planErr) Cause() error     { return e.cause }

func (e *planErr) Object() map[string]interface{} {
	m := map[string]interface{}{
		"code":    int32(e.kind),
		"message": e.message,
		"caller":  e.caller,
	}
	if e.cause != nil {
		m["cause"] = e.cause.Error()
	}
	return m
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", path.Base(file), line)
}

// NewBadValueError reports malformed input: an empty required field,
// a value of the wrong type, an empty object where one must be
// non-empty, or a key absent from a cache.
func NewBadValueError(format string, args ...interface{}) Error {
	return &planErr{kind: BadValue, message: fmt.Sprintf(format, args...), caller: caller(1)}
}

// NewInternalError reports a failed planner post-condition, such as a
// plan-stats tree that encountered an operator it does not recognize.
func NewInternalError(format string, args ...interface{}) Error {
	return &planErr{kind: InternalError, message: fmt.Sprintf(format, args...), caller: caller(1)}
}

// NewPlanError wraps a lower-level error as an InternalError, unless
// it is already one of our own Errors, in which case it is passed
// through unchanged, so call sites do not need to type-switch before
// wrapping.
func NewPlanError(cause error, msg string) Error {
	if e, ok := cause.(Error); ok {
		return e
	}
	return &planErr{kind: InternalError, message: msg, cause: cause, caller: caller(1)}
}
