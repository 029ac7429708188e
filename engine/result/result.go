// Package result holds the outcome of a single function invocation.
//
// A Result is either a success carrying a value or a failure carrying a
// FailureStatus and message. Per-cell errors in a calculation cycle are
// always represented as Results, never returned as Go errors.
package result

import (
	"errors"
	"fmt"

	"github.com/on-the-ground/calcgraph_go/shared/helper"
)

// FailureStatus classifies why a calculation did not produce a value.
type FailureStatus string

const (
	// StatusError is used when the function returned an error or panicked.
	StatusError FailureStatus = "ERROR"

	// StatusInvalidInput is used when no function exists for the input type.
	StatusInvalidInput FailureStatus = "INVALID_INPUT"

	// StatusPermissionDenied is used when the user may not see the input's underlying security.
	StatusPermissionDenied FailureStatus = "PERMISSION_DENIED"

	// StatusMissingData is used by functions that could not find the data they need.
	StatusMissingData FailureStatus = "MISSING_DATA"

	// StatusAbandoned is used when the worker pool dropped a task without running it.
	StatusAbandoned FailureStatus = "ABANDONED"
)

// Failure describes a failed calculation.
type Failure struct {
	Status  FailureStatus
	Message string
	Cause   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Status, f.Message)
}

func (f Failure) Unwrap() error {
	return f.Cause
}

// Result is an immutable success-or-failure value.
type Result struct {
	value   any
	failure *Failure
}

// Success wraps a calculated value.
func Success(value any) Result {
	return Result{value: value}
}

// FailureOf builds a failed result with the given status.
func FailureOf(status FailureStatus, format string, args ...any) Result {
	return Result{failure: &Failure{Status: status, Message: fmt.Sprintf(format, args...)}}
}

// FromError converts an error into a failed result.
// An error that already is a Failure keeps its status.
func FromError(err error) Result {
	var f Failure
	if errors.As(err, &f) {
		return Result{failure: &f}
	}
	return Result{failure: &Failure{Status: StatusError, Message: err.Error(), Cause: err}}
}

// FromPanic converts a recovered panic value into a failed result.
func FromPanic(r any) Result {
	if err, ok := r.(error); ok {
		return Result{failure: &Failure{Status: StatusError, Message: "panic: " + err.Error(), Cause: err}}
	}
	return FailureOf(StatusError, "panic: %v", r)
}

// IsSuccess reports whether the result carries a value.
func (r Result) IsSuccess() bool {
	return r.failure == nil
}

// Value returns the calculated value, nil for failures.
func (r Result) Value() any {
	return r.value
}

// Failure returns the failure details, or nil for successes.
func (r Result) Failure() *Failure {
	return r.failure
}

// Status returns the failure status, or "" for successes.
func (r Result) Status() FailureStatus {
	if r.failure == nil {
		return ""
	}
	return r.failure.Status
}

// Err returns the failure as an error, or nil for successes.
func (r Result) Err() error {
	if r.failure == nil {
		return nil
	}
	return *r.failure
}

func (r Result) String() string {
	if r.failure != nil {
		return "Failure(" + r.failure.Error() + ")"
	}
	return fmt.Sprintf("Success(%v)", r.value)
}

// ValueAs returns the success value asserted to T.
func ValueAs[T any](r Result) (T, error) {
	return helper.GetTypedValueOf[T](func() (any, error) {
		if r.failure != nil {
			return nil, *r.failure
		}
		return r.value, nil
	})
}

// From normalises whatever a function returned into a Result.
// Results pass through untouched; other values become successes; errors become failures.
func From(v any, err error) Result {
	if err != nil {
		return FromError(err)
	}
	if res, ok := v.(Result); ok {
		return res
	}
	return Success(v)
}
