package service

import (
	"errors"
	"fmt"
)

// PreconditionError reports a required file or resource that is missing, or
// in a state that makes it unsafe to start, before any work was attempted.
type PreconditionError struct {
	Resource string
	Path     string
	// Problem defaults to "not found".
	Problem string
}

func (e PreconditionError) Error() string {
	problem := e.Problem
	if problem == "" {
		problem = "not found"
	}
	if e.Path == "" {
		return fmt.Sprintf("precondition failed: %s %s", e.Resource, problem)
	}
	return fmt.Sprintf("precondition failed: %s %s at %s", e.Resource, problem, e.Path)
}

// Is enables errors.Is matching on PreconditionError.
func (e PreconditionError) Is(target error) bool {
	switch target.(type) {
	case PreconditionError, *PreconditionError:
		return true
	}
	return false
}

// ErrPrecondition is the sentinel for precondition failures.
var ErrPrecondition = PreconditionError{}

// SystemicFailureError is returned when the load stops because every write so
// far has failed, which points at the destination rather than the records.
type SystemicFailureError struct {
	Failures  int
	Attempted int
	LastErr   error
}

func (e SystemicFailureError) Error() string {
	msg := fmt.Sprintf("systemic failure: %d consecutive writes failed with no success", e.Failures)
	if e.LastErr != nil {
		msg += ": " + e.LastErr.Error()
	}
	return msg
}

func (e SystemicFailureError) Unwrap() error {
	return e.LastErr
}

// Is enables errors.Is matching on SystemicFailureError.
func (e SystemicFailureError) Is(target error) bool {
	switch target.(type) {
	case SystemicFailureError, *SystemicFailureError:
		return true
	}
	return false
}

// ErrSystemicFailure is the sentinel for circuit breaker trips.
var ErrSystemicFailure = SystemicFailureError{}

// Hint returns operator guidance for err, or "" when there is none.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrSystemicFailure):
		return "The destination rejected every write. Check the store credentials and " +
			"connectivity, and that the relaxed access policy was actually deployed."
	case errors.Is(err, ErrPrecondition):
		return "A required file is missing or left over from an interrupted run. Run the previous " +
			"pipeline step, fix the configured path, or restore and redeploy a leftover policy backup."
	}
	return ""
}
