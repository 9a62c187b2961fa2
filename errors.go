package drptestbones

import (
	"errors"
	"fmt"

	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/backbone"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/exitcodes"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/fitsdiff"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/queue"
)

// RuntimeError represents an operational error that should lead to exit code 2
// Examples include a bad suite file, a missing queue directory or an unset OSIRIS_ROOT.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError represents a backbone failure or a product mismatch (exit code 1)
type TestFailureError struct {
	Message string
	Err     error
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %s", e.Message)
}

func (e *TestFailureError) Unwrap() error {
	return e.Err
}

// NewTestFailureError creates a new TestFailureError
func NewTestFailureError(message string) *TestFailureError {
	return &TestFailureError{Message: message}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}

// Classify wraps err from the queue, backbone or fitsdiff packages into a
// RuntimeError or a TestFailureError. Errors that are already classified
// are returned unchanged, as is nil.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case IsRuntimeError(err), IsTestFailureError(err):
		return err
	case backbone.IsBackboneError(err), fitsdiff.IsMismatchError(err):
		return &TestFailureError{Message: err.Error(), Err: err}
	default:
		return NewRuntimeError(err)
	}
}

// ExitCode maps err to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case IsRuntimeError(err):
		return exitcodes.RuntimeErr
	case IsTestFailureError(err):
		return exitcodes.TestFailure
	case queue.IsValidationError(err), backbone.IsConfigError(err), backbone.IsQueueDirError(err):
		return exitcodes.RuntimeErr
	default:
		return exitcodes.TestFailure
	}
}
