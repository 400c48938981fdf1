package spawn

import (
	"errors"
	"fmt"
)

// Common errors returned by spawn operations
var (
	// ErrInvalidCommand indicates the program name is empty
	ErrInvalidCommand = errors.New("spawn: empty program name")

	// ErrInvalidWorkingDirectory indicates the configured working directory does not exist
	ErrInvalidWorkingDirectory = errors.New("spawn: working directory does not exist")

	// ErrSpawnFailed indicates the OS process-creation primitive failed
	ErrSpawnFailed = errors.New("spawn: process creation failed")

	// ErrTimeout indicates an operation exhausted its timeout budget
	ErrTimeout = errors.New("spawn: timeout")

	// ErrSignalFailed indicates a signal could not be delivered
	ErrSignalFailed = errors.New("spawn: signal delivery failed")

	// ErrPipelineSpawn indicates Spawn was called on a multi-stage pipeline,
	// which can only be executed as a whole
	ErrPipelineSpawn = errors.New("spawn: pipeline must be run as a whole")

	// ErrStreamRead indicates an OS-level read error on a pipe
	ErrStreamRead = errors.New("spawn: stream read failed")

	// ErrStreamWrite indicates an OS-level write error on a pipe
	ErrStreamWrite = errors.New("spawn: stream write failed")

	// ErrStreamFlush indicates buffered data could not be flushed to the OS
	ErrStreamFlush = errors.New("spawn: stream flush failed")

	// ErrInvalidPid indicates the process has no valid identifier
	ErrInvalidPid = errors.New("spawn: no valid process id")

	// ErrNotPiped indicates the requested stream was not wired as a pipe
	ErrNotPiped = errors.New("spawn: stream not wired as a pipe")

	// ErrClosed indicates the process or stream handle has been closed
	ErrClosed = errors.New("spawn: closed")

	// ErrNonZeroExit indicates a process exited with a non-zero code.
	// The returned error is an *ExitError carrying the full Output.
	ErrNonZeroExit = errors.New("spawn: non-zero exit code")
)

// OpError represents an error from a spawn operation
type OpError struct {
	// Op is the operation that failed
	Op Operation
	// Path is the program name or file path involved in the operation
	Path string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	return fmt.Sprintf("spawn %s %q: %v", e.Op.String(), e.Path, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// ExitError reports a process that ran to completion but exited non-zero.
// The full Output is retained so stdout and stderr stay inspectable on
// failure paths.
type ExitError struct {
	// Output is the complete captured output of the failed process
	Output Output
}

// Error returns a formatted error message including the exit code
func (e *ExitError) Error() string {
	return fmt.Sprintf("spawn: exit code %d", e.Output.ExitCode())
}

// Unwrap returns ErrNonZeroExit so callers can test with errors.Is
func (e *ExitError) Unwrap() error {
	return ErrNonZeroExit
}

// MultiError aggregates multiple errors from bulk operations
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

// Unwrap exposes the accumulated errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}
