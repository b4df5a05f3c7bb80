package workerpool

import (
	"errors"
	"fmt"
)

var (
	// ErrAborted is returned when the invocation's context ends first.
	ErrAborted = errors.New("workerpool: invocation aborted")

	// ErrTimeout is returned when a dispatched invocation outlives its timeout.
	ErrTimeout = errors.New("workerpool: invocation timed out")

	// ErrTerminated is returned to invocations still pending when the pool
	// is terminated.
	ErrTerminated = errors.New("workerpool: pool terminated")

	// ErrPoolClosed is returned by Invoke after Terminate.
	ErrPoolClosed = errors.New("workerpool: pool is closed")

	// ErrQueueFull is returned when Config.MaxQueue invocations are already
	// waiting.
	ErrQueueFull = errors.New("workerpool: queue is full")

	// ErrExecution matches every *ExecutionError.
	ErrExecution = errors.New("workerpool: execution failed")

	// ErrUnknownFunction is reported by a worker asked to run a name it does
	// not host.
	ErrUnknownFunction = errors.New("unknown function")

	errWorkerStopped = errors.New("worker stopped")
)

// ExecutionError reports a failure inside a worker: the hosted function
// returned an error, the worker crashed, or it sent something the pool could
// not understand.
type ExecutionError struct {
	WorkerID string
	Name     string
	Message  string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("workerpool: %s failed on %s: %s", e.Name, e.WorkerID, e.Message)
}

func (e *ExecutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExecution}
	}
	return []error{ErrExecution, e.Err}
}

func aborted(cause error) error {
	if cause == nil {
		return ErrAborted
	}
	return fmt.Errorf("%w: %w", ErrAborted, cause)
}
