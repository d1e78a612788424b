package deno

import "errors"

const Namespace = "deno"

var (
	// ErrChannelClosed is returned by sends and recorded by receives once a
	// message-channel direction has been closed. It is local and recoverable:
	// callers typically treat it as normal shutdown.
	ErrChannelClosed = errors.New(Namespace + ": message channel closed")

	// ErrExecutionFault wraps an error reported by a worker's execution
	// context while it was being driven. It is terminal for that worker.
	ErrExecutionFault = errors.New(Namespace + ": execution context fault")

	// ErrDriveTaskFailure wraps a recovered panic from a worker's driving
	// loop. The failure is converted into the worker's completion result and
	// identifies the worker by id and name; it never crashes the process.
	ErrDriveTaskFailure = errors.New(Namespace + ": worker drive task failed")

	// ErrAlreadyRunning is returned by Run when another goroutine is already
	// driving the same worker.
	ErrAlreadyRunning = errors.New(Namespace + ": worker is already being driven")

	// ErrNetAccessDenied is returned by the fetch capability when the shared
	// state does not allow network access.
	ErrNetAccessDenied = errors.New(Namespace + ": network access denied")

	// ErrInvalidConfig reports an invalid construction option.
	ErrInvalidConfig = errors.New(Namespace + ": invalid configuration")
)
