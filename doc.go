// Package deno implements an isolated-worker execution and messaging core:
// workers that run script-level code in a logically separate execution
// context, communicate only through a bounded, ordered message channel, and
// tear down deterministically behind a single awaitable handle.
//
// Components
//   - MessageChannel: bounded, ordered, bidirectional byte-message pipe
//     between a worker and its owner. Per-direction FIFO; closing a
//     direction wakes every parked send and receive.
//   - Handle: clonable, goroutine-safe reference to a channel's endpoints
//     plus the worker's identity. Discarding clones has no side effect.
//   - Worker: owns one ExecutionContext and one MessageChannel and drives
//     the context's event loop, one unit of work per step, until it
//     completes naturally, by error, or by an external close request.
//   - WebWorker: a Worker composed with the fixed capability set (runtime,
//     messaging, worker host, error surfacing, timers, fetch).
//   - Supervisor: drives many workers truly in parallel and owns the
//     resource table used for cleanup bookkeeping.
//
// Concurrency model
// One goroutine drives one worker; the context's internal code never runs
// concurrently with itself. Owners and handle holders run on any goroutine
// and communicate exclusively through the message channel. The only state
// mutated from multiple goroutines is the channel's queues, guarded by locks
// held just for enqueue/dequeue, never across a park.
//
// Completion
// A worker completes exactly once. Completion unregisters the worker from
// the resource table, closes both channel directions, and resolves Run with
// a single result: nil, an ErrExecutionFault-wrapped context error, or an
// ErrDriveTaskFailure-wrapped recovered panic naming the worker.
//
// The engine is pluggable: anything implementing ExecutionContext can be
// driven. Package script provides the in-process reference implementation
// used throughout the tests.
package deno
