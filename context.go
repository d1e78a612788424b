package deno

import (
	"context"
	"time"
)

// StepKind classifies the outcome of driving an execution context one step.
type StepKind int

const (
	// StepIdle means the context had no runnable work. The driver parks until
	// a new inbound message or an internal wake arrives.
	StepIdle StepKind = iota
	// StepProgressed means the context dispatched exactly one unit of work
	// (one inbound message or one internal task) and may have more.
	StepProgressed
	// StepCompleted means the context finished, naturally or with an error.
	StepCompleted
)

// StepOutcome is the result of a single AdvanceOneStep call. Err is set only
// with StepCompleted and only when the context finished abnormally.
type StepOutcome struct {
	Kind StepKind
	Err  error
}

// OpFn is a privileged operation installed into an execution context by a
// capability module. Payloads and results are opaque byte sequences.
type OpFn func(ctx context.Context, payload []byte) ([]byte, error)

// CapabilityHost is the registration surface an execution context exposes to
// capability modules during installation. Installation performs no I/O and
// must not park.
type CapabilityHost interface {
	// RegisterOp wires a named operation into the context's script surface.
	RegisterOp(name string, fn OpFn)
	// ScheduleTask enqueues an internal task (microtask) to run as one
	// driving step.
	ScheduleTask(fn func())
	// ScheduleTimer runs fn as an internal task once d has elapsed.
	ScheduleTimer(d time.Duration, fn func())
}

// ExecutionContext is the opaque, externally supplied script-execution
// environment a Worker drives to completion. Implementations own their heap
// and module graph; the core only installs capabilities, executes scripts,
// and advances the context one step at a time.
//
// The context's internal code never runs concurrently with itself: the
// Worker invokes AdvanceOneStep from a single driving goroutine.
type ExecutionContext interface {
	// Initialize installs the capability set, in order. Called exactly once,
	// before any Execute.
	Initialize(caps []Capability) error
	// Execute runs a script to completion as a single unit.
	Execute(script string) error
	// AdvanceOneStep dispatches at most one pending unit of internal work.
	AdvanceOneStep() StepOutcome
	// Wake returns a channel closed when new internal work (a scheduled task
	// or fired timer) may have appeared since the call. Edge-triggered:
	// obtain it before AdvanceOneStep so no wake is missed while parking.
	Wake() <-chan struct{}
}
