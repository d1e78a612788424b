// Package script provides the reference ExecutionContext: an in-process,
// single-threaded event-loop engine. Go cannot evaluate source strings, so
// "scripts" are Go programs registered under a name; Execute runs the program
// whose name matches the script text.
//
// The event loop dispatches one unit of work per AdvanceOneStep, in this
// order: one pending microtask, else one due timer, else one inbound message
// to the registered listener. A context completes naturally once its listener
// has been removed (or was never set) and no internal work remains, and it
// completes through the close path once the inbound channel is closed and
// drained while a listener is still waiting.
package script

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ygrebnov/errorc"

	deno "github.com/halvardssm/deno"
)

// Program is a named script body. It runs synchronously as a single unit and
// may set a message listener, schedule work, and call installed ops through
// its Scope.
type Program func(*Scope) error

// ErrUnknownScript is returned by Execute for an unregistered script name.
var ErrUnknownScript = fmt.Errorf("script: unknown script")

// Context is the reference execution context. It implements both
// deno.ExecutionContext (driving surface) and deno.CapabilityHost
// (installation surface). All internal code runs on the driving goroutine;
// the mutex protects the work queues, which timers and op registration touch
// from other goroutines.
type Context struct {
	mu        sync.Mutex
	programs  map[string]Program
	ops       map[string]deno.OpFn
	listener  func(data []byte)
	micro     []func()
	timers    int // scheduled, not yet fired
	wake      chan struct{}
	completed bool
	result    error
}

// New creates an empty context.
func New() *Context {
	return &Context{
		programs: make(map[string]Program),
		ops:      make(map[string]deno.OpFn),
		wake:     make(chan struct{}),
	}
}

// Register binds a program under a script name. Registration is allowed at
// any time before the program is executed.
func (c *Context) Register(name string, p Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs[name] = p
}

// Initialize installs the capability modules, in order. Part of
// deno.ExecutionContext.
func (c *Context) Initialize(caps []deno.Capability) error {
	for _, capability := range caps {
		if err := capability.Install(c); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs the program registered under the given script name as one
// synchronous unit.
func (c *Context) Execute(script string) error {
	c.mu.Lock()
	p, ok := c.programs[script]
	c.mu.Unlock()
	if !ok {
		return errorc.With(ErrUnknownScript, errorc.String("name", script))
	}
	return p(&Scope{c: c})
}

// AdvanceOneStep dispatches at most one pending unit of work. Part of
// deno.ExecutionContext.
func (c *Context) AdvanceOneStep() deno.StepOutcome {
	c.mu.Lock()
	if c.completed {
		c.mu.Unlock()
		return deno.StepOutcome{Kind: deno.StepCompleted, Err: c.result}
	}

	// Microtasks first; fired timers are queued here as well.
	if len(c.micro) > 0 {
		task := c.micro[0]
		c.micro = c.micro[1:]
		c.mu.Unlock()
		task()
		return deno.StepOutcome{Kind: deno.StepProgressed}
	}

	listener := c.listener
	pendingTimers := c.timers > 0
	getMessage := c.ops[deno.OpWorkerGetMessage]
	c.mu.Unlock()

	if listener == nil {
		if pendingTimers {
			return deno.StepOutcome{Kind: deno.StepIdle}
		}
		// Script ran to completion with no event sources left.
		c.finish(nil)
		return deno.StepOutcome{Kind: deno.StepCompleted}
	}

	if getMessage == nil {
		// A listener without installed messaging ops can never fire.
		return deno.StepOutcome{Kind: deno.StepIdle}
	}
	msg, err := getMessage(context.Background(), nil)
	if err != nil {
		// Inbound channel closed and drained while listening: the worker is
		// not expecting more work.
		c.finish(nil)
		return deno.StepOutcome{Kind: deno.StepCompleted}
	}
	if msg == nil {
		return deno.StepOutcome{Kind: deno.StepIdle}
	}
	listener(msg)
	return deno.StepOutcome{Kind: deno.StepProgressed}
}

// Wake returns the current wake generation channel; it is closed whenever a
// microtask is queued or a timer fires. Part of deno.ExecutionContext.
func (c *Context) Wake() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wake
}

// RegisterOp wires an op. Part of deno.CapabilityHost.
func (c *Context) RegisterOp(name string, fn deno.OpFn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops[name] = fn
}

// ScheduleTask queues fn as a microtask. Part of deno.CapabilityHost.
func (c *Context) ScheduleTask(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.micro = append(c.micro, fn)
	c.broadcastWake()
}

// ScheduleTimer queues fn once d elapses. Part of deno.CapabilityHost.
func (c *Context) ScheduleTimer(d time.Duration, fn func()) {
	c.mu.Lock()
	c.timers++
	c.mu.Unlock()

	time.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.timers--
		c.micro = append(c.micro, fn)
		c.broadcastWake()
	})
}

// HasOp reports whether an op with the given name has been installed.
func (c *Context) HasOp(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.ops[name]
	return ok
}

// broadcastWake must be called with mu held.
func (c *Context) broadcastWake() {
	close(c.wake)
	c.wake = make(chan struct{})
}

func (c *Context) finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return
	}
	c.completed = true
	c.result = err
}

// Scope is the surface a program sees while running: listener management,
// scheduling, and calls into installed ops.
type Scope struct {
	c *Context
}

// OnMessage installs the message listener. Setting it again replaces the
// previous listener.
func (s *Scope) OnMessage(fn func(data []byte)) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.listener = fn
}

// RemoveListener removes the message listener; with no other pending work
// the context then completes naturally.
func (s *Scope) RemoveListener() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.listener = nil
}

// CallOp invokes an installed op by name.
func (s *Scope) CallOp(name string, payload []byte) ([]byte, error) {
	s.c.mu.Lock()
	fn, ok := s.c.ops[name]
	s.c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("script: op %q not installed", name)
	}
	return fn(context.Background(), payload)
}

// PostMessage sends data to the worker's owner through the messaging
// capability.
func (s *Scope) PostMessage(data []byte) error {
	_, err := s.CallOp(deno.OpWorkerPostMessage, data)
	return err
}

// ReportError surfaces an error through the error-surfacing capability.
func (s *Scope) ReportError(msg string) {
	_, _ = s.CallOp(deno.OpReportError, []byte(msg))
}

// QueueTask schedules fn as a microtask running as its own driving step.
func (s *Scope) QueueTask(fn func()) {
	s.c.ScheduleTask(fn)
}

// SetTimeout schedules fn to run as an internal task after d.
func (s *Scope) SetTimeout(d time.Duration, fn func()) {
	s.c.ScheduleTimer(d, fn)
}

// WorkerName returns the worker's name through the runtime capability.
func (s *Scope) WorkerName() string {
	b, err := s.CallOp(deno.OpWorkerName, nil)
	if err != nil {
		return ""
	}
	return string(b)
}
