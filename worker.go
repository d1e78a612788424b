package deno

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/halvardssm/deno/metrics"
	"github.com/halvardssm/deno/registry"
)

// Phase is a worker's lifecycle state. Transitions are irreversible:
// Created -> Running -> Completed.
type Phase int32

const (
	PhaseCreated Phase = iota
	PhaseRunning
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseRunning:
		return "running"
	default:
		return "completed"
	}
}

// StartupData is the payload a worker boots from. Script, if non-empty, is
// executed during construction, before any user script.
type StartupData struct {
	Script string
}

// workerSeq generates process-wide worker ids.
var workerSeq atomic.Uint64

// Worker pairs one execution context with one message channel and drives the
// context's event loop to completion. The creating side exclusively owns the
// Worker value; the execution context is exclusively owned by the Worker.
//
// Driving is cooperative and single-task: each step dispatches at most one
// pending inbound message or one internal task. One goroutine drives one
// worker; distinct workers run truly in parallel on their own goroutines.
type Worker struct {
	name    string
	id      uint64
	ec      ExecutionContext
	channel *MessageChannel
	state   *State
	logger  *zap.Logger

	phase          atomic.Int32
	driving        atomic.Bool
	closeRequested atomic.Bool

	// completion result; written once by complete before the phase turns
	// Completed, readable after done is closed.
	result error
	done   chan struct{}

	posted    metrics.Counter
	delivered metrics.Counter
	active    metrics.UpDownCounter
	driveTime metrics.Histogram
}

// New creates a worker around the supplied execution context. The startup
// script, if any, is executed immediately. The worker is not registered in
// the resource table until it starts running.
func New(name string, startup StartupData, state *State, ec ExecutionContext, opts ...Option) (*Worker, error) {
	if ec == nil {
		return nil, fmt.Errorf("%w: nil execution context", ErrInvalidConfig)
	}
	if state == nil {
		state = NewState()
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	id := workerSeq.Add(1)
	w := &Worker{
		name:    name,
		id:      id,
		ec:      ec,
		channel: NewMessageChannel(cfg.ChannelCapacity),
		state:   state,
		logger:  state.Logger.With(zap.Uint64("worker_id", id), zap.String("worker", name)),
		done:    make(chan struct{}),

		posted:    state.Metrics.Counter(metrics.MessagesPosted),
		delivered: state.Metrics.Counter(metrics.MessagesDelivered),
		active:    state.Metrics.UpDownCounter(metrics.WorkersActive),
		driveTime: state.Metrics.Histogram(metrics.DriveDuration, metrics.WithUnit("seconds")),
	}

	if startup.Script != "" {
		if err := ec.Execute(startup.Script); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExecutionFault, err)
		}
	}
	return w, nil
}

// ID returns the worker's internally generated numeric id.
func (w *Worker) ID() uint64 { return w.id }

// Name returns the worker's name. Names are not required to be unique.
func (w *Worker) Name() string { return w.name }

// Phase returns the worker's current lifecycle state.
func (w *Worker) Phase() Phase { return Phase(w.phase.Load()) }

// Done returns a channel closed when the worker completes.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Channel returns the worker's message channel. Capabilities bind the
// worker-side endpoints through it.
func (w *Worker) Channel() *MessageChannel { return w.channel }

// Execute runs a script in the worker's execution context.
func (w *Worker) Execute(script string) error {
	return w.ec.Execute(script)
}

// ThreadSafeHandle returns a clonable handle to the worker's message channel.
// The handle may be moved to and shared across goroutines freely.
func (w *Worker) ThreadSafeHandle() Handle {
	return Handle{
		workerID:   w.id,
		workerName: w.name,
		channel:    w.channel,
		posted:     w.posted,
	}
}

// Close issues an external close request: the to-worker direction stops
// accepting sends, already-queued messages remain deliverable, and the
// worker completes at its next idle step. In-flight script execution is not
// forcibly halted.
func (w *Worker) Close() {
	w.closeRequested.Store(true)
	w.channel.Close(ToWorker)
}

// Run drives the worker to completion and returns its final result. The
// first call moves the worker from Created to Running and registers it in
// the resource table. After completion, Run returns the stored result; a
// concurrent second call fails with ErrAlreadyRunning.
//
// Cancelling ctx suspends driving and returns ctx.Err() without completing
// the worker; driving may be resumed with another Run call. An owner wanting
// a timeout races Run against its own timer and, on expiry, calls Close.
func (w *Worker) Run(ctx context.Context) error {
	if w.Phase() == PhaseCompleted {
		return w.result
	}
	if !w.driving.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer w.driving.Store(false)

	if w.phase.CompareAndSwap(int32(PhaseCreated), int32(PhaseRunning)) {
		w.state.Registry.Register(w.id, registry.Entry{Name: w.name})
		w.active.Add(1)
		w.logger.Debug("worker running")
	}

	start := time.Now()
	err := w.drive(ctx)
	w.driveTime.Record(time.Since(start).Seconds())
	return err
}

// drive is the stepping loop. A panic anywhere in the execution context is
// recovered and converted into the worker's completion result, identifying
// the worker; it never escapes to the caller's goroutine.
func (w *Worker) drive(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			fault := fmt.Errorf("%w: worker %d (%s): %v", ErrDriveTaskFailure, w.id, w.name, p)
			w.complete(fault)
			err = w.result
		}
	}()

	for {
		// Grab both wake sources before stepping so no event arriving after
		// an idle verdict is missed.
		arrival := w.channel.Arrival(ToWorker)
		wake := w.ec.Wake()

		out := w.ec.AdvanceOneStep()
		switch out.Kind {
		case StepCompleted:
			if out.Err != nil {
				w.complete(fmt.Errorf("%w: %w", ErrExecutionFault, out.Err))
			} else {
				w.complete(nil)
			}
			return w.result

		case StepProgressed:
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}

		case StepIdle:
			if w.closeRequested.Load() && w.channel.Pending(ToWorker) == 0 {
				w.complete(nil)
				return w.result
			}
			select {
			case <-arrival:
			case <-wake:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// complete records the terminal result exactly once: unregister from the
// resource table, close both channel directions, release instruments.
// complete is only ever invoked from the driving goroutine.
func (w *Worker) complete(res error) {
	w.result = res
	if !w.phase.CompareAndSwap(int32(PhaseRunning), int32(PhaseCompleted)) {
		return
	}
	w.state.Registry.Unregister(w.id)
	w.channel.CloseBoth()
	w.active.Add(-1)
	if res != nil {
		w.logger.Debug("worker completed", zap.Error(res))
	} else {
		w.logger.Debug("worker completed")
	}
	close(w.done)
}
