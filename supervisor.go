package deno

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/halvardssm/deno/registry"
)

// ContextFactory produces a fresh execution context for each spawned worker.
type ContextFactory func() ExecutionContext

// Supervisor owns the resource table and drives workers in parallel, one
// dedicated goroutine per worker. The owner goroutine and any handle holders
// operate independently; they talk to workers only through message channels.
//
// A faulted worker never corrupts its siblings: each driver converts its own
// failures into that worker's result, and Wait reports them as an aggregate
// identifying every offending worker.
type Supervisor struct {
	logger   *zap.Logger
	registry *registry.Table
	factory  ContextFactory

	ctx    context.Context
	cancel context.CancelFunc

	drivers sync.WaitGroup

	mu       sync.Mutex
	live     map[uint64]*Worker
	failures []error

	closeOnce sync.Once
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithSupervisorLogger sets the supervisor's logger.
func WithSupervisorLogger(l *zap.Logger) SupervisorOption {
	return func(s *Supervisor) { s.logger = l }
}

// WithSupervisorRegistry sets the resource table the supervisor owns.
func WithSupervisorRegistry(t *registry.Table) SupervisorOption {
	return func(s *Supervisor) { s.registry = t }
}

// WithContextFactory enables Spawn by providing fresh execution contexts.
func WithContextFactory(f ContextFactory) SupervisorOption {
	return func(s *Supervisor) { s.factory = f }
}

// NewSupervisor creates a supervisor whose drivers run under ctx.
func NewSupervisor(ctx context.Context, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{live: make(map[uint64]*Worker)}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.registry == nil {
		s.registry = registry.New()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	return s
}

// Registry returns the supervisor-owned resource table.
func (s *Supervisor) Registry() *registry.Table { return s.registry }

// Go launches a dedicated driving goroutine for w and tracks it until
// completion. The worker's failure, if any, is collected for Wait.
func (s *Supervisor) Go(w *Worker) {
	s.mu.Lock()
	s.live[w.ID()] = w
	s.mu.Unlock()

	s.logger.Info("driving worker",
		zap.Uint64("worker_id", w.ID()), zap.String("worker", w.Name()))

	s.drivers.Add(1)
	go func() {
		defer s.drivers.Done()
		err := w.Run(s.ctx)

		s.mu.Lock()
		delete(s.live, w.ID())
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			if !errors.Is(err, ErrDriveTaskFailure) {
				// Drive failures already identify the worker.
				err = fmt.Errorf("worker %d (%q): %w", w.ID(), w.Name(), err)
			}
			s.failures = append(s.failures, err)
		}
		s.mu.Unlock()
	}()
}

// Spawn builds a web worker around a factory-provided execution context and
// starts driving it. It is the backing of the worker-host spawn op.
func (s *Supervisor) Spawn(name string, startup StartupData, state *State, opts ...Option) (*Worker, error) {
	if s.factory == nil {
		return nil, fmt.Errorf("%w: supervisor has no execution context factory", ErrInvalidConfig)
	}
	ww, err := NewWebWorker(name, startup, state, s.factory(), opts...)
	if err != nil {
		return nil, err
	}
	s.Go(ww.Worker)
	return ww.Worker, nil
}

// Wait blocks until every launched driver has returned and reports the
// aggregate of per-worker failures, each one naming its worker. A nil result
// means every worker completed cleanly.
func (s *Supervisor) Wait() error {
	s.drivers.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.failures...)
}

// Close shuts the supervisor down exactly once: issue a close request to
// every live worker, wait for their drivers to finish, then release the
// context. The sequence is deterministic; pending failures remain available
// through Wait.
func (s *Supervisor) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		workers := make([]*Worker, 0, len(s.live))
		for _, w := range s.live {
			workers = append(workers, w)
		}
		s.mu.Unlock()

		for _, w := range workers {
			w.Close()
		}
		s.drivers.Wait()
		s.cancel()
		s.logger.Info("supervisor closed")
	})
}
