package deno

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/halvardssm/deno/metrics"
	"github.com/halvardssm/deno/registry"
)

// State is the configuration shared between a worker, its capabilities, and
// the surrounding system. It is shared by pointer; every field is either
// immutable after construction or internally synchronized. Workers never
// share mutable state with outside goroutines except through their message
// channel and this explicitly shared configuration.
type State struct {
	// Logger receives lifecycle and driving events. Defaults to a nop logger.
	Logger *zap.Logger

	// Metrics constructs the instruments the core records into. Defaults to
	// the noop provider.
	Metrics metrics.Provider

	// Registry is the resource table live workers register into.
	Registry *registry.Table

	// AllowNet gates the fetch capability.
	AllowNet bool

	// HTTPClient serves the fetch capability. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// OnScriptError, if set, receives errors surfaced by worker scripts
	// through the error-surfacing capability.
	OnScriptError func(workerID uint64, workerName string, msg []byte)

	// Supervisor, if set, lets the worker-host capability spawn and drive
	// child workers.
	Supervisor *Supervisor
}

// StateOption mutates a State under construction.
type StateOption func(*State)

// WithLogger sets the shared logger.
func WithLogger(l *zap.Logger) StateOption {
	return func(s *State) { s.Logger = l }
}

// WithMetrics sets the metrics provider.
func WithMetrics(p metrics.Provider) StateOption {
	return func(s *State) { s.Metrics = p }
}

// WithRegistry sets the resource table. Useful when several states share one
// supervisor-owned table.
func WithRegistry(t *registry.Table) StateOption {
	return func(s *State) { s.Registry = t }
}

// WithAllowNet enables the fetch capability.
func WithAllowNet() StateOption {
	return func(s *State) { s.AllowNet = true }
}

// WithHTTPClient sets the client used by the fetch capability.
func WithHTTPClient(c *http.Client) StateOption {
	return func(s *State) { s.HTTPClient = c }
}

// WithErrorHandler routes script-surfaced errors to fn.
func WithErrorHandler(fn func(workerID uint64, workerName string, msg []byte)) StateOption {
	return func(s *State) { s.OnScriptError = fn }
}

// WithSupervisor attaches the supervisor used by the worker-host capability.
func WithSupervisor(sup *Supervisor) StateOption {
	return func(s *State) { s.Supervisor = sup }
}

// NewState creates a State with defaults applied.
func NewState(opts ...StateOption) *State {
	s := &State{}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	if s.Metrics == nil {
		s.Metrics = metrics.Noop()
	}
	if s.Registry == nil {
		s.Registry = registry.New()
	}
	if s.HTTPClient == nil {
		s.HTTPClient = http.DefaultClient
	}
	return s
}
