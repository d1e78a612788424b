package deno

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CapabilityKind enumerates the closed set of capability modules that can be
// installed into an execution context.
type CapabilityKind int

const (
	CapRuntime CapabilityKind = iota
	CapWebWorker
	CapWorkerHost
	CapErrors
	CapTimers
	CapFetch
)

func (k CapabilityKind) String() string {
	switch k {
	case CapRuntime:
		return "runtime"
	case CapWebWorker:
		return "web-worker"
	case CapWorkerHost:
		return "worker-host"
	case CapErrors:
		return "errors"
	case CapTimers:
		return "timers"
	default:
		return "fetch"
	}
}

// Op names installed by the capability modules.
const (
	OpWorkerName        = "op_worker_name"
	OpWorkerID          = "op_worker_id"
	OpWorkerPostMessage = "op_worker_post_message"
	OpWorkerGetMessage  = "op_worker_get_message"
	OpWorkerClose       = "op_worker_close"
	OpSpawnWorker       = "op_spawn_worker"
	OpHostPostMessage   = "op_host_post_message"
	OpHostGetMessage    = "op_host_get_message"
	OpHostTerminate     = "op_host_terminate"
	OpReportError       = "op_report_error"
	OpTimerStart        = "op_timer_start"
	OpFetch             = "op_fetch"
)

// Capability is one unit of externally defined operations wired into an
// execution context at specialization time. The set is closed; each variant
// installs a fixed group of ops against the worker it is bound to.
// Installation performs no I/O and cannot park.
type Capability struct {
	kind   CapabilityKind
	worker *Worker
	state  *State
}

// Kind returns the capability's variant.
func (c Capability) Kind() CapabilityKind { return c.kind }

// Install wires the capability's operations into the host.
func (c Capability) Install(host CapabilityHost) error {
	switch c.kind {
	case CapRuntime:
		c.installRuntime(host)
	case CapWebWorker:
		c.installWebWorker(host)
	case CapWorkerHost:
		c.installWorkerHost(host)
	case CapErrors:
		c.installErrors(host)
	case CapTimers:
		c.installTimers(host)
	case CapFetch:
		c.installFetch(host)
	default:
		return fmt.Errorf("%w: unknown capability kind %d", ErrInvalidConfig, c.kind)
	}
	return nil
}

// webWorkerCapabilities is the fixed installation order of the web-worker
// specialization: runtime, web-worker messaging, worker host, error
// surfacing, timers, fetch. Error surfacing installs before timers and fetch
// because those report failures through it. The order is part of the
// contract, not incidental.
func webWorkerCapabilities(w *Worker, st *State) []Capability {
	return []Capability{
		{kind: CapRuntime, worker: w, state: st},
		{kind: CapWebWorker, worker: w, state: st},
		{kind: CapWorkerHost, worker: w, state: st},
		{kind: CapErrors, worker: w, state: st},
		{kind: CapTimers, worker: w, state: st},
		{kind: CapFetch, worker: w, state: st},
	}
}

func (c Capability) installRuntime(host CapabilityHost) {
	w := c.worker
	host.RegisterOp(OpWorkerName, func(context.Context, []byte) ([]byte, error) {
		return []byte(w.Name()), nil
	})
	host.RegisterOp(OpWorkerID, func(context.Context, []byte) ([]byte, error) {
		return []byte(strconv.FormatUint(w.ID(), 10)), nil
	})
}

// installWebWorker binds the script-side endpoints of the message channel:
// the script posts on the from-worker direction and polls the to-worker
// direction without parking (the driving loop parks on its behalf).
func (c Capability) installWebWorker(host CapabilityHost) {
	w := c.worker
	host.RegisterOp(OpWorkerPostMessage, func(ctx context.Context, payload []byte) ([]byte, error) {
		if err := w.channel.Send(ctx, FromWorker, payload); err != nil {
			return nil, err
		}
		w.delivered.Add(1)
		return nil, nil
	})
	host.RegisterOp(OpWorkerGetMessage, func(_ context.Context, _ []byte) ([]byte, error) {
		msg, ok, err := w.channel.TryReceive(ToWorker)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return msg, nil
	})
	host.RegisterOp(OpWorkerClose, func(context.Context, []byte) ([]byte, error) {
		w.Close()
		return nil, nil
	})
}

// installWorkerHost lets a script spawn and talk to child workers through the
// state's supervisor. Child handles are tracked per parent worker.
func (c Capability) installWorkerHost(host CapabilityHost) {
	st := c.state
	logger := c.worker.logger

	var mu sync.Mutex
	children := make(map[uint64]childWorker)

	host.RegisterOp(OpSpawnWorker, func(_ context.Context, payload []byte) ([]byte, error) {
		if st.Supervisor == nil {
			return nil, fmt.Errorf("%w: no supervisor attached for worker spawning", ErrInvalidConfig)
		}
		name := string(payload)
		child, err := st.Supervisor.Spawn(name, StartupData{}, st)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		children[child.ID()] = childWorker{worker: child, handle: child.ThreadSafeHandle()}
		mu.Unlock()
		logger.Debug("spawned child worker", zap.Uint64("child_id", child.ID()))
		return []byte(strconv.FormatUint(child.ID(), 10)), nil
	})

	lookup := func(payload []byte) (childWorker, []byte, error) {
		id, rest, err := splitWorkerRef(payload)
		if err != nil {
			return childWorker{}, nil, err
		}
		mu.Lock()
		cw, ok := children[id]
		mu.Unlock()
		if !ok {
			return childWorker{}, nil, fmt.Errorf("%w: unknown child worker %d", ErrInvalidConfig, id)
		}
		return cw, rest, nil
	}

	host.RegisterOp(OpHostPostMessage, func(ctx context.Context, payload []byte) ([]byte, error) {
		cw, msg, err := lookup(payload)
		if err != nil {
			return nil, err
		}
		return nil, cw.handle.PostMessage(ctx, msg)
	})
	host.RegisterOp(OpHostGetMessage, func(_ context.Context, payload []byte) ([]byte, error) {
		cw, _, err := lookup(payload)
		if err != nil {
			return nil, err
		}
		msg, ok, err := cw.worker.channel.TryReceive(FromWorker)
		if err != nil || !ok {
			return nil, err
		}
		return msg, nil
	})
	host.RegisterOp(OpHostTerminate, func(_ context.Context, payload []byte) ([]byte, error) {
		cw, _, err := lookup(payload)
		if err != nil {
			return nil, err
		}
		cw.worker.Close()
		return nil, nil
	})
}

func (c Capability) installErrors(host CapabilityHost) {
	w := c.worker
	st := c.state
	host.RegisterOp(OpReportError, func(_ context.Context, payload []byte) ([]byte, error) {
		w.logger.Error("script error", zap.ByteString("detail", payload))
		if st.OnScriptError != nil {
			st.OnScriptError(w.ID(), w.Name(), payload)
		}
		return nil, nil
	})
}

// installTimers schedules internal tasks through the host. The fired task is
// dispatched as one driving step like any other internal work.
func (c Capability) installTimers(host CapabilityHost) {
	host.RegisterOp(OpTimerStart, func(_ context.Context, payload []byte) ([]byte, error) {
		ms, err := strconv.ParseInt(strings.TrimSpace(string(payload)), 10, 64)
		if err != nil || ms < 0 {
			return nil, fmt.Errorf("%w: invalid timer delay %q", ErrInvalidConfig, payload)
		}
		host.ScheduleTimer(time.Duration(ms)*time.Millisecond, func() {})
		return nil, nil
	})
}

func (c Capability) installFetch(host CapabilityHost) {
	st := c.state
	host.RegisterOp(OpFetch, func(ctx context.Context, payload []byte) ([]byte, error) {
		if !st.AllowNet {
			return nil, ErrNetAccessDenied
		}
		url := strings.TrimSpace(string(payload))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := st.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
		}
		return body, nil
	})
}

type childWorker struct {
	worker *Worker
	handle Handle
}

// splitWorkerRef parses "id" or "id msg" payloads used by the worker-host
// ops: a decimal child worker id, optionally followed by a space and the
// message body.
func splitWorkerRef(payload []byte) (uint64, []byte, error) {
	s := string(payload)
	idPart := s
	var rest []byte
	if i := strings.IndexByte(s, ' '); i >= 0 {
		idPart = s[:i]
		rest = []byte(s[i+1:])
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: invalid worker reference %q", ErrInvalidConfig, idPart)
	}
	return id, rest, nil
}
