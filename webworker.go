package deno

// WebWorker is a Worker specialized with the fixed web-worker capability set:
// runtime, web-worker messaging, worker host, error surfacing, timers and
// fetch, installed in exactly that order (see webWorkerCapabilities). It is
// pure composition over Worker; no new concurrency logic.
//
// Each WebWorker is a child of whatever owns its handle: the main program or
// another worker spawning through the worker-host capability.
type WebWorker struct {
	*Worker
}

// NewWebWorker builds a bare worker, installs the capability set into its
// execution context, then executes the startup script (so the script can
// already use the installed ops).
func NewWebWorker(name string, startup StartupData, state *State, ec ExecutionContext, opts ...Option) (*WebWorker, error) {
	w, err := New(name, StartupData{}, state, ec, opts...)
	if err != nil {
		return nil, err
	}
	if err := ec.Initialize(webWorkerCapabilities(w, w.state)); err != nil {
		return nil, err
	}
	if startup.Script != "" {
		if err := w.Execute(startup.Script); err != nil {
			return nil, err
		}
	}
	return &WebWorker{Worker: w}, nil
}
