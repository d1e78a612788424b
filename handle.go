package deno

import (
	"context"

	"github.com/halvardssm/deno/metrics"
)

// Handle is a cross-goroutine-safe reference to a worker's message channel
// plus the worker's identity. Copies are clones: cheap, all observing the
// same channel state, valid until the channel closes. Discarding a copy has
// no side effect on the channel; only an explicit close or the worker's own
// completion closes it.
//
// A Handle never owns the execution context. It may outlive the goroutine
// driving the worker and be used concurrently from any number of goroutines.
type Handle struct {
	workerID   uint64
	workerName string
	channel    *MessageChannel
	posted     metrics.Counter
}

// WorkerID returns the id of the worker this handle refers to.
func (h Handle) WorkerID() uint64 { return h.workerID }

// WorkerName returns the name of the worker this handle refers to.
func (h Handle) WorkerName() string { return h.workerName }

// PostMessage sends msg to the worker. It parks while the to-worker
// direction is at capacity and fails with ErrChannelClosed once it closes.
func (h Handle) PostMessage(ctx context.Context, msg []byte) error {
	if err := h.channel.Send(ctx, ToWorker, msg); err != nil {
		return err
	}
	h.posted.Add(1)
	return nil
}

// GetMessage receives the next message the worker posted. It parks until a
// message arrives; once the from-worker direction is closed and drained it
// returns (nil, false, nil).
func (h Handle) GetMessage(ctx context.Context) ([]byte, bool, error) {
	return h.channel.Receive(ctx, FromWorker)
}
