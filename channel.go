package deno

import (
	"context"
	"sync"
)

// Direction selects one of the two independent pipes of a MessageChannel.
type Direction int

const (
	// ToWorker carries messages from the owner to the worker's script.
	ToWorker Direction = iota
	// FromWorker carries messages from the worker's script to the owner.
	FromWorker
)

func (d Direction) String() string {
	if d == ToWorker {
		return "to-worker"
	}
	return "from-worker"
}

// closedChan is returned whenever a signal must fire immediately.
var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// MessageChannel is a bounded, ordered, bidirectional byte-message pipe
// between a worker and its owner. Each direction is an independent FIFO with
// its own capacity; messages are opaque immutable byte slices.
//
// Per-direction ordering is guaranteed: Receive observes messages in the
// exact order Send calls completed. There is no ordering guarantee across
// directions.
type MessageChannel struct {
	to   *msgQueue
	from *msgQueue
}

// NewMessageChannel creates a channel with the given per-direction capacity.
// Capacity must be positive.
func NewMessageChannel(capacity int) *MessageChannel {
	if capacity <= 0 {
		capacity = DefaultChannelCapacity
	}
	return &MessageChannel{
		to:   newMsgQueue(capacity),
		from: newMsgQueue(capacity),
	}
}

func (c *MessageChannel) queue(dir Direction) *msgQueue {
	if dir == ToWorker {
		return c.to
	}
	return c.from
}

// Send enqueues a message on the given direction. If the direction is at
// capacity the call parks until space frees up, the direction closes, or ctx
// is done. A send on a closed direction fails with ErrChannelClosed.
func (c *MessageChannel) Send(ctx context.Context, dir Direction, msg []byte) error {
	return c.queue(dir).send(ctx, msg)
}

// Receive dequeues the next message from the given direction, parking until
// one is available. Once the direction is closed and drained it returns
// (nil, false, nil) forever. Cancellation returns (nil, false, ctx.Err()).
func (c *MessageChannel) Receive(ctx context.Context, dir Direction) ([]byte, bool, error) {
	return c.queue(dir).receive(ctx)
}

// TryReceive dequeues without parking. It returns (nil, false, nil) when the
// queue is empty but open, and (nil, false, ErrChannelClosed) once the
// direction is closed and drained.
func (c *MessageChannel) TryReceive(dir Direction) ([]byte, bool, error) {
	return c.queue(dir).tryReceive()
}

// Close marks a direction closed, waking every parked send and receive so
// they resolve deterministically. Queued messages remain receivable; only new
// sends are refused. Close is idempotent.
func (c *MessageChannel) Close(dir Direction) {
	c.queue(dir).close()
}

// CloseBoth closes both directions.
func (c *MessageChannel) CloseBoth() {
	c.to.close()
	c.from.close()
}

// Closed reports whether the direction has been closed.
func (c *MessageChannel) Closed(dir Direction) bool {
	return c.queue(dir).isClosed()
}

// Pending reports the number of queued messages in the direction.
func (c *MessageChannel) Pending(dir Direction) int {
	return c.queue(dir).pending()
}

// Arrival returns a channel that is closed on the next enqueue or closure of
// the direction. It is edge-triggered: obtain it before checking for work so
// no event between the check and the park is missed.
func (c *MessageChannel) Arrival(dir Direction) <-chan struct{} {
	return c.queue(dir).arrival()
}

// msgQueue is one bounded FIFO direction. The mutex guards only enqueue and
// dequeue; it is never held while a caller is parked. Parked callers wait on
// generation channels that are closed (broadcast) and replaced whenever the
// relevant state changes.
type msgQueue struct {
	mu       sync.Mutex
	items    [][]byte
	capacity int
	closed   bool
	space    chan struct{} // closed when space frees or queue closes
	avail    chan struct{} // closed when a message arrives or queue closes
}

func newMsgQueue(capacity int) *msgQueue {
	return &msgQueue{
		capacity: capacity,
		space:    make(chan struct{}),
		avail:    make(chan struct{}),
	}
}

// broadcastSpace and broadcastAvail must be called with mu held.
func (q *msgQueue) broadcastSpace() {
	close(q.space)
	q.space = make(chan struct{})
}

func (q *msgQueue) broadcastAvail() {
	close(q.avail)
	q.avail = make(chan struct{})
}

func (q *msgQueue) send(ctx context.Context, msg []byte) error {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return ErrChannelClosed
		}
		if len(q.items) < q.capacity {
			q.items = append(q.items, msg)
			q.broadcastAvail()
			q.mu.Unlock()
			return nil
		}
		wait := q.space
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *msgQueue) receive(ctx context.Context) ([]byte, bool, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			msg := q.items[0]
			q.items = q.items[1:]
			q.broadcastSpace()
			q.mu.Unlock()
			return msg, true, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, false, nil
		}
		wait := q.avail
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

func (q *msgQueue) tryReceive() ([]byte, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) > 0 {
		msg := q.items[0]
		q.items = q.items[1:]
		q.broadcastSpace()
		return msg, true, nil
	}
	if q.closed {
		return nil, false, ErrChannelClosed
	}
	return nil, false, nil
}

func (q *msgQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.broadcastSpace()
	q.broadcastAvail()
}

func (q *msgQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *msgQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *msgQueue) arrival() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return closedChan
	}
	return q.avail
}
