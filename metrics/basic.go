package metrics

import (
	"math"
	"sync"
	"sync/atomic"
)

// Basic is a simple in-memory Provider. Instruments are created on demand by
// name and reused for the same name; metadata is stored for introspection
// only. Safe for concurrent use.
type Basic struct {
	mu         sync.Mutex
	counters   map[string]*BasicCounter
	updowns    map[string]*BasicCounter
	histograms map[string]*BasicHistogram
	meta       map[string]InstrumentConfig
}

// NewBasic constructs an empty Basic provider.
func NewBasic() *Basic {
	return &Basic{
		counters:   make(map[string]*BasicCounter),
		updowns:    make(map[string]*BasicCounter),
		histograms: make(map[string]*BasicHistogram),
		meta:       make(map[string]InstrumentConfig),
	}
}

// Counter returns the monotonic counter registered under name.
func (p *Basic) Counter(name string, opts ...InstrumentOption) Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.counters[name]
	if !ok {
		c = &BasicCounter{}
		p.counters[name] = c
		p.meta[name] = applyOptions(opts)
	}
	return c
}

// UpDownCounter returns the up/down counter registered under name.
func (p *Basic) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.updowns[name]
	if !ok {
		c = &BasicCounter{}
		p.updowns[name] = c
		p.meta[name] = applyOptions(opts)
	}
	return c
}

// Histogram returns the histogram registered under name.
func (p *Basic) Histogram(name string, opts ...InstrumentOption) Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.histograms[name]
	if !ok {
		h = &BasicHistogram{}
		p.histograms[name] = h
		p.meta[name] = applyOptions(opts)
	}
	return h
}

// CounterValue returns the current value of the named counter, or zero if it
// was never created.
func (p *Basic) CounterValue(name string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c.Value()
	}
	return 0
}

// UpDownValue returns the current value of the named up/down counter.
func (p *Basic) UpDownValue(name string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.updowns[name]; ok {
		return c.Value()
	}
	return 0
}

// HistogramCount returns the number of recordings into the named histogram.
func (p *Basic) HistogramCount(name string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[name]; ok {
		return h.Count()
	}
	return 0
}

// BasicCounter is an atomic int64 instrument used for both counters and
// up/down counters.
type BasicCounter struct {
	v atomic.Int64
}

func (c *BasicCounter) Add(n int64) { c.v.Add(n) }

// Value returns the current count.
func (c *BasicCounter) Value() int64 { return c.v.Load() }

// BasicHistogram records count and sum; enough for asserting in tests.
type BasicHistogram struct {
	count atomic.Int64
	sum   atomic.Uint64 // float64 bits, CAS-accumulated
}

func (h *BasicHistogram) Record(v float64) {
	h.count.Add(1)
	for {
		old := h.sum.Load()
		next := math.Float64bits(math.Float64frombits(old) + v)
		if h.sum.CompareAndSwap(old, next) {
			return
		}
	}
}

// Count returns the number of recorded measurements.
func (h *BasicHistogram) Count() int64 { return h.count.Load() }

// Sum returns the sum of recorded measurements.
func (h *BasicHistogram) Sum() float64 { return math.Float64frombits(h.sum.Load()) }
