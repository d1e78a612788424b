// Package metrics defines the pluggable instrumentation surface of the
// worker core and two reference implementations: a no-op provider (the
// default) and a basic in-memory provider for tests and lightweight apps.
package metrics

// Instrument names recorded by the worker core.
const (
	MessagesPosted    = "worker.messages.posted"
	MessagesDelivered = "worker.messages.delivered"
	WorkersActive     = "worker.active"
	DriveDuration     = "worker.drive.duration"
)

// Provider constructs instruments. Implementations must be safe for
// concurrent use. The interface is intentionally minimal; add optional
// interfaces rather than growing this one.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Counter records monotonic counts (messages posted, workers started).
type Counter interface {
	Add(n int64)
}

// UpDownCounter records values that move both ways (workers currently live).
type UpDownCounter interface {
	Add(n int64)
}

// Histogram records a distribution of float64 measurements (drive durations
// in seconds).
type Histogram interface {
	Record(v float64)
}

// InstrumentConfig carries advisory instrument metadata.
type InstrumentConfig struct {
	Description string
	Unit        string
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

// WithDescription sets an advisory description for the instrument.
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets an advisory unit, e.g. "1" or "seconds".
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}

func applyOptions(opts []InstrumentOption) InstrumentConfig {
	var cfg InstrumentConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}
