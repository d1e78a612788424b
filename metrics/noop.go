package metrics

// Noop returns a Provider that discards every measurement. It is the default
// provider of a worker State.
func Noop() Provider { return noopProvider{} }

type noopProvider struct{}

func (noopProvider) Counter(string, ...InstrumentOption) Counter             { return noopCounter{} }
func (noopProvider) UpDownCounter(string, ...InstrumentOption) UpDownCounter { return noopCounter{} }
func (noopProvider) Histogram(string, ...InstrumentOption) Histogram         { return noopHistogram{} }

type noopCounter struct{}

func (noopCounter) Add(int64) {}

type noopHistogram struct{}

func (noopHistogram) Record(float64) {}
