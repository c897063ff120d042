package types

// CounterSet is a set of hardware network counters owned by one process.
type CounterSet interface {
	AddMetric(name string) error
	// Attach binds the set to every torus link direction.
	Attach() error
	ResetStart() error
	Read(metric int, link Link) (uint64, error)
	NumMetrics() int
	Close() error
}

type CounterFactory interface {
	NewCounterSet() (CounterSet, error)
}
