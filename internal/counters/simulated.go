package counters

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ALEYI17/InfraSight_torus/pkg/types"
)

// SimulatedFactory hands out software counter sets whose traffic is injected
// with Add. It stands in for link hardware in tests and in the demo runner.
type SimulatedFactory struct {
	// FailAttach makes Attach fail on every set created afterwards.
	FailAttach bool

	mu   sync.Mutex
	sets []*SimulatedSet
}

func NewSimulatedFactory() *SimulatedFactory {
	return &SimulatedFactory{}
}

func (f *SimulatedFactory) NewCounterSet() (types.CounterSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &SimulatedSet{failAttach: f.FailAttach}
	f.sets = append(f.sets, s)
	return s, nil
}

// Set returns the most recently created set, or nil if none was created.
func (f *SimulatedFactory) Set() *SimulatedSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sets) == 0 {
		return nil
	}
	return f.sets[len(f.sets)-1]
}

func (f *SimulatedFactory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sets)
}

type SimulatedSet struct {
	mu         sync.Mutex
	metrics    []int
	values     [][types.NumLinks]uint64
	attached   bool
	running    bool
	closed     bool
	failAttach bool
	reads      int
	resets     int
}

func (s *SimulatedSet) AddMetric(name string) error {
	idx, err := lookupMetric(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, idx)
	s.values = append(s.values, [types.NumLinks]uint64{})
	return nil
}

func (s *SimulatedSet) Attach() error {
	if s.failAttach {
		return errors.New("simulated link attach failure")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = true
	return nil
}

func (s *SimulatedSet) ResetStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return ErrNotAttached
	}
	for i := range s.values {
		s.values[i] = [types.NumLinks]uint64{}
	}
	s.running = true
	s.resets++
	return nil
}

// Add counts delta units of traffic for the metric-th configured metric on
// link. Traffic before the first ResetStart is not counted.
func (s *SimulatedSet) Add(metric int, link types.Link, delta uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || metric < 0 || metric >= len(s.values) || checkLink(link) != nil {
		return
	}
	s.values[metric][link] += delta
}

func (s *SimulatedSet) Read(metric int, link types.Link) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return 0, ErrNotAttached
	}
	if metric < 0 || metric >= len(s.values) {
		return 0, fmt.Errorf("%w: %d of %d", ErrBadMetricIndex, metric, len(s.values))
	}
	if err := checkLink(link); err != nil {
		return 0, err
	}
	s.reads++
	return s.values[metric][link], nil
}

func (s *SimulatedSet) NumMetrics() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.metrics)
}

// Reads returns the number of successful Read calls.
func (s *SimulatedSet) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *SimulatedSet) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

func (s *SimulatedSet) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *SimulatedSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.running = false
	return nil
}
