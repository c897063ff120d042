package counters

import (
	"fmt"

	"github.com/ALEYI17/InfraSight_torus/pkg/logutil"
	"github.com/ALEYI17/InfraSight_torus/pkg/types"
	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/rlimit"
	"go.uber.org/zap"
)

// LinkMapFactory creates counter sets backed by a pinned BPF array map that an
// external link accounting program keeps up to date. Entry
// metric*NumLinks+link holds the running count of one catalogue metric on one
// link direction; per-CPU arrays are summed.
type LinkMapFactory struct {
	PinPath string
}

func (f *LinkMapFactory) NewCounterSet() (types.CounterSet, error) {
	return &LinkMapSet{pinPath: f.PinPath}, nil
}

type LinkMapSet struct {
	pinPath  string
	m        *ebpf.Map
	perCPU   bool
	metrics  []int
	baseline [][types.NumLinks]uint64
}

func mapKey(metric int, link types.Link) uint32 {
	return uint32(metric*types.NumLinks + int(link))
}

func (s *LinkMapSet) AddMetric(name string) error {
	idx, err := lookupMetric(name)
	if err != nil {
		return err
	}
	s.metrics = append(s.metrics, idx)
	s.baseline = append(s.baseline, [types.NumLinks]uint64{})
	return nil
}

func (s *LinkMapSet) Attach() error {
	logger := logutil.GetLogger()

	if err := rlimit.RemoveMemlock(); err != nil {
		return err
	}

	m, err := ebpf.LoadPinnedMap(s.pinPath, &ebpf.LoadPinOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("load pinned map %s: %w", s.pinPath, err)
	}

	switch m.Type() {
	case ebpf.Array:
	case ebpf.PerCPUArray:
		s.perCPU = true
	default:
		m.Close()
		return fmt.Errorf("pinned map %s is a %s, want an array", s.pinPath, m.Type())
	}

	need := uint32(len(types.Metrics) * types.NumLinks)
	if m.KeySize() != 4 || m.ValueSize() != 8 || m.MaxEntries() < need {
		m.Close()
		return fmt.Errorf("pinned map %s has key %d value %d entries %d, want 4/8/%d",
			s.pinPath, m.KeySize(), m.ValueSize(), m.MaxEntries(), need)
	}

	s.m = m
	logger.Info("attached link counters", zap.String("pin", s.pinPath), zap.Bool("per_cpu", s.perCPU))
	return nil
}

func (s *LinkMapSet) lookup(metric int, link types.Link) (uint64, error) {
	key := mapKey(metric, link)
	if !s.perCPU {
		var v uint64
		if err := s.m.Lookup(key, &v); err != nil {
			return 0, err
		}
		return v, nil
	}
	var perCPU []uint64
	if err := s.m.Lookup(key, &perCPU); err != nil {
		return 0, err
	}
	var sum uint64
	for _, v := range perCPU {
		sum += v
	}
	return sum, nil
}

// ResetStart records the current map values as the zero point; the shared map
// itself is never written.
func (s *LinkMapSet) ResetStart() error {
	if s.m == nil {
		return ErrNotAttached
	}
	for i, metric := range s.metrics {
		for _, link := range types.Links {
			v, err := s.lookup(metric, link)
			if err != nil {
				return fmt.Errorf("reset %s on %s: %w", types.Metrics[metric], link, err)
			}
			s.baseline[i][link] = v
		}
	}
	return nil
}

func (s *LinkMapSet) Read(metric int, link types.Link) (uint64, error) {
	if s.m == nil {
		return 0, ErrNotAttached
	}
	if metric < 0 || metric >= len(s.metrics) {
		return 0, fmt.Errorf("%w: %d of %d", ErrBadMetricIndex, metric, len(s.metrics))
	}
	if err := checkLink(link); err != nil {
		return 0, err
	}
	v, err := s.lookup(s.metrics[metric], link)
	if err != nil {
		return 0, err
	}
	return v - s.baseline[metric][link], nil
}

func (s *LinkMapSet) NumMetrics() int {
	return len(s.metrics)
}

func (s *LinkMapSet) Close() error {
	if s.m == nil {
		return nil
	}
	err := s.m.Close()
	s.m = nil
	return err
}
