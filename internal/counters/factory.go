package counters

import (
	"errors"
	"fmt"

	"github.com/ALEYI17/InfraSight_torus/pkg/types"
)

const (
	BackendSimulated = "simulated"
	BackendLinkMap   = "linkmap"
)

var (
	ErrUnknownBackend = errors.New("unsupported or unknown counter backend")
	ErrUnknownMetric  = errors.New("unknown network metric")
	ErrNotAttached    = errors.New("counter set is not attached")
	ErrBadMetricIndex = errors.New("metric index out of range")
)

func NewCounterFactory(backend string, pinPath string) (types.CounterFactory, error) {
	switch backend {
	case BackendSimulated:
		return NewSimulatedFactory(), nil
	case BackendLinkMap:
		return &LinkMapFactory{PinPath: pinPath}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func lookupMetric(name string) (int, error) {
	idx := types.MetricIndex(name)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	return idx, nil
}

func checkLink(link types.Link) error {
	if link < 0 || int(link) >= types.NumLinks {
		return fmt.Errorf("invalid link direction %d", int(link))
	}
	return nil
}
