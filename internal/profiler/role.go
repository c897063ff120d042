package profiler

import (
	"context"

	"github.com/ALEYI17/InfraSight_torus/internal/region"
	"github.com/ALEYI17/InfraSight_torus/internal/report"
	"github.com/ALEYI17/InfraSight_torus/pkg/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type RoleKind int

const (
	RoleOrdinary RoleKind = iota
	RoleTopologyRoot
	RoleTopologyRootAndMaster
)

func (k RoleKind) String() string {
	switch k {
	case RoleOrdinary:
		return "ordinary"
	case RoleTopologyRoot:
		return "topology-root"
	case RoleTopologyRootAndMaster:
		return "topology-root+master"
	default:
		return "unknown"
	}
}

// role is the closed set of process roles. Only topology roots own a region
// table; only the master owns the report sink.
type role interface {
	kind() RoleKind
	switchRegion(id int) error
	finalize(ctx context.Context) error
}

type ordinary struct{}

func (ordinary) kind() RoleKind { return RoleOrdinary }

func (ordinary) switchRegion(int) error { return nil }

func (ordinary) finalize(context.Context) error { return nil }

type topologyRoot struct {
	p          *Profiler
	group      types.Communicator
	masterRank int
	set        types.CounterSet
	acc        *region.Accumulator
}

func (r *topologyRoot) kind() RoleKind { return RoleTopologyRoot }

func (r *topologyRoot) switchRegion(id int) error {
	if err := r.acc.Switch(id); err != nil {
		return err
	}
	r.p.telemetry.Switches.Inc()
	return nil
}

func (r *topologyRoot) finalize(ctx context.Context) error {
	return r.reduce(ctx, nil)
}

type reportMaster struct {
	*topologyRoot
	sink *report.Sink
}

func (m *reportMaster) kind() RoleKind { return RoleTopologyRootAndMaster }

func (m *reportMaster) switchRegion(id int) error {
	m.p.logger.Debug("region change",
		zap.Int("from", m.acc.Current()),
		zap.Int("to", id))
	return m.topologyRoot.switchRegion(id)
}

func (m *reportMaster) finalize(ctx context.Context) error {
	m.p.logger.Debug("finalize intercepted",
		zap.Int("metrics", len(m.p.opts.Metrics)),
		zap.Int("highest_region", m.acc.Highest()))

	em, err := m.newEmitter()
	if err != nil {
		// Peers are already in the reduction; take part without writing.
		return multierr.Combine(err, m.reduce(ctx, nil), m.sink.Close())
	}
	err = m.reduce(ctx, em.emit)
	if m.sink.IsFile() {
		m.p.logger.Info("counter report written", zap.String("path", m.sink.Path()))
	}
	err = multierr.Append(err, m.sink.Close())
	m.p.logger.Debug("done profiling")
	return err
}
