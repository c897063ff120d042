package profiler

import (
	"context"
	"fmt"

	"github.com/ALEYI17/InfraSight_torus/internal/region"
	"github.com/ALEYI17/InfraSight_torus/internal/report"
	"github.com/ALEYI17/InfraSight_torus/internal/topology"
	"github.com/ALEYI17/InfraSight_torus/pkg/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Init resolves the role of this process, splits off the topology root group,
// tells every process where the master sits in that group and attaches the
// link counters on roots. Every process of the world must call it.
func (p *Profiler) Init(ctx context.Context) error {
	if p.state != stateNew {
		return ErrAlreadyInitialized
	}
	p.state = stateFailed

	r, err := p.resolve(ctx)
	if err != nil {
		return err
	}
	p.role = r
	p.state = stateRunning
	p.logger.Debug("init complete", zap.Stringer("role", r.kind()), zap.Stringer("coords", p.coords))
	return nil
}

func (p *Profiler) resolve(ctx context.Context) (role, error) {
	world, topo := p.opts.World, p.opts.Topology
	rank := world.Rank()

	if topo.Size() != world.Size() {
		return nil, fmt.Errorf("%w: %d coordinates for %d processes", ErrTopologyMismatch, topo.Size(), world.Size())
	}
	coords, err := topo.RankToCoords(rank)
	if err != nil {
		return nil, err
	}
	p.coords = coords

	isRoot := topology.IsRoot(coords)
	isMaster := coords.IsZero()

	var sink *report.Sink
	var sinkErr error
	if isMaster {
		p.logger.Debug("init intercepted")
		if sink, sinkErr = report.OpenSink(p.opts.CounterFile); sinkErr != nil {
			p.logger.Error("cannot open counter report", zap.String("path", p.opts.CounterFile), zap.Error(sinkErr))
		}
	}
	fail := func(err error) (role, error) {
		if sink != nil {
			err = multierr.Append(err, sink.Close())
		}
		return nil, err
	}

	color := 0
	if isRoot {
		color = 1
	}
	group, err := collective(ctx, p.opts.CollectiveTimeout, func(ctx context.Context) (types.Communicator, error) {
		return world.Split(ctx, color, rank)
	})
	if err != nil {
		return fail(fmt.Errorf("split topology roots: %w", err))
	}
	if isRoot && group == nil {
		return fail(fmt.Errorf("%w: no root group returned", ErrTopologyMismatch))
	}

	// The process at the all-zero coordinate is the master, so it can be the
	// broadcast source before anyone knows its rank in the root group.
	source, err := topo.CoordsToRank(types.Coords{})
	if err != nil {
		return fail(err)
	}
	masterRank := -1
	if isMaster && sinkErr == nil {
		masterRank = group.Rank()
	}
	masterRank, err = collective(ctx, p.opts.CollectiveTimeout, func(ctx context.Context) (int, error) {
		return world.BcastInt(ctx, masterRank, source)
	})
	if err != nil {
		return fail(fmt.Errorf("broadcast master rank: %w", err))
	}
	if masterRank < 0 {
		return fail(multierr.Append(ErrMasterUnavailable, sinkErr))
	}
	if isRoot && masterRank >= group.Size() {
		return fail(fmt.Errorf("%w: master rank %d in a group of %d", ErrMasterUnavailable, masterRank, group.Size()))
	}

	if !isRoot {
		return ordinary{}, nil
	}

	root, err := p.attachCounters(group, masterRank)
	if err != nil {
		return fail(err)
	}
	if isMaster {
		return &reportMaster{topologyRoot: root, sink: sink}, nil
	}
	return root, nil
}

func (p *Profiler) attachCounters(group types.Communicator, masterRank int) (*topologyRoot, error) {
	set, err := p.opts.Counters.NewCounterSet()
	if err != nil {
		return nil, fmt.Errorf("create counter set: %w", err)
	}
	for _, m := range p.opts.Metrics {
		if err := set.AddMetric(m); err != nil {
			return nil, multierr.Append(fmt.Errorf("add metric %s: %w", m, err), set.Close())
		}
	}

	// Without link counters the process still reports time; its rows are
	// flagged invalid at the master.
	readable := set
	if err := set.Attach(); err != nil {
		p.logger.Warn("failed to attach link counters", zap.Error(err))
		p.telemetry.AttachFailures.Inc()
		readable = nil
	}

	acc, err := region.NewAccumulator(readable, len(p.opts.Metrics), p.opts.MaxRegions, p.opts.Clock)
	if err != nil {
		return nil, multierr.Append(err, set.Close())
	}
	return &topologyRoot{
		p:          p,
		group:      group,
		masterRank: masterRank,
		set:        set,
		acc:        acc,
	}, nil
}
