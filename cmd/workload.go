package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ALEYI17/InfraSight_torus/internal/comm"
	"github.com/ALEYI17/InfraSight_torus/internal/config"
	"github.com/ALEYI17/InfraSight_torus/internal/counters"
	"github.com/ALEYI17/InfraSight_torus/internal/profiler"
	"github.com/ALEYI17/InfraSight_torus/internal/topology"
	"github.com/ALEYI17/InfraSight_torus/pkg/logutil"
	"github.com/ALEYI17/InfraSight_torus/pkg/types"
	"go.uber.org/zap"
)

const (
	intSize    = 4
	packetSize = 512
)

// rankWorkload drives one process through the demo phases. On the simulated
// backend it also plays the role of the network, charging each message to
// the first-hop link towards its destination.
type rankWorkload struct {
	torus *topology.Torus
	rank  int
	size  int
	sim   *counters.SimulatedFactory
	p     *profiler.Profiler
}

// nodeFactories returns one counter factory per rank. Link counters belong to
// a node, so on the simulated backend every rank of a node shares the
// factory its root process creates the counter set from.
func nodeFactories(cfg *config.Config, torus *topology.Torus) ([]types.CounterFactory, error) {
	factories := make([]types.CounterFactory, torus.Size())
	for rank := range factories {
		coords, err := torus.RankToCoords(rank)
		if err != nil {
			return nil, err
		}
		coords[types.AxisT] = types.RootPlane
		root, err := torus.CoordsToRank(coords)
		if err != nil {
			return nil, err
		}
		if cfg.Counters.Backend == counters.BackendSimulated && root != rank {
			factories[rank] = factories[root]
			continue
		}
		if factories[rank], err = counters.NewCounterFactory(cfg.Counters.Backend, cfg.Counters.PinPath); err != nil {
			return nil, err
		}
	}
	return factories, nil
}

func runRank(ctx context.Context, cfg *config.Config, torus *topology.Torus, c *comm.Comm, factory types.CounterFactory, telemetry *profiler.Telemetry) error {
	p, err := profiler.New(profiler.Options{
		World:             c,
		Topology:          torus,
		Counters:          factory,
		Metrics:           cfg.Counters.Metrics,
		MaxRegions:        cfg.Profiler.MaxRegions,
		CounterFile:       cfg.Profiler.CounterFile,
		CollectiveTimeout: cfg.Profiler.CollectiveTimeout,
		Telemetry:         telemetry,
	})
	if err != nil {
		return err
	}
	if err := p.Init(ctx); err != nil {
		return fmt.Errorf("rank %d: %w", c.Rank(), err)
	}

	w := &rankWorkload{torus: torus, rank: c.Rank(), size: c.Size(), p: p}
	w.sim, _ = factory.(*counters.SimulatedFactory)

	if err := w.run(ctx); err != nil {
		return fmt.Errorf("rank %d: %w", c.Rank(), err)
	}
	return p.Finalize(ctx)
}

func (w *rankWorkload) run(ctx context.Context) error {
	phases := []struct {
		region int
		work   func()
	}{
		{1, func() { w.sendrecv(10) }},
		{2, func() { w.sendrecv(100000); w.alltoall(10, w.size) }},
		{3, func() { w.alltoall(1, w.size) }},
		{0, func() {}},
		{4, func() {
			if w.rank%2 == 1 {
				w.alltoall(100, w.size/2)
			}
		}},
	}

	for _, ph := range phases {
		if err := w.p.SwitchRegion(ph.region); err != nil {
			return err
		}
		ph.work()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(1+w.rank%3) * time.Millisecond):
		}
	}
	return nil
}

// sendrecv sends count ints to rank+3; the receive from rank-3 is charged
// to that peer.
func (w *rankWorkload) sendrecv(count int) {
	w.send((w.rank+3)%w.size, count*intSize)
}

func (w *rankWorkload) alltoall(count, peers int) {
	for i := 1; i < peers; i++ {
		w.send((w.rank+i)%w.size, count*intSize)
	}
}

func (w *rankWorkload) send(dst, bytes int) {
	if w.sim == nil {
		return
	}
	set := w.sim.Set()
	if set == nil {
		return
	}
	src, err := w.torus.RankToCoords(w.rank)
	if err != nil {
		return
	}
	to, err := w.torus.RankToCoords(dst)
	if err != nil {
		return
	}
	link, ok := w.torus.FirstHop(src, to)
	if !ok {
		return
	}
	packets := uint64((bytes + packetSize - 1) / packetSize)
	for m := 0; m < set.NumMetrics(); m++ {
		set.Add(m, link, packets)
	}
	logutil.GetLogger().Debug("charged traffic",
		zap.Int("rank", w.rank),
		zap.Int("dst", dst),
		zap.Stringer("link", link),
		zap.Uint64("packets", packets))
}
