package profiler

import (
	"context"
	"fmt"

	"github.com/ALEYI17/InfraSight_torus/internal/report"
	"github.com/ALEYI17/InfraSight_torus/pkg/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type emitFunc func(id int, recs []types.Record) error

// reduce gathers every region 1..highest to the master, in ascending order.
// Only the master passes an emit function.
func (r *topologyRoot) reduce(ctx context.Context, emit emitFunc) error {
	var errs error
	if cur := r.acc.Current(); cur != 0 {
		r.p.logger.Info("flushing unterminated region", zap.Int("region", cur))
		errs = multierr.Append(errs, r.p.check(r.switchRegion(0)))
	}

	highest, err := r.agreeHighest(ctx)
	if err != nil {
		return multierr.Append(errs, err)
	}

	for id := 1; id <= highest; id++ {
		snapshot := r.acc.Snapshot(id)
		recs, err := collective(ctx, r.p.opts.CollectiveTimeout, func(ctx context.Context) ([]types.Record, error) {
			return r.group.Gather(ctx, snapshot, r.masterRank)
		})
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("gather region %d: %w", id, err))
		}
		if emit != nil {
			errs = multierr.Append(errs, emit(id, recs))
		}
	}

	if r.set != nil {
		errs = multierr.Append(errs, r.set.Close())
	}
	return errs
}

// agreeHighest makes every root sweep the same region range even when some
// roots never entered the highest regions.
func (r *topologyRoot) agreeHighest(ctx context.Context) (int, error) {
	mine := types.Record{Counters: []uint64{uint64(r.acc.Highest())}}
	recs, err := collective(ctx, r.p.opts.CollectiveTimeout, func(ctx context.Context) ([]types.Record, error) {
		return r.group.Gather(ctx, mine, r.masterRank)
	})
	if err != nil {
		return 0, fmt.Errorf("gather highest region: %w", err)
	}
	highest := 0
	for _, rec := range recs {
		if h := int(rec.Counters[0]); h > highest {
			highest = h
		}
	}
	highest, err = collective(ctx, r.p.opts.CollectiveTimeout, func(ctx context.Context) (int, error) {
		return r.group.BcastInt(ctx, highest, r.masterRank)
	})
	if err != nil {
		return 0, fmt.Errorf("broadcast highest region: %w", err)
	}
	return highest, nil
}

type emitter struct {
	m          *reportMaster
	worldRanks []int
	coords     []types.Coords
}

func (m *reportMaster) newEmitter() (*emitter, error) {
	n := m.group.Size()
	ranks := make([]int, n)
	for i := range ranks {
		ranks[i] = i
	}
	world, err := m.group.TranslateRanks(ranks)
	if err != nil {
		return nil, fmt.Errorf("translate root ranks: %w", err)
	}
	coords := make([]types.Coords, n)
	for i, w := range world {
		if coords[i], err = m.p.opts.Topology.RankToCoords(w); err != nil {
			return nil, err
		}
	}
	return &emitter{m: m, worldRanks: world, coords: coords}, nil
}

func (e *emitter) emit(id int, recs []types.Record) error {
	if len(recs) != len(e.worldRanks) {
		return fmt.Errorf("region %d: gathered %d records from %d roots", id, len(recs), len(e.worldRanks))
	}
	p := e.m.p

	var err error
	times := make([]float64, len(recs))
	var invalid []int
	for j, rec := range recs {
		err = multierr.Append(err, e.m.sink.WriteRow(id, e.worldRanks[j], e.coords[j], rec.Counters))
		times[j] = rec.Elapsed
		if !rec.Valid {
			invalid = append(invalid, e.worldRanks[j])
		}
	}
	p.telemetry.ReportRows.Add(float64(len(recs)))

	if len(invalid) > 0 {
		p.telemetry.InvalidContributors.Add(float64(len(invalid)))
		p.logger.Warn("report rows without working link counters",
			zap.Int("region", id),
			zap.Ints("ranks", invalid))
	}

	// The sink may be stdout as well; keep rows ahead of their summary.
	err = multierr.Append(err, e.m.sink.Flush())
	summary := report.Summarize(id, times)
	err = multierr.Append(err, report.WriteSummary(p.opts.Summary, summary))
	p.telemetry.observeSummary(summary)
	return err
}
