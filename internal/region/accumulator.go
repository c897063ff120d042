// Package region keeps the per-region counter and time table of a topology
// root process and implements the region switch protocol.
package region

import (
	"errors"
	"fmt"

	"github.com/ALEYI17/InfraSight_torus/pkg/types"
)

var (
	ErrRegionOutOfRange = errors.New("region id out of range")
	ErrMetricMismatch   = errors.New("counter set metric count differs from configuration")
)

// Accumulator is not safe for concurrent use; a process switches regions from
// one goroutine.
type Accumulator struct {
	set        types.CounterSet
	clock      types.Clock
	numMetrics int
	maxRegions int

	// counters[r] is laid out link-major: offset link*numMetrics+metric.
	counters [][]uint64
	elapsed  []float64
	current  int
	highest  int
}

// NewAccumulator builds an empty table for region ids [0, maxRegions). A nil
// set records time only and marks every snapshot invalid.
func NewAccumulator(set types.CounterSet, numMetrics, maxRegions int, clock types.Clock) (*Accumulator, error) {
	if numMetrics < 1 {
		return nil, fmt.Errorf("need at least one metric, got %d", numMetrics)
	}
	if maxRegions < 1 {
		return nil, fmt.Errorf("need room for at least one region, got %d", maxRegions)
	}
	if clock == nil {
		clock = WallClock{}
	}
	return &Accumulator{
		set:        set,
		clock:      clock,
		numMetrics: numMetrics,
		maxRegions: maxRegions,
	}, nil
}

func (a *Accumulator) Current() int { return a.current }

func (a *Accumulator) Highest() int { return a.highest }

func (a *Accumulator) MaxRegions() int { return a.maxRegions }

// Width is the length of every counter vector.
func (a *Accumulator) Width() int {
	return a.numMetrics * types.NumLinks
}

func (a *Accumulator) Valid() bool {
	return a.set != nil
}

func (a *Accumulator) ensure(id int) {
	for len(a.elapsed) <= id {
		a.counters = append(a.counters, make([]uint64, a.Width()))
		a.elapsed = append(a.elapsed, 0)
	}
}

func (a *Accumulator) readAll() ([]uint64, error) {
	values := make([]uint64, a.Width())
	if a.set == nil {
		return values, nil
	}
	if n := a.set.NumMetrics(); n != a.numMetrics {
		return nil, fmt.Errorf("%w: set has %d, configured %d", ErrMetricMismatch, n, a.numMetrics)
	}
	cnt := 0
	for _, link := range types.Links {
		for m := 0; m < a.numMetrics; m++ {
			v, err := a.set.Read(m, link)
			if err != nil {
				return nil, fmt.Errorf("read metric %d on %s: %w", m, link, err)
			}
			values[cnt] = v
			cnt++
		}
	}
	return values, nil
}

// Switch leaves the current region, if any, and enters id. Leaving adds the
// counter deltas and the dwell time to the current region; id 0 enters no
// region. Switching to the current region closes one dwell and opens the next.
func (a *Accumulator) Switch(id int) error {
	if id < 0 || id >= a.maxRegions {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrRegionOutOfRange, id, a.maxRegions)
	}
	if id == 0 && a.current == 0 {
		return nil
	}

	if a.current != 0 {
		now := a.clock.Now()
		values, err := a.readAll()
		if err != nil {
			return err
		}
		a.elapsed[a.current] += now
		row := a.counters[a.current]
		for i, v := range values {
			row[i] += v
		}
	}

	if id != 0 {
		a.ensure(id)
		if a.set != nil {
			if err := a.set.ResetStart(); err != nil {
				a.current = 0
				return fmt.Errorf("restart counters for region %d: %w", id, err)
			}
		}
		a.elapsed[id] -= a.clock.Now()
	}

	a.current = id
	if id > a.highest {
		a.highest = id
	}
	return nil
}

// Snapshot copies region id's accumulated values. Regions never entered
// yield zero records of full width.
func (a *Accumulator) Snapshot(id int) types.Record {
	rec := types.Record{Counters: make([]uint64, a.Width()), Valid: a.Valid()}
	if id >= 0 && id < len(a.elapsed) {
		copy(rec.Counters, a.counters[id])
		rec.Elapsed = a.elapsed[id]
	}
	return rec
}
