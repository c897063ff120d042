// Package profiler is the region profiler context a host program owns: it
// resolves the process role on the torus, accumulates link counters per region
// on topology roots and reduces them into a report at the master.
//
// The host calls Init once, SwitchRegion any number of times and Finalize
// exactly once, all from one goroutine. Collectives block until every peer in
// scope has joined; a job needs at least two processes for the report to be
// meaningful, which the host checks before Init.
package profiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ALEYI17/InfraSight_torus/internal/region"
	"github.com/ALEYI17/InfraSight_torus/pkg/logutil"
	"github.com/ALEYI17/InfraSight_torus/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	ErrAlreadyInitialized = errors.New("profiler already initialized")
	ErrNotInitialized     = errors.New("profiler not initialized")
	ErrFinalized          = errors.New("profiler already finalized")
	ErrMasterUnavailable  = errors.New("report master unavailable")
	ErrTopologyMismatch   = errors.New("topology does not match the process universe")
)

type Options struct {
	World    types.Communicator
	Topology types.Topology
	Counters types.CounterFactory

	// Metrics are the network metric names counted on every link.
	Metrics    []string
	MaxRegions int
	// CounterFile is the report path on the master; empty means stdout.
	CounterFile string
	// CollectiveTimeout bounds every collective call; zero waits forever.
	CollectiveTimeout time.Duration

	Clock types.Clock
	// Summary receives the timing summary lines. Defaults to stdout.
	Summary   io.Writer
	Telemetry *Telemetry
	Logger    *zap.Logger
	// OnFatal handles internal inconsistencies. Defaults to logging at fatal
	// level, which exits the process.
	OnFatal func(error)
}

type state int

const (
	stateNew state = iota
	stateRunning
	stateFinalized
	stateFailed
)

type Profiler struct {
	opts      Options
	logger    *zap.Logger
	telemetry *Telemetry
	state     state
	role      role
	coords    types.Coords
}

func New(opts Options) (*Profiler, error) {
	if opts.World == nil || opts.Topology == nil || opts.Counters == nil {
		return nil, errors.New("profiler needs a world communicator, a topology and a counter factory")
	}
	if len(opts.Metrics) == 0 {
		return nil, errors.New("profiler needs at least one metric")
	}
	for _, m := range opts.Metrics {
		if types.MetricIndex(m) < 0 {
			return nil, fmt.Errorf("unknown metric %q", m)
		}
	}
	if opts.MaxRegions < 1 {
		return nil, fmt.Errorf("max regions must be positive, got %d", opts.MaxRegions)
	}
	if opts.CollectiveTimeout < 0 {
		return nil, fmt.Errorf("negative collective timeout %s", opts.CollectiveTimeout)
	}
	if opts.Clock == nil {
		opts.Clock = region.WallClock{}
	}
	if opts.Summary == nil {
		opts.Summary = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = logutil.GetLogger()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = NewTelemetry(prometheus.NewRegistry())
	}

	logger := opts.Logger.With(zap.Int("rank", opts.World.Rank()))
	if opts.OnFatal == nil {
		opts.OnFatal = func(err error) {
			logger.Fatal("internal counter inconsistency", zap.Error(err))
		}
	}

	return &Profiler{
		opts:      opts,
		logger:    logger,
		telemetry: opts.Telemetry,
	}, nil
}

// Role is meaningful after Init.
func (p *Profiler) Role() RoleKind {
	if p.role == nil {
		return RoleOrdinary
	}
	return p.role.kind()
}

func (p *Profiler) Coords() types.Coords { return p.coords }

// Regions exposes the region table of a topology root. Other roles have none.
func (p *Profiler) Regions() (*region.Accumulator, bool) {
	switch r := p.role.(type) {
	case *topologyRoot:
		return r.acc, true
	case *reportMaster:
		return r.acc, true
	default:
		return nil, false
	}
}

// SwitchRegion ends the active region and starts region id; 0 starts none.
// It is a no-op on processes that are not topology roots.
func (p *Profiler) SwitchRegion(id int) error {
	switch p.state {
	case stateRunning:
	case stateFinalized:
		return ErrFinalized
	default:
		return ErrNotInitialized
	}
	return p.check(p.role.switchRegion(id))
}

// Finalize reduces every region to the master and writes the report. It must
// be called exactly once; an active region is closed first.
func (p *Profiler) Finalize(ctx context.Context) error {
	switch p.state {
	case stateRunning:
	case stateFinalized:
		return ErrFinalized
	default:
		return ErrNotInitialized
	}
	p.state = stateFinalized
	return p.role.finalize(ctx)
}

func (p *Profiler) check(err error) error {
	if errors.Is(err, region.ErrMetricMismatch) {
		p.opts.OnFatal(err)
	}
	return err
}

func collective[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}
