package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ALEYI17/InfraSight_torus/internal/comm"
	"github.com/ALEYI17/InfraSight_torus/internal/config"
	"github.com/ALEYI17/InfraSight_torus/internal/counters"
	"github.com/ALEYI17/InfraSight_torus/internal/profiler"
	"github.com/ALEYI17/InfraSight_torus/internal/topology"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeFactoriesShareSimulatedSets(t *testing.T) {
	cfg := config.Default()
	torus, err := topology.NewTorus(topology.Shape{2, 1, 1, 1, 1, 3})
	require.NoError(t, err)

	factories, err := nodeFactories(cfg, torus)
	require.NoError(t, err)
	require.Len(t, factories, 6)

	assert.Same(t, factories[0], factories[1])
	assert.Same(t, factories[0], factories[2])
	assert.Same(t, factories[3], factories[5])
	assert.NotSame(t, factories[0], factories[3])
	assert.IsType(t, &counters.SimulatedFactory{}, factories[4])
}

func TestNodeFactoriesUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Counters.Backend = "bgpm"
	torus, err := topology.NewTorus(cfg.Topology.Shape)
	require.NoError(t, err)

	_, err = nodeFactories(cfg, torus)
	assert.ErrorIs(t, err, counters.ErrUnknownBackend)
}

func TestDemoWorkloadReport(t *testing.T) {
	cfg := config.Default()
	cfg.Topology.Shape = topology.Shape{2, 2, 1, 1, 1, 2}
	cfg.Profiler.CounterFile = filepath.Join(t.TempDir(), "counters.txt")

	torus, err := topology.NewTorus(cfg.Topology.Shape)
	require.NoError(t, err)
	factories, err := nodeFactories(cfg, torus)
	require.NoError(t, err)
	universe, err := comm.NewUniverse(torus.Size())
	require.NoError(t, err)

	telemetry := profiler.NewTelemetry(prometheus.NewRegistry())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = universe.Run(ctx, func(ctx context.Context, c *comm.Comm) error {
		return runRank(ctx, cfg, torus, c, factories[c.Rank()], telemetry)
	})
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Profiler.CounterFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")

	// Regions 1..4 for each of the four node roots.
	require.Len(t, lines, 4*4)
	var total uint64
	for _, l := range lines {
		f := strings.Fields(l)
		require.Len(t, f, 9+10)
		assert.Equal(t, "**", f[8])
		assert.NotEqual(t, "0", f[0])
		for _, v := range f[9:] {
			if v != "0" {
				total++
			}
		}
	}
	assert.Positive(t, total, "the workload charges traffic to some link")
	assert.Equal(t, 16.0, testutil.ToFloat64(telemetry.ReportRows))
}
