package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ALEYI17/InfraSight_torus/internal/comm"
	"github.com/ALEYI17/InfraSight_torus/internal/config"
	"github.com/ALEYI17/InfraSight_torus/internal/profiler"
	"github.com/ALEYI17/InfraSight_torus/internal/topology"
	"github.com/ALEYI17/InfraSight_torus/pkg/logutil"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		logutil.InitLogger()
	} else if err := logutil.InitLoggerWithConfig(logutil.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	}); err != nil {
		logutil.InitLogger()
	}

	logger := logutil.GetLogger()
	defer logger.Sync()

	if cfgErr != nil {
		logger.Fatal("Invalid configuration", zap.Error(cfgErr))
	}

	go func() {
		sigch := make(chan os.Signal, 1)
		signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigch
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	torus, err := topology.NewTorus(cfg.Topology.Shape)
	if err != nil {
		logger.Fatal("Error creating the torus", zap.Error(err))
	}
	if torus.Size() < 2 {
		logger.Fatal("The demo workload requires at least 2 processes", zap.Stringer("shape", torus.Shape()))
	}

	universe, err := comm.NewUniverse(torus.Size())
	if err != nil {
		logger.Fatal("Error creating the process universe", zap.Error(err))
	}
	logger.Info("Test run",
		zap.Int("size", universe.Size()),
		zap.Stringer("shape", torus.Shape()),
		zap.String("backend", cfg.Counters.Backend))

	factories, err := nodeFactories(cfg, torus)
	if err != nil {
		logger.Fatal("Error creating counter factories", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	telemetry := profiler.NewTelemetry(registry)

	err = universe.Run(ctx, func(ctx context.Context, c *comm.Comm) error {
		return runRank(ctx, cfg, torus, c, factories[c.Rank()], telemetry)
	})
	if err != nil {
		logger.Error("Error running workload", zap.Error(err))
		return
	}

	if cfg.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, registry); err != nil {
			logger.Error("Error writing metrics", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
			return
		}
	}
	logger.Info("Workload finished running")
}
