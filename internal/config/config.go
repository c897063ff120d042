package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ALEYI17/InfraSight_torus/internal/topology"
	"github.com/ALEYI17/InfraSight_torus/pkg/types"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

// LegacyCounterFileEnv is still honoured when COUNTER_FILE is unset.
const LegacyCounterFileEnv = "BGQ_COUNTER_FILE"

type Config struct {
	Profiler ProfilerConfig
	Counters CounterConfig
	Topology TopologyConfig
	Logging  LogConfig
	Metrics  MetricsConfig
}

type ProfilerConfig struct {
	// CounterFile is the report path; empty means stdout.
	CounterFile       string        `envconfig:"COUNTER_FILE"`
	MaxRegions        int           `envconfig:"MAX_REGIONS" default:"100"`
	CollectiveTimeout time.Duration `envconfig:"COLLECTIVE_TIMEOUT" default:"0s"`
}

type CounterConfig struct {
	Backend string   `envconfig:"COUNTER_BACKEND" default:"simulated"`
	Metrics []string `envconfig:"COUNTER_METRICS" default:"NW_USER_PP_SENT"`
	PinPath string   `envconfig:"COUNTER_PIN_PATH" default:"/sys/fs/bpf/torus_link_counters"`
}

type TopologyConfig struct {
	Shape topology.Shape `envconfig:"TORUS_SHAPE" default:"2x1x1x1x1x2"`
	File  string         `envconfig:"TORUS_TOPOLOGY_FILE"`
}

type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

type MetricsConfig struct {
	Textfile string `envconfig:"METRICS_TEXTFILE"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Profiler.CounterFile == "" {
		cfg.Profiler.CounterFile = os.Getenv(LegacyCounterFileEnv)
	}
	if cfg.Topology.File != "" {
		shape, err := topology.LoadShapeFile(cfg.Topology.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load topology: %w", err)
		}
		cfg.Topology.Shape = shape
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

func Default() *Config {
	return &Config{
		Profiler: ProfilerConfig{
			MaxRegions: 100,
		},
		Counters: CounterConfig{
			Backend: "simulated",
			Metrics: []string{types.METRIC_NW_USER_PP_SENT},
			PinPath: "/sys/fs/bpf/torus_link_counters",
		},
		Topology: TopologyConfig{
			Shape: topology.Shape{2, 1, 1, 1, 1, 2},
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Profiler.MaxRegions < 1 {
		errs = append(errs, fmt.Errorf("MAX_REGIONS must be positive, got %d", c.Profiler.MaxRegions))
	}
	if c.Profiler.CollectiveTimeout < 0 {
		errs = append(errs, fmt.Errorf("COLLECTIVE_TIMEOUT must not be negative, got %s", c.Profiler.CollectiveTimeout))
	}
	if len(c.Counters.Metrics) == 0 {
		errs = append(errs, errors.New("COUNTER_METRICS needs at least one metric"))
	}
	for _, m := range c.Counters.Metrics {
		if types.MetricIndex(m) < 0 {
			errs = append(errs, fmt.Errorf("unknown metric %q", m))
		}
	}
	if err := c.Topology.Shape.Validate(); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}
