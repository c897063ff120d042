package profiler

import (
	"strconv"

	"github.com/ALEYI17/InfraSight_torus/internal/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Telemetry holds the profiler's own prometheus metrics. One instance may be
// shared by every rank of an in-process universe.
type Telemetry struct {
	Switches            prometheus.Counter
	AttachFailures      prometheus.Counter
	ReportRows          prometheus.Counter
	InvalidContributors prometheus.Counter
	RegionSeconds       *prometheus.GaugeVec
}

func NewTelemetry(reg prometheus.Registerer) *Telemetry {
	factory := promauto.With(reg)
	return &Telemetry{
		Switches: factory.NewCounter(prometheus.CounterOpts{
			Name: "torus_profiler_region_switches_total",
			Help: "Region switches performed by topology root processes",
		}),
		AttachFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "torus_profiler_attach_failures_total",
			Help: "Topology roots whose link counters failed to attach",
		}),
		ReportRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "torus_profiler_report_rows_total",
			Help: "Rows written to the counter report",
		}),
		InvalidContributors: factory.NewCounter(prometheus.CounterOpts{
			Name: "torus_profiler_invalid_contributors_total",
			Help: "Report rows contributed by processes without working counters",
		}),
		RegionSeconds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "torus_profiler_region_seconds",
			Help: "Elapsed time per region across topology roots",
		}, []string{"region", "stat"}),
	}
}

func (t *Telemetry) observeSummary(s report.Summary) {
	region := strconv.Itoa(s.Region)
	t.RegionSeconds.WithLabelValues(region, "min").Set(s.Min)
	t.RegionSeconds.WithLabelValues(region, "avg").Set(s.Avg)
	t.RegionSeconds.WithLabelValues(region, "max").Set(s.Max)
}
