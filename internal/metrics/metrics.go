// Package metrics records per-run counters for batch commands. A run owns its
// own registry so that a Pushgateway push carries only that run's series.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "billtrack"

// Run holds the metrics of one command invocation
type Run struct {
	command  string
	registry *prometheus.Registry

	items        *prometheus.CounterVec
	rows         *prometheus.CounterVec
	duration     prometheus.Gauge
	lastSuccess  prometheus.Gauge
	lastFailure  prometheus.Gauge
	upstreamTime *prometheus.HistogramVec
}

// NewRun creates metrics for a command such as "history" or "vote"
func NewRun(command string) *Run {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Run{
		command:  command,
		registry: reg,
		items: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Items processed by a run, by stage and outcome",
		}, []string{"stage", "outcome"}),
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows inserted or changed, by table",
		}, []string{"table"}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the last successful run finished",
		}),
		lastFailure: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_failure_timestamp_seconds",
			Help:      "Unix time the last failed run finished",
		}),
		upstreamTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of upstream LIS calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// Items adds n to the stage/outcome counter
func (r *Run) Items(stage, outcome string, n int) {
	if n <= 0 {
		return
	}
	r.items.WithLabelValues(stage, outcome).Add(float64(n))
}

// Rows adds n to the rows-written counter for table
func (r *Run) Rows(table string, n int64) {
	if n <= 0 {
		return
	}
	r.rows.WithLabelValues(table).Add(float64(n))
}

// TimeUpstream starts a timer for one upstream call; call the returned func when done
func (r *Run) TimeUpstream(endpoint string) func() {
	timer := prometheus.NewTimer(r.upstreamTime.WithLabelValues(endpoint))
	return func() { timer.ObserveDuration() }
}

// Finish records the run duration and outcome
func (r *Run) Finish(started time.Time, err error) {
	now := time.Now()
	r.duration.Set(now.Sub(started).Seconds())
	if err != nil {
		r.lastFailure.Set(float64(now.Unix()))
		return
	}
	r.lastSuccess.Set(float64(now.Unix()))
}

// Registry exposes the run's registry
func (r *Run) Registry() *prometheus.Registry {
	return r.registry
}

// Push sends the run's metrics to a Pushgateway, grouped by command and
// session. An empty url is a no-op.
func (r *Run) Push(ctx context.Context, url, job, session string) error {
	if url == "" {
		return nil
	}
	return push.New(url, job).
		Gatherer(r.registry).
		Grouping("command", r.command).
		Grouping("session", session).
		PushContext(ctx)
}
