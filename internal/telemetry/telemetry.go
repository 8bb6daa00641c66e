// Package telemetry exposes acquisition metrics to Prometheus.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"codeberg.org/mutker/ppgcollect/internal/sensor"
)

const (
	namespace = "ppgcollect"
	subsystem = "acquire"

	// Backup results.
	BackupOK     = "ok"
	BackupFailed = "failed"
)

// Metrics holds the acquisition collectors on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	cycles        prometheus.Counter
	fetchOutcomes *prometheus.CounterVec
	measurements  prometheus.Counter
	historySize   prometheus.Gauge
	cycleDuration prometheus.Histogram
	lastReceived  prometheus.Gauge
	backups       *prometheus.CounterVec
}

// New registers the acquisition collectors, plus the Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		cycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycles_total",
			Help:      "Total number of completed acquisition cycles",
		}),
		fetchOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fetch_outcomes_total",
			Help:      "Device fetches by outcome kind",
		}, []string{"kind"}),
		measurements: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "measurements_total",
			Help:      "Total number of measurements appended to the history",
		}),
		historySize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "history_size",
			Help:      "Number of measurements in the history",
		}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycle_duration_seconds",
			Help:      "Time from dispatch to committed cycle",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
		}),
		lastReceived: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_received_timestamp_seconds",
			Help:      "Unix time of the last response received in a cycle",
		}),
		backups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "backups_total",
			Help:      "Backup runs by result",
		}, []string{"result"}),
	}

	// Expose every kind from the start so rates work before the first failure.
	for _, kind := range []sensor.OutcomeKind{
		sensor.OutcomeOK, sensor.OutcomeNoData, sensor.OutcomeEmpty, sensor.OutcomeFailed,
	} {
		m.fetchOutcomes.WithLabelValues(string(kind))
	}

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCycle records one committed cycle.
func (m *Metrics) ObserveCycle(outcomes []sensor.Outcome, added int, lastReceived time.Time, took time.Duration) {
	m.cycles.Inc()
	for _, out := range outcomes {
		m.fetchOutcomes.WithLabelValues(string(out.Kind)).Inc()
	}
	m.measurements.Add(float64(added))
	m.cycleDuration.Observe(took.Seconds())
	if !lastReceived.IsZero() {
		m.lastReceived.Set(float64(lastReceived.UnixNano()) / float64(time.Second))
	}
}

// SetHistorySize records the current history length.
func (m *Metrics) SetHistorySize(n int) {
	m.historySize.Set(float64(n))
}

// ObserveBackup counts a backup run.
func (m *Metrics) ObserveBackup(err error) {
	if err != nil {
		m.backups.WithLabelValues(BackupFailed).Inc()
		return
	}
	m.backups.WithLabelValues(BackupOK).Inc()
}
