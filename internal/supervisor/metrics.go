package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/psyb0t/cloudflare-dynamic-dns/internal/controller"
)

// Metrics are the Supervisor's Prometheus collectors.
type Metrics struct {
	Cycles      *prometheus.CounterVec
	JobDuration prometheus.Histogram
	Outcomes    *prometheus.CounterVec
	State       *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ddns_cycles_total",
			Help: "Reconciliation cycles by result (completed, failed, timed_out).",
		}, []string{"result"}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ddns_job_duration_seconds",
			Help:    "Wall-clock duration of reconciliation jobs.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ddns_reconcile_outcomes_total",
			Help: "Per-hostname reconciliation outcomes.",
		}, []string{"outcome"}),
		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ddns_supervisor_state",
			Help: "1 for the Supervisor's current state, 0 otherwise.",
		}, []string{"state"}),
	}
	for _, o := range controller.Outcomes {
		m.Outcomes.WithLabelValues(string(o))
	}
	for _, st := range States {
		m.State.WithLabelValues(string(st))
	}
	reg.MustRegister(m.Cycles, m.JobDuration, m.Outcomes, m.State)
	return m
}

// ObserveReport counts one outcome reported by a worker.
func (m *Metrics) ObserveReport(rep controller.Report) {
	m.Outcomes.WithLabelValues(string(rep.Outcome)).Inc()
}

func (m *Metrics) observeCycle(res CycleResult) {
	m.Cycles.WithLabelValues(res.Label()).Inc()
	m.JobDuration.Observe(res.Duration.Seconds())
}

func (m *Metrics) setState(current State) {
	for _, st := range States {
		v := 0.0
		if st == current {
			v = 1
		}
		m.State.WithLabelValues(string(st)).Set(v)
	}
}
