package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics captures scheduler and payment health signals.
type Metrics struct {
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	paymentEvents *prometheus.CounterVec
	allocations   *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// Default returns the singleton metrics registry.
func Default() *Metrics {
	metricsOnce.Do(func() {
		metrics = newMetrics(prometheus.DefaultRegisterer)
	})
	return metrics
}

// ResetForTest resets the metrics singleton for tests.
func ResetForTest() {
	metricsOnce = sync.Once{}
	metrics = nil
}

func newMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hydrabill_job_runs_total",
		Help: "Scheduled job runs by name and result.",
	}, []string{"job", "result"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hydrabill_job_duration_seconds",
		Help:    "Scheduled job latency.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
	}, []string{"job"})
	paymentEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hydrabill_payment_events_total",
		Help: "Inbound payment events by outcome.",
	}, []string{"outcome"})
	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hydrabill_payment_allocations_total",
		Help: "Payment allocations by target type.",
	}, []string{"target_type"})

	registerer.MustRegister(jobRuns, jobDuration, paymentEvents, allocations)

	return &Metrics{
		jobRuns:       jobRuns,
		jobDuration:   jobDuration,
		paymentEvents: paymentEvents,
		allocations:   allocations,
	}
}

func (m *Metrics) ObserveJobRun(job string, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
	m.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

func (m *Metrics) CountPaymentEvent(outcome string) {
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CountAllocation(targetType string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(targetType).Inc()
}
