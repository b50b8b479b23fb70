package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess   = "success"
	outcomeThrottled = "throttled"
	outcomeFailed    = "failed"
)

// Metrics is shared by every scheduler of the process, labeled by scheduler name
type Metrics struct {
	QueueLength       *prometheus.GaugeVec
	ConsecutiveErrors *prometheus.GaugeVec
	AdaptiveDelayMs   *prometheus.GaugeVec
	TasksTotal        *prometheus.CounterVec
	QueueWait         *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		QueueLength: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "walletpnl_scheduler_queue_length",
			Help: "Pending tasks waiting for a batch slot",
		}, []string{"scheduler"}),

		ConsecutiveErrors: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "walletpnl_scheduler_consecutive_errors",
			Help: "Consecutive throttling errors driving the exponential backoff",
		}, []string{"scheduler"}),

		AdaptiveDelayMs: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "walletpnl_scheduler_adaptive_delay_ms",
			Help: "Persistent penalty added to the base delay between batches",
		}, []string{"scheduler"}),

		TasksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "walletpnl_scheduler_tasks_total",
			Help: "Settled tasks by outcome",
		}, []string{"scheduler", "outcome"}),

		QueueWait: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "walletpnl_scheduler_queue_wait_seconds",
			Help:    "Time between enqueue and start of execution",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"scheduler"}),
	}
}

func (m *Metrics) setQueueLength(name string, n int) {
	if m == nil {
		return
	}
	m.QueueLength.WithLabelValues(name).Set(float64(n))
}

func (m *Metrics) setState(name string, st backoffState) {
	if m == nil {
		return
	}
	m.ConsecutiveErrors.WithLabelValues(name).Set(float64(st.consecutiveErrors))
	m.AdaptiveDelayMs.WithLabelValues(name).Set(float64(st.adaptiveDelay.Milliseconds()))
}

func (m *Metrics) incTask(name, outcome string) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) observeWait(name string, d time.Duration) {
	if m == nil {
		return
	}
	m.QueueWait.WithLabelValues(name).Observe(d.Seconds())
}
