package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Stream metrics
	ActiveStreams        prometheus.Gauge
	StreamEvents         *prometheus.CounterVec
	DroppedEvents        prometheus.Counter
	NotificationsCreated *prometheus.CounterVec

	// Reminder sweeper metrics
	RemindersProcessed *prometheus.CounterVec
	SweepLatency       prometheus.Histogram

	// Database metrics
	DatabaseOperations *prometheus.CounterVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
}

// New builds the metric set and registers it with reg. A nil registerer
// leaves the collectors unregistered, which keeps tests independent.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notification_streams_active",
			Help:      "Current number of open notification streams",
		}),
		StreamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_stream_events_total",
			Help:      "Total number of events written to notification streams",
		}, []string{"event"}),
		DroppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_stream_dropped_total",
			Help:      "Events discarded because a subscriber queue was full",
		}),
		NotificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Total number of notifications persisted",
		}, []string{"type"}),
		RemindersProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_reminders_processed_total",
			Help:      "Task reminders handled by the sweeper",
		}, []string{"outcome"}),
		SweepLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_reminder_sweep_duration_seconds",
			Help:      "Time spent on one reminder sweep",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		DatabaseOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		RedisOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redis_operations_total",
			Help:      "Total number of Redis operations",
		}, []string{"operation", "status"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ActiveStreams,
			m.StreamEvents,
			m.DroppedEvents,
			m.NotificationsCreated,
			m.RemindersProcessed,
			m.SweepLatency,
			m.DatabaseOperations,
			m.RedisOperations,
		)
	}

	return m
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveDB counts a database call by outcome.
func (m *Metrics) ObserveDB(operation string, err error) {
	if m == nil {
		return
	}
	m.DatabaseOperations.WithLabelValues(operation, status(err)).Inc()
}

// ObserveRedis counts a Redis call by outcome.
func (m *Metrics) ObserveRedis(operation string, err error) {
	if m == nil {
		return
	}
	m.RedisOperations.WithLabelValues(operation, status(err)).Inc()
}

func (m *Metrics) NotificationCreated(notificationType string) {
	if m == nil {
		return
	}
	m.NotificationsCreated.WithLabelValues(notificationType).Inc()
}

func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.ActiveStreams.Inc()
}

func (m *Metrics) StreamClosed() {
	if m == nil {
		return
	}
	m.ActiveStreams.Dec()
}

func (m *Metrics) StreamEvent(event string) {
	if m == nil {
		return
	}
	m.StreamEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.DroppedEvents.Inc()
}

func (m *Metrics) ReminderProcessed(outcome string) {
	if m == nil {
		return
	}
	m.RemindersProcessed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSweep(seconds float64) {
	if m == nil {
		return
	}
	m.SweepLatency.Observe(seconds)
}
