package stage

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the ambient observability surface (SPEC_FULL §2): counters and
// gauges that describe the runtime's behavior without anything depending on
// their values. A Stage constructed with Config.MetricsEnabled false uses a
// Metrics whose collectors are never registered, so every call below is
// always safe.
type Metrics struct {
	mailboxDropped  *prometheus.CounterVec
	directorySize   prometheus.Gauge
	deadLetterTotal prometheus.Counter
	restartTotal    *prometheus.CounterVec
}

func newMetrics(registry prometheus.Registerer, enabled bool) *Metrics {
	m := &Metrics{
		mailboxDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actorstage_mailbox_dropped_total",
			Help: "Messages diverted to dead letters by a bounded mailbox's Reject overflow policy, by actor type and policy. DropOldest and DropNewest drops are not counted.",
		}, []string{"actor_type", "policy"}),
		directorySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "actorstage_directory_size",
			Help: "Number of actors currently registered in the Directory.",
		}),
		deadLetterTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actorstage_dead_letters_total",
			Help: "Total messages routed to DeadLetters.",
		}),
		restartTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actorstage_restarts_total",
			Help: "Total Restart directives applied, by actor type.",
		}, []string{"actor_type"}),
	}
	if enabled && registry != nil {
		registry.MustRegister(m.mailboxDropped, m.directorySize, m.deadLetterTotal, m.restartTotal)
	}
	return m
}

func (m *Metrics) recordMailboxDrop(actorType string, policy string) {
	m.mailboxDropped.WithLabelValues(actorType, policy).Inc()
}

func (m *Metrics) setDirectorySize(n int) {
	m.directorySize.Set(float64(n))
}

func (m *Metrics) recordDeadLetter() {
	m.deadLetterTotal.Inc()
}

func (m *Metrics) recordRestart(actorType string) {
	m.restartTotal.WithLabelValues(actorType).Inc()
}
