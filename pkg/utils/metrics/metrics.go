package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "huddle"

// Metrics holds the process counters. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	matcher       *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	notifyFailure *prometheus.CounterVec
	tasks         *prometheus.CounterVec
	sweep         *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		matcher: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matcher_outcomes_total",
			Help:      "Matcher decisions per team and outcome.",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_total",
			Help:      "Standup instance state transitions.",
		}, []string{"from", "to"}),
		notifyFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Failed chat notifications per message kind.",
		}, []string{"kind"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_executions_total",
			Help:      "Delayed task executions per kind and result.",
		}, []string{"kind", "result"}),
		sweep: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_outcomes_total",
			Help:      "Sweep reconciler decisions per outcome.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.matcher,
		m.transitions,
		m.notifyFailure,
		m.tasks,
		m.sweep,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) MatcherOutcome(result string) {
	if m == nil {
		return
	}
	m.matcher.WithLabelValues(result).Inc()
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) NotificationFailure(kind string) {
	if m == nil {
		return
	}
	m.notifyFailure.WithLabelValues(kind).Inc()
}

func (m *Metrics) TaskExecution(kind, result string) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) SweepOutcome(result string) {
	if m == nil {
		return
	}
	m.sweep.WithLabelValues(result).Inc()
}
