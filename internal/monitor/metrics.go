// Package monitor exposes the service's Prometheus instrumentation.
package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	RoomsActive     prometheus.Gauge
	SpinsTotal      prometheus.Counter
	CommitConflicts prometheus.Counter
	JokersUsed      prometheus.Counter
}

// New registers the metric set against the given registerer. Tests pass a
// private registry so parallel suites do not collide.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		RoomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Number of live rooms",
		}),
		SpinsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spins_total",
			Help:      "Total committed turn selections",
		}),
		CommitConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_conflicts_total",
			Help:      "Turn commits discarded after losing the commit race",
		}),
		JokersUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jokers_used_total",
			Help:      "Total jokers spent across all rooms",
		}),
	}
	reg.MustRegister(m.RoomsActive, m.SpinsTotal, m.CommitConflicts, m.JokersUsed)
	return m
}
