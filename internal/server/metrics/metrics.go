// Package metrics defines the Prometheus instrumentation for the story
// server. Collectors are registered on the default registry and exposed
// via Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StoriesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stories",
		Name:      "created_total",
		Help:      "Total stories created.",
	})

	StoriesDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stories",
		Name:      "deleted_total",
		Help:      "Total stories deleted, by reason.",
	}, []string{"reason"})

	SweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stories",
		Subsystem: "sweeper",
		Name:      "runs_total",
		Help:      "Total sweeper passes.",
	})

	SweepDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stories",
		Subsystem: "sweeper",
		Name:      "deleted_total",
		Help:      "Total expired stories reclaimed by the sweeper.",
	})

	SweepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stories",
		Subsystem: "sweeper",
		Name:      "errors_total",
		Help:      "Total non-fatal errors during sweeps.",
	})

	BrokerSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stories",
		Subsystem: "broker",
		Name:      "subscribers",
		Help:      "Currently registered snapshot subscribers.",
	})

	SnapshotsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stories",
		Subsystem: "broker",
		Name:      "snapshots_sent_total",
		Help:      "Total snapshots fanned out to subscribers.",
	})

	ViewsMarked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stories",
		Name:      "views_marked_total",
		Help:      "Total first-time view marks persisted.",
	})
)

// Handler exposes the default registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
