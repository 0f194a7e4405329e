package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StoreFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devdonations_store_fetches_total",
		Help: "Total number of explicit store fetches.",
	},
		[]string{"collection"},
	)

	StoreOperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devdonations_store_operation_errors_total",
		Help: "Total number of errors returned by store operations.",
	},
		[]string{"collection", "operation"},
	)

	StoreSnapshotItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "devdonations_store_snapshot_items",
		Help: "Current number of items in a store snapshot.",
	},
		[]string{"collection"},
	)

	StoreLiveListeners = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "devdonations_store_live_listeners",
		Help: "Current number of consumers holding a live subscription.",
	},
		[]string{"collection"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devdonations_http_requests_total",
		Help: "Total number of HTTP requests served.",
	},
		[]string{"method", "route", "code"},
	)

	ChangeEventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devdonations_change_events_published_total",
		Help: "Total number of change events handed to the producer.",
	},
		[]string{"collection", "result"},
	)

	ChangeEventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devdonations_change_events_dropped_total",
		Help: "Total number of change events dropped because the queue was full.",
	})

	DonationsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devdonations_donations_submitted_total",
		Help: "Total number of donations successfully submitted.",
	})
)
