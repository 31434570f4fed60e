// Package metrics defines and registers all custom Prometheus metrics for the
// storefront real-time service. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

// ── Hub metrics ───────────────────────────────────────────────────────────────

// EventsPublishedTotal counts events accepted by the hub.
// Label:
//   - tag: the event tag (e.g. "orderStatusUpdate")
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of domain events published to the hub.",
	},
	[]string{"tag"},
)

// EventDeliveriesTotal counts per-session delivery decisions.
// Label:
//   - result: "sent", "filtered" (target mismatch) or "dropped" (slow session)
var EventDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_deliveries_total",
		Help:      "Total number of per-session delivery decisions, by result.",
	},
	[]string{"result"},
)

// HubSessions tracks the number of currently registered sessions.
var HubSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "hub_sessions",
		Help:      "Current number of open hub sessions.",
	},
)

// PublishDuration measures the fan-out time of a single publish.
var PublishDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "publish_duration_seconds",
		Help:      "Duration of a hub publish, from sequencing to the last enqueue.",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
	},
)

// EventsDedupTotal counts publish idempotency decisions.
// Label:
//   - result: "hit" (duplicate, skipped) or "miss" (new event, published)
var EventsDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dedup_total",
		Help:      "Total number of publish deduplication checks, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// ── Inventory metrics ─────────────────────────────────────────────────────────

// AlertTransitionsTotal counts low-stock alert lifecycle transitions.
// Label:
//   - transition: "trigger", "resolve", "acknowledge" or "duplicate"
var AlertTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alert_transitions_total",
		Help:      "Total number of low-stock alert transitions.",
	},
	[]string{"transition"},
)

// StockQueueDepth tracks the number of stock changes waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var StockQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stock_queue_depth",
		Help:      "Current number of stock changes pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// StockChangeErrorsTotal counts stock changes that failed processing.
// Label:
//   - reason: "product_not_found", "invalid_stock" or "apply_failed"
var StockChangeErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_change_errors_total",
		Help:      "Total number of stock changes that failed processing.",
	},
	[]string{"reason"},
)
