// Package metrics exposes the prometheus collectors for the document service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pagetree"

var (
	// Operations counts service operations by name and outcome ("ok" or an error kind).
	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "document_operations_total",
		Help:      "Document operations by operation and result.",
	}, []string{"operation", "result"})

	// CascadeNodes counts descendants touched by archive, restore and remove cascades.
	CascadeNodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cascade_nodes_total",
		Help:      "Descendant documents patched or deleted by a cascade.",
	}, []string{"kind"})

	CascadeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cascade_duration_seconds",
		Help:      "Wall time of a full cascade.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	// IntegrityViolations counts children whose owner differs from their parent's owner.
	IntegrityViolations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cascade_integrity_violations_total",
		Help:      "Children skipped by a cascade because their owner differs from the root owner.",
	})

	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_connected_clients",
		Help:      "Websocket clients subscribed to the change feed.",
	})
)
