package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// queue rows written by enqueue, by outcome (queued, skipped_duplicate, failed)
	EnqueuedItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeshark_enqueue_items_total",
			Help: "Queue items processed by enqueue, by outcome",
		},
		[]string{"outcome"},
	)

	LaunchCampaigns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeshark_launch_campaigns_total",
			Help: "Campaigns processed by the launch poller, by outcome",
		},
		[]string{"outcome"},
	)

	LeadWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeshark_launch_wait_seconds",
			Help:    "Time spent waiting for lead generation to reach the target",
			Buckets: prometheus.ExponentialBuckets(15, 2, 7), // 15s to 16m
		},
	)

	WorkflowTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeshark_workflow_triggers_total",
			Help: "External lead-generation workflow triggers, by status",
		},
		[]string{"status"},
	)

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeshark_deliveries_total",
			Help: "Queue item delivery attempts, by provider and status",
		},
		[]string{"provider", "status"},
	)

	DispatchedItems = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeshark_dispatched_items_total",
			Help: "Due queue items published for delivery",
		},
	)
)
