package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_events_received_total",
			Help: "Total number of webhook events received, by kind",
		},
		[]string{"kind"},
	)

	WebhookEventsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_events_applied_total",
			Help: "Total number of webhook events that produced a committed transition",
		},
		[]string{"kind"},
	)

	WebhookEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_events_dropped_total",
			Help: "Total number of webhook events acknowledged without effect",
		},
		[]string{"kind", "reason"},
	)

	WebhookEventsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_events_failed_total",
			Help: "Total number of webhook events that failed processing",
		},
		[]string{"kind", "error_code"},
	)

	WebhookEventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "billing_event_duration_seconds",
			Help: "Duration of webhook event processing in seconds",
		},
		[]string{"kind"},
	)

	MembershipCASRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "membership_cas_retries_total",
			Help: "Total number of compare-and-swap retries on membership records",
		},
	)

	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_gate_decisions_total",
			Help: "Total number of entitlement gate decisions, by outcome",
		},
		[]string{"allowed"},
	)
)

// Drop reasons for WebhookEventsDropped.
const (
	DropReasonDuplicate   = "duplicate"
	DropReasonStale       = "stale"
	DropReasonUnknownKind = "unknown_kind"
	DropReasonIgnoredMode = "ignored_mode"
)
