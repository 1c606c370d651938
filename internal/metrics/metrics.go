package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transition outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var (
	// TransitionsTotal counts transition attempts by trigger and outcome.
	// "rejected" covers validation failures, "failed" store failures.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "approval_workflow",
		Name:      "transitions_total",
		Help:      "Workflow transition attempts by trigger and outcome.",
	}, []string{"trigger", "outcome"})

	// NotificationsTotal counts notification delivery attempts by status.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "approval_workflow",
		Name:      "notifications_total",
		Help:      "Transition notification deliveries by status.",
	}, []string{"status"})
)
