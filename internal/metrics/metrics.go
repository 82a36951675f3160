// Package metrics holds the domain counters exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkLogSubmissions counts submitted worklog events by requested type and outcome
	WorkLogSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workforce_worklog_submissions_total",
			Help: "Worklog submissions by requested type and outcome",
		},
		[]string{"log_type", "outcome"},
	)

	// SyntheticEntries counts worklog entries inserted by the system itself
	SyntheticEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workforce_worklog_synthetic_entries_total",
			Help: "Worklog entries synthesized by the system",
		},
		[]string{"log_type"},
	)

	// Deactivations counts cascade deactivations by entity kind and result
	Deactivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workforce_deactivations_total",
			Help: "Cascade deactivations by entity kind and result",
		},
		[]string{"kind", "result"},
	)

	// AssignmentPartialFailures counts edge updates that stopped partway
	AssignmentPartialFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workforce_assignment_partial_failures_total",
			Help: "Assignment updates that failed after some back-references were written",
		},
	)

	// ReconcileRepairs counts user work lists rewritten by reconciliation
	ReconcileRepairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workforce_reconcile_repairs_total",
			Help: "User work lists rewritten to match task worker lists",
		},
	)

	// CollaboratorFailures counts non-fatal external service failures
	CollaboratorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workforce_collaborator_failures_total",
			Help: "Failed calls to external collaborators",
		},
		[]string{"collaborator"},
	)
)
