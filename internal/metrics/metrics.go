// Package metrics exposes the Prometheus instruments for the booking core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BookingsScheduled counts bookings that reached the pending state.
var BookingsScheduled = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "supravel",
	Subsystem: "bookings",
	Name:      "scheduled_total",
	Help:      "Total bookings created.",
})

// BookingTransitions counts applied state transitions by target state.
var BookingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "supravel",
	Subsystem: "bookings",
	Name:      "transitions_total",
	Help:      "Total booking state transitions by resulting state.",
}, []string{"status"})

// LedgerTransactions counts completed ledger entries by type.
var LedgerTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "supravel",
	Subsystem: "credits",
	Name:      "transactions_total",
	Help:      "Total completed credit ledger transactions by type.",
}, []string{"type"})

// InsufficientCredits counts debits rejected by the balance guard.
var InsufficientCredits = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "supravel",
	Subsystem: "credits",
	Name:      "insufficient_total",
	Help:      "Total debits rejected because the balance would go negative.",
})

// SubscriptionEvents counts membership changes by action.
var SubscriptionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "supravel",
	Subsystem: "subscriptions",
	Name:      "events_total",
	Help:      "Total subscription lifecycle events by action.",
}, []string{"action"})

// ScheduleConflicts counts bookings rejected by the overlap check.
var ScheduleConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "supravel",
	Subsystem: "bookings",
	Name:      "schedule_conflicts_total",
	Help:      "Total booking attempts rejected for overlapping an existing window.",
})
