package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		dialogEventsTotal,
		dialogTransitionsTotal,
		dialogMismatchesTotal,
		dialogFailuresTotal,
	)
}

var (
	dialogEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialog_events_total",
			Help: "Inbound events processed by the dispatcher, by kind.",
		},
		[]string{"kind"},
	)

	dialogTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialog_transitions_total",
			Help: "Committed state transitions, by from/to state.",
		},
		[]string{"from", "to"},
	)

	dialogMismatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialog_protocol_mismatches_total",
			Help: "Events that were not valid input for the session's current state.",
		},
		[]string{"state"},
	)

	dialogFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialog_failures_total",
			Help: "Aborted transitions, by failure kind (commerce/persistence/transport).",
		},
		[]string{"kind"},
	)
)

func IncDialogEvent(kind string) {
	dialogEventsTotal.WithLabelValues(norm(kind)).Inc()
}

func IncTransition(from, to string) {
	dialogTransitionsTotal.WithLabelValues(norm(from), norm(to)).Inc()
}

func IncMismatch(state string) {
	dialogMismatchesTotal.WithLabelValues(norm(state)).Inc()
}

func IncDialogFailure(kind string) {
	dialogFailuresTotal.WithLabelValues(norm(kind)).Inc()
}
