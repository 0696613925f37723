package input

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peerhelp_input_events_dispatched_total",
		Help: "The number of injected input events",
	})
	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peerhelp_input_events_dropped_total",
		Help: "The number of dropped input events",
	}, []string{"reason"})
	eventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peerhelp_input_events_failed_total",
		Help: "The number of input events failed to inject",
	})
)
