package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "peerhelp", Subsystem: "relay", Name: "sessions_active",
		Help: "The number of live sessions.",
	})
	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "peerhelp", Subsystem: "relay", Name: "sessions_created_total",
		Help: "The number of created sessions.",
	})
	sessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "peerhelp", Subsystem: "relay", Name: "sessions_expired_total",
		Help: "The number of sessions ended by the TTL.",
	})
	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "peerhelp", Subsystem: "relay", Name: "connections_active",
		Help: "The number of open messaging channels.",
	})
	relayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "peerhelp", Subsystem: "relay", Name: "relayed_total",
		Help: "The number of relayed packets by type.",
	}, []string{"type"})
)
