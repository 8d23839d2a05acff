package app

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	messagesPersisted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_persisted_total",
			Help: "Messages written to the store, by source.",
		},
		[]string{"source"},
	)

	messagesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_rejected_total",
			Help: "Compose requests rejected before persistence, by source.",
		},
		[]string{"source"},
	)

	reactionToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_reaction_toggles_total",
			Help: "Reaction toggles, by result.",
		},
		[]string{"result"},
	)

	broadcastDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_broadcast_dropped_total",
			Help: "Connections dropped because their send buffer was full.",
		},
	)

	connectionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_connections",
			Help: "Open push connections on this instance.",
		},
	)
)

func init() {
	prometheus.MustRegister(messagesPersisted, messagesRejected, reactionToggles, broadcastDropped, connectionsOpen)
}
