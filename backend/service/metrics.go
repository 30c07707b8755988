package service

import "github.com/prometheus/client_golang/prometheus"

var (
	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatroom_events_published_total",
			Help: "Total events published to the chat group.",
		},
		[]string{"type"},
	)
	framesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatroom_frames_rejected_total",
			Help: "Total inbound frames answered with an error.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(eventsPublished, framesRejected)
}

func countEvent(typ string) {
	eventsPublished.WithLabelValues(typ).Inc()
}

func countRejected(reason string) {
	framesRejected.WithLabelValues(reason).Inc()
}
