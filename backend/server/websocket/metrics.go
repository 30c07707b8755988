package websocket

import "github.com/prometheus/client_golang/prometheus"

var (
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatroom_ws_connections",
			Help: "Current number of active websocket connections.",
		},
	)
	wsFramesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatroom_ws_frames_received_total",
			Help: "Total frames read from websocket connections.",
		},
	)
	wsFramesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatroom_ws_frames_sent_total",
			Help: "Total frames written to websocket connections.",
		},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, wsFramesReceived, wsFramesSent)
}

func incConnections() {
	wsConnections.Inc()
}

func decConnections() {
	wsConnections.Dec()
}

func countReceived() {
	wsFramesReceived.Inc()
}

func countSent() {
	wsFramesSent.Inc()
}
