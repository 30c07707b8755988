package _switch

import "github.com/prometheus/client_golang/prometheus"

var (
	groupMembers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatroom_group_members",
			Help: "Current number of members in the chat group.",
		},
	)
	framesDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatroom_frames_delivered_total",
			Help: "Total frames handed to member connections.",
		},
	)
)

func init() {
	prometheus.MustRegister(groupMembers, framesDelivered)
}

func setMembers(n int) {
	groupMembers.Set(float64(n))
}

func addDelivered(n int) {
	framesDelivered.Add(float64(n))
}
