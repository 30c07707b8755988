package model

import (
	"time"

	chat "github.com/adwski/chatroom/model"
)

// Session is the relay-side record of one websocket connection. It is
// created at upgrade time and handed explicitly to every dispatch call.
type Session struct {
	ConnID string `json:"conn_id"`
	chat.Identity
	ConnectedAt time.Time `json:"connected_at"`
}

// Inbound is a raw text frame read from a session's connection.
type Inbound struct {
	ConnID string
	Data   []byte
}

// Wire connects a websocket connection to the relay service.
// RX carries inbound frames, TX carries ready-to-write frames.
type Wire struct {
	RX chan Inbound
	TX chan []byte
}

func NewWire() Wire {
	return Wire{
		RX: make(chan Inbound),
		TX: make(chan []byte),
	}
}
