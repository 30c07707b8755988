package model

import (
	"time"
)

// Event types carried in the "type" field of an envelope.
const (
	TypeMessage    = "message"
	TypeConnect    = "connect"
	TypeDisconnect = "disconnect"
	TypeTyping     = "typing"
	TypeError      = "error"
)

// Liveness sentinels travel as plain text frames, outside the JSON envelope.
const (
	Ping = "ping"
	Pong = "pong"
)

// Identity is what the relay assigns to a connection once at connect time.
type Identity struct {
	UserID      string `json:"userId"`
	Author      string `json:"author"`
	AuthorEmoji string `json:"authorEmoji,omitempty"`
}

// Event is one broadcastable unit. The concrete type is one of
// Message, Typing, Presence or Unknown.
type Event interface {
	Type() string
	Sender() Identity
	At() time.Time

	event()
}

type Message struct {
	Identity
	Text      string
	Timestamp time.Time
}

type Typing struct {
	Identity
	IsTyping  bool
	Timestamp time.Time
}

// Presence is a connect or disconnect notice.
type Presence struct {
	Identity
	Joined       bool
	CurrentUsers int
	Notice       string
	Timestamp    time.Time
}

// Unknown holds an event whose type this client does not recognize,
// e.g. the relay's error replies.
type Unknown struct {
	Identity
	Kind      string
	Text      string
	Timestamp time.Time
}

func (m *Message) Type() string     { return TypeMessage }
func (m *Message) Sender() Identity { return m.Identity }
func (m *Message) At() time.Time    { return m.Timestamp }
func (*Message) event()             {}

func (t *Typing) Type() string     { return TypeTyping }
func (t *Typing) Sender() Identity { return t.Identity }
func (t *Typing) At() time.Time    { return t.Timestamp }
func (*Typing) event()             {}

func (p *Presence) Type() string {
	if p.Joined {
		return TypeConnect
	}
	return TypeDisconnect
}
func (p *Presence) Sender() Identity { return p.Identity }
func (p *Presence) At() time.Time    { return p.Timestamp }
func (*Presence) event()             {}

func (u *Unknown) Type() string     { return u.Kind }
func (u *Unknown) Sender() Identity { return u.Identity }
func (u *Unknown) At() time.Time    { return u.Timestamp }
func (*Unknown) event()             {}

// Control is a client to relay request.
type Control struct {
	Type     string `json:"type"`
	Message  string `json:"message,omitempty"`
	IsTyping *bool  `json:"isTyping,omitempty"`
}

func MessageControl(text string) Control {
	return Control{Type: TypeMessage, Message: text}
}

func TypingControl(isTyping bool) Control {
	return Control{Type: TypeTyping, IsTyping: &isTyping}
}
