package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrMalformed   = errors.New("malformed frame")
	ErrMissingType = errors.New("frame has no type")
)

// Envelope is the flat wire shape of an event. Optional fields are only
// meaningful for some types; use Decode to get a typed Event.
type Envelope struct {
	Type         string `json:"type"`
	UserID       string `json:"userId,omitempty"`
	Author       string `json:"author,omitempty"`
	AuthorEmoji  string `json:"authorEmoji,omitempty"`
	Message      string `json:"message,omitempty"`
	IsTyping     *bool  `json:"isTyping,omitempty"`
	CurrentUsers *int   `json:"currentUsers,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
}

// IsSentinel reports whether a raw frame is the literal ping or pong text.
func IsSentinel(raw []byte) bool {
	s := string(raw)
	return s == Ping || s == Pong
}

// Decode parses one JSON frame into its typed variant. Any JSON object is
// an event; one without a known type, or without a type at all, decodes
// to Unknown. Sentinels are not JSON and must be filtered by the caller.
func Decode(raw []byte) (Event, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, ErrMalformed
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}
	return env.Event(), nil
}

// Event converts the envelope into its typed variant.
func (env *Envelope) Event() Event {
	id := Identity{
		UserID:      env.UserID,
		Author:      env.Author,
		AuthorEmoji: env.AuthorEmoji,
	}
	ts := ParseTimestamp(env.Timestamp)

	switch env.Type {
	case TypeMessage:
		return &Message{Identity: id, Text: env.Message, Timestamp: ts}
	case TypeTyping:
		return &Typing{Identity: id, IsTyping: env.IsTyping != nil && *env.IsTyping, Timestamp: ts}
	case TypeConnect, TypeDisconnect:
		p := &Presence{
			Identity:  id,
			Joined:    env.Type == TypeConnect,
			Notice:    env.Message,
			Timestamp: ts,
		}
		if env.CurrentUsers != nil {
			p.CurrentUsers = *env.CurrentUsers
		}
		return p
	default:
		return &Unknown{Identity: id, Kind: env.Type, Text: env.Message, Timestamp: ts}
	}
}

// NewEnvelope flattens a typed event for the wire.
func NewEnvelope(ev Event) Envelope {
	id := ev.Sender()
	env := Envelope{
		Type:        ev.Type(),
		UserID:      id.UserID,
		Author:      id.Author,
		AuthorEmoji: id.AuthorEmoji,
		Timestamp:   FormatTimestamp(ev.At()),
	}
	switch e := ev.(type) {
	case *Message:
		env.Message = e.Text
	case *Typing:
		isTyping := e.IsTyping
		env.IsTyping = &isTyping
	case *Presence:
		env.Message = e.Notice
		n := e.CurrentUsers
		env.CurrentUsers = &n
	case *Unknown:
		env.Message = e.Text
	}
	return env
}

func Encode(ev Event) ([]byte, error) {
	return json.Marshal(NewEnvelope(ev))
}

// ParseTimestamp returns the zero time for empty or unparsable values.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormatTimestamp renders an ISO-8601 UTC instant with millisecond precision.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// DecodeControl parses a client request. Anything that is not a known
// control type with the fields it needs is rejected.
func DecodeControl(raw []byte) (Control, error) {
	var c Control
	if err := json.Unmarshal(raw, &c); err != nil {
		return Control{}, errors.Join(ErrMalformed, err)
	}
	switch c.Type {
	case TypeMessage, TypeTyping:
		return c, nil
	case "":
		return Control{}, ErrMissingType
	default:
		return Control{}, ErrMalformed
	}
}
