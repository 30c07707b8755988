// Package router classifies inbound frames and applies each one to exactly
// one state slice: the message log or the typing set.
package router

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/adwski/chatroom/client/typing"
	"github.com/adwski/chatroom/model"
)

// Change tells the caller which state slice a frame touched.
type Change int

const (
	ChangeNone Change = iota
	ChangeLog
	ChangeTyping
)

func (c Change) String() string {
	switch c {
	case ChangeLog:
		return "log"
	case ChangeTyping:
		return "typing"
	default:
		return "none"
	}
}

// Log is the append-only, arrival-ordered message log.
type Log struct {
	events []model.Event
}

func (l *Log) Append(ev model.Event) {
	l.events = append(l.events, ev)
}

// Events returns the log contents. Callers must not modify the slice.
func (l *Log) Events() []model.Event {
	return l.events
}

func (l *Log) Len() int {
	return len(l.events)
}

type Router struct {
	logger zerolog.Logger
	log    *Log
	typing *typing.Tracker
	now    func() time.Time
}

func New(logger *zerolog.Logger, log *Log, tracker *typing.Tracker) *Router {
	return &Router{
		logger: logger.With().Str("component", "router").Logger(),
		log:    log,
		typing: tracker,
		now:    time.Now,
	}
}

// Route applies one raw frame. Liveness replies and malformed payloads
// are dropped and reported as ChangeNone.
func (r *Router) Route(raw []byte) Change {
	if string(raw) == model.Pong {
		r.logger.Trace().Msg("got pong")
		return ChangeNone
	}

	ev, err := model.Decode(raw)
	if err != nil {
		r.logger.Debug().Err(err).Int("size", len(raw)).Msg("dropping malformed frame")
		return ChangeNone
	}

	if t, ok := ev.(*model.Typing); ok {
		r.typing.Apply(t, r.now())
		return ChangeTyping
	}

	r.log.Append(ev)
	return ChangeLog
}
