// Package group turns the arrival-ordered event log into display items:
// clusters of consecutive same-author messages and standalone notices.
package group

import (
	"time"

	"github.com/adwski/chatroom/model"
)

// Window is the maximum gap between two messages of one group.
const Window = 60 * time.Second

type Line struct {
	Text      string
	Timestamp time.Time
}

// Group is a run of consecutive messages from one user.
type Group struct {
	UserID      string
	Author      string
	AuthorEmoji string
	Lines       []Line
}

// Item is a single entry of the display list. Exactly one field is set:
// Group for clustered messages, Event for everything else.
type Item struct {
	Group *Group
	Event model.Event
}

// Build groups the whole log from scratch.
func Build(log []model.Event) []Item {
	var g Grouper
	return g.Update(log)
}

// Grouper memoizes grouping of an append-only log. Items that are already
// closed keep their identity between calls; the trailing group is replaced
// by a copy when it grows, so previously returned lists never change.
type Grouper struct {
	seen  int
	items []Item
	open  *Group
}

// Update returns the display list for log. The log must be an extension
// of the one passed previously; a shorter log resets the memo.
func (g *Grouper) Update(log []model.Event) []Item {
	if len(log) < g.seen {
		g.Reset()
	}
	for _, ev := range log[g.seen:] {
		g.push(ev)
	}
	g.seen = len(log)

	out := make([]Item, len(g.items), len(g.items)+1)
	copy(out, g.items)
	if g.open != nil {
		out = append(out, Item{Group: g.open})
	}
	return out
}

func (g *Grouper) Reset() {
	g.seen = 0
	g.items = nil
	g.open = nil
}

func (g *Grouper) push(ev model.Event) {
	msg, ok := ev.(*model.Message)
	if !ok {
		g.flush()
		g.items = append(g.items, Item{Event: ev})
		return
	}

	line := Line{Text: msg.Text, Timestamp: msg.Timestamp}
	if g.open != nil && g.open.UserID == msg.UserID && withinWindow(g.open.last(), msg.Timestamp) {
		g.open = g.open.extend(line)
		return
	}

	g.flush()
	g.open = &Group{
		UserID:      msg.UserID,
		Author:      msg.Author,
		AuthorEmoji: msg.AuthorEmoji,
		Lines:       []Line{line},
	}
}

func (g *Grouper) flush() {
	if g.open == nil {
		return
	}
	g.items = append(g.items, Item{Group: g.open})
	g.open = nil
}

func (gr *Group) last() time.Time {
	return gr.Lines[len(gr.Lines)-1].Timestamp
}

func (gr *Group) extend(line Line) *Group {
	lines := make([]Line, len(gr.Lines), len(gr.Lines)+1)
	copy(lines, gr.Lines)
	next := *gr
	next.Lines = append(lines, line)
	return &next
}

// withinWindow treats a missing timestamp on either side as no elapsed time.
func withinWindow(prev, next time.Time) bool {
	if prev.IsZero() || next.IsZero() {
		return true
	}
	d := next.Sub(prev)
	if d < 0 {
		d = -d
	}
	return d < Window
}
