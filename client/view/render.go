// Package view renders the grouped conversation into display lines and
// keeps the viewport pinned to the newest content.
package view

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/adwski/chatroom/client/group"
	"github.com/adwski/chatroom/client/typing"
	"github.com/adwski/chatroom/model"
)

const Placeholder = "Connecting to server..."

type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseConnected
	PhaseDisconnected
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// PhaseOf derives the UI phase. Once the log holds anything the
// connecting placeholder is never shown again.
func PhaseOf(connected bool, logLen int) Phase {
	switch {
	case connected:
		return PhaseConnected
	case logLen == 0:
		return PhaseConnecting
	default:
		return PhaseDisconnected
	}
}

type LineKind int

const (
	LinePlaceholder LineKind = iota
	LineNotice
	LineHeader
	LineMessage
	LineUnknown
)

// Line is one rendered row. Time is hover detail and is not part of Text.
type Line struct {
	Kind   LineKind
	Text   string
	Detail string
	Time   string
	Own    bool
}

type Screen struct {
	Phase  Phase
	Lines  []Line
	Typing string
}

// Identities is the set of user ids this session has been assigned.
// Every reconnect adds a new one.
type Identities map[string]struct{}

func (ids Identities) Add(userID string) {
	if userID != "" {
		ids[userID] = struct{}{}
	}
}

func (ids Identities) Has(userID string) bool {
	_, ok := ids[userID]
	return ok
}

type Renderer struct {
	loc *time.Location
}

func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{loc: loc}
}

// FormatTime renders hour and minute in the renderer's zone, or nothing
// for a missing timestamp.
func (r *Renderer) FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(r.loc).Format("15:04")
}

func (r *Renderer) Render(phase Phase, items []group.Item, typists []typing.Participant, own Identities) Screen {
	s := Screen{Phase: phase, Typing: TypingText(typists)}
	if phase == PhaseConnecting {
		s.Lines = []Line{{Kind: LinePlaceholder, Text: Placeholder}}
		return s
	}
	for _, it := range items {
		if it.Group != nil {
			s.Lines = r.appendGroup(s.Lines, it.Group, own)
			continue
		}
		s.Lines = append(s.Lines, r.eventLine(it.Event, own))
	}
	return s
}

func (r *Renderer) appendGroup(lines []Line, g *group.Group, own Identities) []Line {
	mine := own.Has(g.UserID)
	lines = append(lines, Line{
		Kind: LineHeader,
		Text: emojiOf(g.AuthorEmoji, g.Author) + " " + g.Author,
		Own:  mine,
	})
	for _, l := range g.Lines {
		lines = append(lines, Line{
			Kind: LineMessage,
			Text: l.Text,
			Time: r.FormatTime(l.Timestamp),
			Own:  mine,
		})
	}
	return lines
}

func (r *Renderer) eventLine(ev model.Event, own Identities) Line {
	switch e := ev.(type) {
	case *model.Presence:
		return Line{
			Kind:   LineNotice,
			Text:   NoticeText(e, own.Has(e.UserID)),
			Detail: OnlineText(e.CurrentUsers),
			Time:   r.FormatTime(e.Timestamp),
			Own:    own.Has(e.UserID),
		}
	default:
		// messages always arrive grouped
		return Line{
			Kind: LineUnknown,
			Text: "Unknown message type: " + ev.Type(),
			Time: r.FormatTime(ev.At()),
		}
	}
}

func NoticeText(p *model.Presence, own bool) string {
	verb := "left"
	if p.Joined {
		verb = "joined"
	}
	if own {
		return fmt.Sprintf("You (%s) have %s", p.Author, verb)
	}
	return fmt.Sprintf("%s has %s", p.Author, verb)
}

// OnlineText is empty when the count is unknown.
func OnlineText(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("%d users online", n)
}

func TypingText(typists []typing.Participant) string {
	switch len(typists) {
	case 0:
		return ""
	case 1:
		return typists[0].Author + " is typing..."
	default:
		return fmt.Sprintf("%d people are typing...", len(typists))
	}
}

func emojiOf(emoji, author string) string {
	if emoji != "" {
		return emoji
	}
	if r, _ := utf8.DecodeRuneInString(author); r != utf8.RuneError {
		return strings.ToUpper(string(r))
	}
	return "?"
}

// Rows flattens the screen into plain terminal rows. Multi-line messages
// take several rows; the typing indicator is not included.
func (s Screen) Rows() []string {
	return s.rows(false)
}

// TimedRows is Rows with the message time appended to each message.
func (s Screen) TimedRows() []string {
	return s.rows(true)
}

func (s Screen) rows(times bool) []string {
	rows := make([]string, 0, len(s.Lines))
	for _, l := range s.Lines {
		switch l.Kind {
		case LineMessage:
			parts := strings.Split(l.Text, "\n")
			for i, part := range parts {
				row := "  " + part
				if times && l.Time != "" && i == len(parts)-1 {
					row += "  [" + l.Time + "]"
				}
				rows = append(rows, row)
			}
		case LineHeader:
			if l.Own {
				rows = append(rows, l.Text+" (you)")
			} else {
				rows = append(rows, l.Text)
			}
		case LineNotice:
			row := "* " + l.Text
			if l.Detail != "" {
				row += " · " + l.Detail
			}
			if times && l.Time != "" {
				row += "  [" + l.Time + "]"
			}
			rows = append(rows, row)
		default:
			rows = append(rows, l.Text)
		}
	}
	return rows
}
