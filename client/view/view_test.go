package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adwski/chatroom/client/group"
	"github.com/adwski/chatroom/client/typing"
	"github.com/adwski/chatroom/model"
)

type fakeScheduler struct {
	delays    []time.Duration
	fns       []func()
	cancelled int
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) func() {
	s.delays = append(s.delays, d)
	s.fns = append(s.fns, fn)
	return func() { s.cancelled++ }
}

type countingViewport struct {
	*TermViewport
	bottoms int
}

func (v *countingViewport) ScrollToBottom() {
	v.bottoms++
	v.TermViewport.ScrollToBottom()
}

func rows(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "row"
	}
	return out
}

func TestScrollFollowsNewContent(t *testing.T) {
	vp := &countingViewport{TermViewport: NewTermViewport(80, 10)}
	sched := &fakeScheduler{}
	s := NewScroller(vp, sched, 3)

	vp.SetRows(rows(50))
	s.OnLogChanged()
	assert.Equal(t, 1, vp.bottoms)
	require.Len(t, sched.fns, 1)
	assert.Equal(t, SettleDelay, sched.delays[0])

	sched.fns[0]()
	assert.Equal(t, 2, vp.bottoms)
	assert.Equal(t, []string{"row"}, vp.Visible()[:1])

	h, top, client := vp.Metrics()
	assert.Equal(t, 0, h-top-client)
}

func TestScrolledUpUserIsLeftAlone(t *testing.T) {
	vp := &countingViewport{TermViewport: NewTermViewport(80, 10)}
	sched := &fakeScheduler{}
	s := NewScroller(vp, sched, 3)

	vp.SetRows(rows(50))
	vp.TermViewport.ScrollToBottom()
	vp.ScrollBy(-10)
	s.OnScroll()
	require.True(t, s.ScrolledUp())

	vp.SetRows(rows(60))
	s.OnLogChanged()
	assert.Zero(t, vp.bottoms)
	assert.Empty(t, sched.fns)

	// back within the threshold
	vp.ScrollBy(18)
	s.OnScroll()
	assert.False(t, s.ScrolledUp())
}

func TestScrollerStopCancelsPending(t *testing.T) {
	vp := NewTermViewport(80, 5)
	sched := &fakeScheduler{}
	s := NewScroller(vp, sched, 0)

	s.OnLogChanged()
	s.OnLogChanged()
	assert.Equal(t, 1, sched.cancelled)

	s.Stop()
	assert.Equal(t, 2, sched.cancelled)
	s.Stop()
	assert.Equal(t, 2, sched.cancelled)
}

func TestTermViewportClamps(t *testing.T) {
	vp := NewTermViewport(80, 3)
	vp.SetRows([]string{"a", "b"})
	vp.ScrollToBottom()
	assert.Equal(t, []string{"a", "b"}, vp.Visible())

	vp.SetRows([]string{"a", "b", "c", "d", "e"})
	vp.ScrollBy(100)
	assert.Equal(t, []string{"c", "d", "e"}, vp.Visible())
	vp.ScrollBy(-100)
	assert.Equal(t, []string{"a", "b", "c"}, vp.Visible())
}

func TestTermViewportResizeKeepsBottom(t *testing.T) {
	vp := NewTermViewport(80, 2)
	vp.SetRows([]string{"a", "b", "c", "d", "e"})
	vp.ScrollToBottom()
	assert.Equal(t, []string{"d", "e"}, vp.Visible())

	vp.Resize(80, 3)
	assert.Equal(t, []string{"c", "d", "e"}, vp.Visible())
	h, top, client := vp.Metrics()
	assert.Equal(t, 5, h)
	assert.Equal(t, 2, top)
	assert.Equal(t, 3, client)

	vp.ScrollBy(-2)
	vp.Resize(80, 2)
	assert.Equal(t, []string{"a", "b"}, vp.Visible())
}

func TestPhase(t *testing.T) {
	assert.Equal(t, PhaseConnecting, PhaseOf(false, 0))
	assert.Equal(t, PhaseConnected, PhaseOf(true, 0))
	assert.Equal(t, PhaseDisconnected, PhaseOf(false, 3))
}

func TestPlaceholderOnlyWhileConnecting(t *testing.T) {
	r := NewRenderer(time.UTC)

	s := r.Render(PhaseConnecting, nil, nil, Identities{})
	require.Len(t, s.Lines, 1)
	assert.Equal(t, Placeholder, s.Lines[0].Text)

	s = r.Render(PhaseConnected, nil, nil, Identities{})
	assert.Empty(t, s.Lines)
}

func TestFormatTime(t *testing.T) {
	r := NewRenderer(time.FixedZone("X", 2*3600))
	assert.Equal(t, "14:05", r.FormatTime(time.Date(2024, 5, 1, 12, 5, 59, 0, time.UTC)))
	assert.Empty(t, r.FormatTime(time.Time{}))
}

func TestRenderConversation(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	own := Identities{}
	own.Add("a")

	log := []model.Event{
		&model.Presence{Identity: model.Identity{UserID: "a", Author: "Cool Fox"}, Joined: true, CurrentUsers: 1, Timestamp: ts},
		&model.Message{Identity: model.Identity{UserID: "a", Author: "Cool Fox", AuthorEmoji: "🦊"}, Text: "hi\nthere", Timestamp: ts},
		&model.Message{Identity: model.Identity{UserID: "b", Author: "Wise Owl"}, Text: "yo", Timestamp: ts},
		&model.Presence{Identity: model.Identity{UserID: "b", Author: "Wise Owl"}, Joined: false, CurrentUsers: 2, Timestamp: ts},
		&model.Unknown{Kind: "error", Text: "Invalid message"},
	}
	s := NewRenderer(time.UTC).Render(PhaseConnected, group.Build(log), nil, own)

	require.Len(t, s.Lines, 7)
	assert.Equal(t, "You (Cool Fox) have joined", s.Lines[0].Text)
	assert.Equal(t, "1 users online", s.Lines[0].Detail)
	assert.Equal(t, Line{Kind: LineHeader, Text: "🦊 Cool Fox", Own: true}, s.Lines[1])
	assert.Equal(t, Line{Kind: LineMessage, Text: "hi\nthere", Time: "12:00", Own: true}, s.Lines[2])
	assert.Equal(t, "W Wise Owl", s.Lines[3].Text)
	assert.False(t, s.Lines[3].Own)
	assert.Equal(t, "Wise Owl has left", s.Lines[5].Text)
	assert.Equal(t, "2 users online", s.Lines[5].Detail)
	assert.Equal(t, "Unknown message type: error", s.Lines[6].Text)

	assert.Equal(t, []string{
		"* You (Cool Fox) have joined · 1 users online",
		"🦊 Cool Fox (you)",
		"  hi",
		"  there",
		"W Wise Owl",
		"  yo",
		"* Wise Owl has left · 2 users online",
		"Unknown message type: error",
	}, s.Rows())
}

func TestTypingText(t *testing.T) {
	one := typing.Participant{Identity: model.Identity{UserID: "b", Author: "Wise Owl"}}
	two := typing.Participant{Identity: model.Identity{UserID: "c", Author: "Red Panda"}}

	assert.Empty(t, TypingText(nil))
	assert.Equal(t, "Wise Owl is typing...", TypingText([]typing.Participant{one}))
	assert.Equal(t, "2 people are typing...", TypingText([]typing.Participant{one, two}))
}

func TestNoticeWithoutCount(t *testing.T) {
	p := &model.Presence{Identity: model.Identity{UserID: "z", Author: "Z"}, Joined: true}
	assert.Equal(t, "Z has joined", NoticeText(p, false))
	assert.Empty(t, OnlineText(p.CurrentUsers))
}
