package group

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adwski/chatroom/model"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func msg(user, text string, at time.Duration) *model.Message {
	return &model.Message{
		Identity:  model.Identity{UserID: user, Author: "author-" + user},
		Text:      text,
		Timestamp: t0.Add(at),
	}
}

func connect(user string) *model.Presence {
	return &model.Presence{Identity: model.Identity{UserID: user}, Joined: true, CurrentUsers: 1}
}

func texts(gr *Group) []string {
	out := make([]string, 0, len(gr.Lines))
	for _, l := range gr.Lines {
		out = append(out, l.Text)
	}
	return out
}

func TestBuildScenario(t *testing.T) {
	c1, c2 := connect("u1"), connect("u2")
	log := []model.Event{
		c1,
		msg("u1", "hi", 0),
		msg("u1", "there", 30*time.Second),
		c2,
		msg("u1", "you?", 40*time.Second),
	}

	items := Build(log)
	require.Len(t, items, 4)

	assert.Same(t, c1, items[0].Event)
	require.NotNil(t, items[1].Group)
	assert.Equal(t, "u1", items[1].Group.UserID)
	assert.Equal(t, []string{"hi", "there"}, texts(items[1].Group))
	assert.Same(t, c2, items[2].Event)
	require.NotNil(t, items[3].Group)
	assert.Equal(t, []string{"you?"}, texts(items[3].Group))
}

func TestWindowBoundary(t *testing.T) {
	merged := Build([]model.Event{
		msg("u1", "a", 0),
		msg("u1", "b", 59999*time.Millisecond),
	})
	require.Len(t, merged, 1)
	assert.Len(t, merged[0].Group.Lines, 2)

	split := Build([]model.Event{
		msg("u1", "a", 0),
		msg("u1", "b", 60000*time.Millisecond),
	})
	require.Len(t, split, 2)
}

func TestWindowMeasuredFromLastLine(t *testing.T) {
	items := Build([]model.Event{
		msg("u1", "a", 0),
		msg("u1", "b", 50*time.Second),
		msg("u1", "c", 100*time.Second),
	})
	require.Len(t, items, 1)
	assert.Equal(t, []string{"a", "b", "c"}, texts(items[0].Group))
}

func TestOutOfOrderTimestampsUseAbsoluteGap(t *testing.T) {
	items := Build([]model.Event{
		msg("u1", "late", 30*time.Second),
		msg("u1", "early", 0),
	})
	require.Len(t, items, 1)
	assert.Equal(t, []string{"late", "early"}, texts(items[0].Group))
}

func TestMissingTimestampIsGroupable(t *testing.T) {
	noTS := &model.Message{Identity: model.Identity{UserID: "u1"}, Text: "b"}
	items := Build([]model.Event{msg("u1", "a", time.Hour), noTS})
	require.Len(t, items, 1)
	assert.Len(t, items[0].Group.Lines, 2)
}

func TestOtherAuthorBreaksGroup(t *testing.T) {
	items := Build([]model.Event{
		msg("u1", "a", 0),
		msg("u2", "b", time.Second),
		msg("u1", "c", 2*time.Second),
	})
	require.Len(t, items, 3)
	assert.Equal(t, "u1", items[0].Group.UserID)
	assert.Equal(t, "u2", items[1].Group.UserID)
	assert.Equal(t, "u1", items[2].Group.UserID)
}

func TestNonMessageAlwaysBreaks(t *testing.T) {
	leave := &model.Presence{Identity: model.Identity{UserID: "u9"}}
	unknown := &model.Unknown{Kind: "error", Text: "Invalid message"}
	items := Build([]model.Event{
		msg("u1", "a", 0),
		leave,
		msg("u1", "b", time.Second),
		unknown,
		msg("u1", "c", 2*time.Second),
	})
	require.Len(t, items, 5)
	assert.Same(t, leave, items[1].Event)
	assert.Same(t, unknown, items[3].Event)
	for _, i := range []int{0, 2, 4} {
		require.NotNil(t, items[i].Group)
		assert.Len(t, items[i].Group.Lines, 1)
	}
}

func TestEmptyLog(t *testing.T) {
	assert.Empty(t, Build(nil))
}

func randomLog(r *rand.Rand, n int) []model.Event {
	log := make([]model.Event, 0, n)
	at := time.Duration(0)
	for i := 0; i < n; i++ {
		at += time.Duration(r.Intn(90)) * time.Second
		user := fmt.Sprintf("u%d", r.Intn(3))
		switch r.Intn(6) {
		case 0:
			log = append(log, connect(user))
		default:
			log = append(log, msg(user, fmt.Sprintf("m%d", i), at))
		}
	}
	return log
}

func TestBuildIsDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		log := randomLog(r, 40)
		assert.Equal(t, Build(log), Build(log))
	}
}

func TestGrouperMatchesBuild(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		log := randomLog(r, 60)
		var g Grouper
		var got []Item
		for n := 0; n <= len(log); n += 1 + r.Intn(4) {
			got = g.Update(log[:n])
			assert.Equal(t, Build(log[:n]), got)
		}
		assert.Equal(t, Build(log), g.Update(log))
	}
}

func TestGrouperKeepsPrefixIdentity(t *testing.T) {
	log := []model.Event{
		msg("u1", "a", 0),
		connect("u2"),
		msg("u2", "b", time.Second),
	}
	var g Grouper
	first := g.Update(log)
	require.Len(t, first, 3)

	log = append(log, msg("u2", "c", 2*time.Second))
	second := g.Update(log)
	require.Len(t, second, 3)

	assert.Same(t, first[0].Group, second[0].Group)
	assert.Same(t, first[1].Event, second[1].Event)
	assert.NotSame(t, first[2].Group, second[2].Group)
	assert.Len(t, first[2].Group.Lines, 1, "previous result must not change")
	assert.Len(t, second[2].Group.Lines, 2)
}

func TestGrouperResetsOnShorterLog(t *testing.T) {
	var g Grouper
	g.Update([]model.Event{msg("u1", "a", 0), msg("u2", "b", 0)})
	items := g.Update([]model.Event{msg("u3", "c", 0)})
	require.Len(t, items, 1)
	assert.Equal(t, "u3", items[0].Group.UserID)
}
