package router

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adwski/chatroom/client/typing"
	"github.com/adwski/chatroom/model"
)

func newTestRouter() (*Router, *Log, *typing.Tracker) {
	logger := zerolog.Nop()
	log := &Log{}
	tr := typing.NewTracker()
	r := New(&logger, log, tr)
	r.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return r, log, tr
}

func TestPongIsDiscarded(t *testing.T) {
	r, log, tr := newTestRouter()
	assert.Equal(t, ChangeNone, r.Route([]byte("pong")))
	assert.Equal(t, 0, log.Len())
	assert.Equal(t, 0, tr.Len())
}

func TestMalformedIsDropped(t *testing.T) {
	r, log, _ := newTestRouter()
	assert.Equal(t, ChangeNone, r.Route([]byte("{not json")))
	assert.Equal(t, 0, log.Len())
}

func TestTypelessEventIsLoggedAsUnknown(t *testing.T) {
	r, log, tr := newTestRouter()
	assert.Equal(t, ChangeLog, r.Route([]byte(`{"userId":"u1","author":"A","message":"hi"}`)))
	require.Equal(t, 1, log.Len())
	u, ok := log.Events()[0].(*model.Unknown)
	require.True(t, ok)
	assert.Empty(t, u.Type())
	assert.Equal(t, 0, tr.Len())
}

func TestTypingGoesToTracker(t *testing.T) {
	r, log, tr := newTestRouter()
	assert.Equal(t, ChangeTyping, r.Route([]byte(`{"type":"typing","userId":"u1","author":"A","isTyping":true}`)))
	assert.True(t, tr.Has("u1"))
	assert.Equal(t, 0, log.Len())

	assert.Equal(t, ChangeTyping, r.Route([]byte(`{"type":"typing","userId":"u1","isTyping":false}`)))
	assert.False(t, tr.Has("u1"))
}

func TestEverythingElseIsLogged(t *testing.T) {
	r, log, tr := newTestRouter()
	frames := []string{
		`{"type":"connect","userId":"u1","currentUsers":1}`,
		`{"type":"message","userId":"u1","message":"hi"}`,
		`{"type":"disconnect","userId":"u1","currentUsers":0}`,
		`{"type":"error","message":"Invalid message"}`,
	}
	for _, f := range frames {
		assert.Equal(t, ChangeLog, r.Route([]byte(f)))
	}
	require.Equal(t, 4, log.Len())
	assert.Equal(t, 0, tr.Len())

	ev := log.Events()
	assert.IsType(t, &model.Presence{}, ev[0])
	assert.IsType(t, &model.Message{}, ev[1])
	assert.IsType(t, &model.Presence{}, ev[2])
	assert.IsType(t, &model.Unknown{}, ev[3])
}
