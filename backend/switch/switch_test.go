package _switch

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSwitch() *Switch {
	logger := zerolog.Nop()
	sw := NewSwitch(&logger)
	sw.timeout = 50 * time.Millisecond
	return sw
}

func TestMembershipCounts(t *testing.T) {
	sw := newTestSwitch()

	assert.Equal(t, 1, sw.Connect("a", make(chan []byte, 1)))
	assert.Equal(t, 2, sw.Connect("b", make(chan []byte, 1)))
	assert.Equal(t, 2, sw.Count())
	assert.Equal(t, 1, sw.Disconnect("a"))
	assert.Equal(t, 1, sw.Disconnect("a"))
}

func TestBroadcastIncludesSender(t *testing.T) {
	sw := newTestSwitch()
	a := make(chan []byte, 1)
	b := make(chan []byte, 1)
	sw.Connect("a", a)
	sw.Connect("b", b)
	require.True(t, sw.Admit("a"))
	require.True(t, sw.Admit("b"))

	require.Equal(t, 2, sw.Broadcast(context.Background(), []byte("hello")))
	assert.Equal(t, "hello", string(<-a))
	assert.Equal(t, "hello", string(<-b))
}

func TestDeadEndpointIsSkipped(t *testing.T) {
	sw := newTestSwitch()
	alive := make(chan []byte, 1)
	sw.Connect("alive", alive)
	sw.Connect("dead", make(chan []byte))
	sw.Admit("alive")
	sw.Admit("dead")

	assert.Equal(t, 1, sw.Broadcast(context.Background(), []byte("x")))
	assert.Equal(t, "x", string(<-alive))
}

func TestSendToOne(t *testing.T) {
	sw := newTestSwitch()
	a := make(chan []byte, 1)
	b := make(chan []byte, 1)
	sw.Connect("a", a)
	sw.Connect("b", b)

	require.True(t, sw.Send(context.Background(), "a", []byte("pong")))
	assert.Equal(t, "pong", string(<-a))
	assert.Empty(t, b)
	assert.False(t, sw.Send(context.Background(), "nobody", []byte("pong")))
}

func TestBroadcastCanceled(t *testing.T) {
	sw := newTestSwitch()
	sw.timeout = time.Minute
	sw.Connect("dead", make(chan []byte))
	sw.Admit("dead")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Zero(t, sw.Broadcast(ctx, []byte("x")))
}

func TestUnadmittedMemberGetsUnicastOnly(t *testing.T) {
	sw := newTestSwitch()
	a := make(chan []byte, 2)
	b := make(chan []byte, 2)
	sw.Connect("a", a)
	sw.Admit("a")
	assert.Equal(t, 2, sw.Connect("b", b))

	assert.Equal(t, 1, sw.Broadcast(context.Background(), []byte("before")))
	assert.Empty(t, b)
	require.True(t, sw.Send(context.Background(), "b", []byte("pong")))
	assert.Equal(t, "pong", string(<-b))

	require.True(t, sw.Admit("b"))
	assert.Equal(t, 2, sw.Broadcast(context.Background(), []byte("after")))
	assert.Equal(t, "after", string(<-b))
	assert.False(t, sw.Admit("nobody"))
}
