package _switch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultFwdTimout = time.Second
)

// Switch is the single shared chat group. Every admitted member receives
// every broadcast frame, its sender included. A member joins unadmitted and
// only gets unicast frames until Admit is called for it.
type Switch struct {
	logger  zerolog.Logger
	mx      *sync.RWMutex
	members map[string]*member
	timeout time.Duration
}

type member struct {
	tx       chan<- []byte
	admitted bool
}

func NewSwitch(logger *zerolog.Logger) *Switch {
	return &Switch{
		logger:  logger.With().Str("component", "switch").Logger(),
		mx:      &sync.RWMutex{},
		members: make(map[string]*member),
		timeout: defaultFwdTimout,
	}
}

// Connect adds an unadmitted member and returns the member count after
// joining. Unadmitted members are counted.
func (sw *Switch) Connect(connID string, tx chan<- []byte) int {
	sw.mx.Lock()
	sw.members[connID] = &member{tx: tx}
	n := len(sw.members)
	sw.mx.Unlock()

	setMembers(n)
	sw.logger.Debug().Str("connID", connID).Int("members", n).Msg("member connected")
	return n
}

// Disconnect removes a member and returns the member count after leaving.
func (sw *Switch) Disconnect(connID string) int {
	sw.mx.Lock()
	delete(sw.members, connID)
	n := len(sw.members)
	sw.mx.Unlock()

	setMembers(n)
	sw.logger.Debug().Str("connID", connID).Int("members", n).Msg("member disconnected")
	return n
}

// Admit starts broadcast delivery to a member. It reports whether the
// member is connected here.
func (sw *Switch) Admit(connID string) bool {
	sw.mx.Lock()
	defer sw.mx.Unlock()
	m, ok := sw.members[connID]
	if ok {
		m.admitted = true
	}
	return ok
}

func (sw *Switch) Count() int {
	sw.mx.RLock()
	defer sw.mx.RUnlock()
	return len(sw.members)
}

// Broadcast delivers frame to every member and returns how many got it.
func (sw *Switch) Broadcast(ctx context.Context, frame []byte) int {
	sw.mx.RLock()
	dsts := make(map[string]chan<- []byte, len(sw.members))
	for id, m := range sw.members {
		if m.admitted {
			dsts[id] = m.tx
		}
	}
	sw.mx.RUnlock()

	var delivered int
	for dst, tx := range dsts {
		sent, canceled := sw.send(ctx, dst, frame, tx)
		if canceled {
			break
		}
		if sent {
			delivered++
		}
	}
	addDelivered(delivered)
	if delivered == 0 {
		sw.logger.Debug().Msg("broadcast did not reach anyone")
	}
	return delivered
}

// Send delivers frame to a single member.
func (sw *Switch) Send(ctx context.Context, connID string, frame []byte) bool {
	sw.mx.RLock()
	m, ok := sw.members[connID]
	sw.mx.RUnlock()

	if !ok {
		sw.logger.Debug().Str("dst", connID).Msg("cannot forward, dst not found")
		return false
	}
	sent, _ := sw.send(ctx, connID, frame, m.tx)
	if sent {
		addDelivered(1)
	}
	return sent
}

func (sw *Switch) send(ctx context.Context, dst string, frame []byte, tx chan<- []byte) (bool, bool) {
	var sent, canceled bool
	tCh := time.NewTimer(sw.timeout)
	select {
	case <-ctx.Done():
		canceled = true
	case <-tCh.C:
		sw.logger.Error().Str("dst", dst).Msg("dead endpoint")
	case tx <- frame:
		sw.logger.Trace().Str("dst", dst).Msg("frame is forwarded")
		sent = true
	}
	tCh.Stop()
	return sent, canceled
}
