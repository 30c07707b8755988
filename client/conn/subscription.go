package conn

import (
	"context"
	"sync"
)

// Subscription delivers inbound frames and connection lifecycle notices.
// C is closed once the manager has stopped for good; Close only
// unregisters the subscription.
type Subscription struct {
	C <-chan Frame

	ch   chan Frame
	done chan struct{}
	once sync.Once
	m    *Manager
}

// Subscribe registers a new consumer of inbound frames.
func (m *Manager) Subscribe() *Subscription {
	ch := make(chan Frame, defaultSubscriptionBuffer)
	s := &Subscription{
		C:    ch,
		ch:   ch,
		done: make(chan struct{}),
		m:    m,
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.subs == nil {
		close(ch)
		return s
	}
	m.subs[s] = struct{}{}
	return s
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.m.mx.Lock()
		delete(s.m.subs, s)
		s.m.mx.Unlock()
		close(s.done)
	})
}

// closeSubscriptions ends every subscription. Nothing publishes after it.
func (m *Manager) closeSubscriptions() {
	m.mx.Lock()
	subs := m.subs
	m.subs = nil
	m.mx.Unlock()

	for s := range subs {
		close(s.ch)
	}
}

// publish hands a frame to every subscriber, waiting for slow ones unless
// they unsubscribe or the manager stops.
func (m *Manager) publish(ctx context.Context, f Frame) {
	m.mx.Lock()
	subs := make([]*Subscription, 0, len(m.subs))
	for s := range m.subs {
		subs = append(subs, s)
	}
	m.mx.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- f:
		case <-s.done:
		case <-ctx.Done():
			return
		}
	}
}
