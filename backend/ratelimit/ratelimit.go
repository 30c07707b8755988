// Package ratelimit caps how many chat messages a user may send within a
// sliding window.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks send times per user within a sliding window.
// A nil *Limiter allows everything.
type Limiter struct {
	mx      *sync.Mutex
	entries map[string][]time.Time
	max     int
	window  time.Duration
	now     func() time.Time
}

// New returns a limiter allowing max sends per window, or nil when max
// is not positive.
func New(max int, window time.Duration) *Limiter {
	if max <= 0 || window <= 0 {
		return nil
	}
	return &Limiter{
		mx:      &sync.Mutex{},
		entries: make(map[string][]time.Time),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

// Allow records a send for key if it is within the limit.
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	l.mx.Lock()
	defer l.mx.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	sent := l.entries[key]
	valid := sent[:0]
	for _, t := range sent {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= l.max {
		l.entries[key] = valid
		return false
	}
	l.entries[key] = append(valid, now)
	return true
}

// Forget drops the history of key, e.g. when the user disconnects.
func (l *Limiter) Forget(key string) {
	if l == nil {
		return
	}
	l.mx.Lock()
	delete(l.entries, key)
	l.mx.Unlock()
}
