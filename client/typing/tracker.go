// Package typing keeps track of who is currently typing.
package typing

import (
	"sort"
	"time"

	"github.com/adwski/chatroom/model"
)

const (
	// Expiry is how long a typing signal stays valid without a refresh.
	Expiry = 7 * time.Second

	// SweepInterval is how often stale entries are dropped.
	SweepInterval = time.Second
)

type Participant struct {
	model.Identity
	LastSignal time.Time
}

// Tracker is the typing participant set. It is not safe for concurrent
// use; the session goroutine owns it.
type Tracker struct {
	expiry  time.Duration
	entries map[string]Participant
}

func NewTracker() *Tracker {
	return &Tracker{
		expiry:  Expiry,
		entries: make(map[string]Participant),
	}
}

// Apply records a typing signal received at now. A true signal replaces
// any previous entry for the user, a false one removes it.
func (t *Tracker) Apply(ev *model.Typing, now time.Time) {
	if !ev.IsTyping {
		t.Remove(ev.UserID)
		return
	}
	t.entries[ev.UserID] = Participant{Identity: ev.Identity, LastSignal: now}
}

func (t *Tracker) Remove(userID string) {
	delete(t.entries, userID)
}

// Sweep drops entries whose last signal is at least Expiry old and
// reports whether anything was removed.
func (t *Tracker) Sweep(now time.Time) bool {
	removed := false
	for id, p := range t.entries {
		if now.Sub(p.LastSignal) >= t.expiry {
			delete(t.entries, id)
			removed = true
		}
	}
	return removed
}

func (t *Tracker) Len() int {
	return len(t.entries)
}

func (t *Tracker) Has(userID string) bool {
	_, ok := t.entries[userID]
	return ok
}

// Visible lists typing participants excluding the given own identities,
// oldest signal first.
func (t *Tracker) Visible(self func(userID string) bool) []Participant {
	out := make([]Participant, 0, len(t.entries))
	for _, p := range t.entries {
		if self != nil && self(p.UserID) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSignal.Equal(out[j].LastSignal) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].LastSignal.Before(out[j].LastSignal)
	})
	return out
}
