package typing

import "time"

// ResendInterval limits how often typing:true is re-sent while the user
// keeps typing, and is also the idle time after which typing:false goes out.
const ResendInterval = 3500 * time.Millisecond

// Typist debounces the local user's keystrokes into typing signals.
type Typist struct {
	interval time.Duration
	lastSent time.Time
	idleAt   time.Time
}

func NewTypist() *Typist {
	return &Typist{interval: ResendInterval}
}

// Keystroke registers input at now and reports whether typing:true should
// be sent. It also pushes the idle deadline forward.
func (t *Typist) Keystroke(now time.Time) bool {
	t.idleAt = now.Add(t.interval)
	if t.lastSent.IsZero() || now.Sub(t.lastSent) > t.interval {
		t.lastSent = now
		return true
	}
	return false
}

// IdleDeadline returns when typing:false is due, if a keystroke is pending.
func (t *Typist) IdleDeadline() (time.Time, bool) {
	return t.idleAt, !t.idleAt.IsZero()
}

// Idle reports whether the idle deadline has passed at now; if so the
// typist resets and the caller should send typing:false.
func (t *Typist) Idle(now time.Time) bool {
	if t.idleAt.IsZero() || now.Before(t.idleAt) {
		return false
	}
	t.reset()
	return true
}

// Submit resets the typist after a message was sent. typing:false is
// always due at this point.
func (t *Typist) Submit() {
	t.reset()
}

func (t *Typist) reset() {
	t.lastSent = time.Time{}
	t.idleAt = time.Time{}
}
