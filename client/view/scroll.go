package view

import "time"

const (
	// DefaultBottomThreshold is the distance from the bottom, in viewport
	// units, under which the user still counts as following the chat.
	DefaultBottomThreshold = 100

	// SettleDelay is when the second scroll is issued, after layout settles.
	SettleDelay = 100 * time.Millisecond
)

// Viewport is the scrollable area the conversation is drawn into.
type Viewport interface {
	Metrics() (scrollHeight, scrollTop, clientHeight int)
	ScrollToBottom()
}

// Scheduler runs fn after d on the caller's event loop. The returned
// function cancels fn if it has not run yet.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// Scroller decides whether new content pulls the viewport to the bottom
// or leaves a user who scrolled back alone.
type Scroller struct {
	vp        Viewport
	sched     Scheduler
	threshold int
	delay     time.Duration

	scrolledUp bool
	pending    func()
}

func NewScroller(vp Viewport, sched Scheduler, threshold int) *Scroller {
	if threshold <= 0 {
		threshold = DefaultBottomThreshold
	}
	return &Scroller{
		vp:        vp,
		sched:     sched,
		threshold: threshold,
		delay:     SettleDelay,
	}
}

// OnScroll re-evaluates the scrolled-up flag from the viewport position.
// Call it after every user scroll.
func (s *Scroller) OnScroll() {
	height, top, client := s.vp.Metrics()
	s.scrolledUp = height-top-client >= s.threshold
}

func (s *Scroller) ScrolledUp() bool {
	return s.scrolledUp
}

// OnLogChanged follows new content: scroll now and once more after
// SettleDelay, unless the user is reading history.
func (s *Scroller) OnLogChanged() {
	if s.scrolledUp {
		return
	}
	s.vp.ScrollToBottom()

	s.cancelPending()
	s.pending = s.sched.AfterFunc(s.delay, func() {
		s.pending = nil
		s.vp.ScrollToBottom()
	})
}

// Stop cancels a pending settle scroll.
func (s *Scroller) Stop() {
	s.cancelPending()
}

func (s *Scroller) cancelPending() {
	if s.pending != nil {
		s.pending()
		s.pending = nil
	}
}
