// Package session runs the client state machine on a single goroutine.
// The message log, typing set, grouping and scrolling are only ever
// touched from the loop in Run.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adwski/chatroom/client/conn"
	"github.com/adwski/chatroom/client/group"
	"github.com/adwski/chatroom/client/router"
	"github.com/adwski/chatroom/client/typing"
	"github.com/adwski/chatroom/client/view"
)

var (
	ErrStopped = errors.New("session is not running")
)

// Viewport is a view.Viewport the session can fill and the user can scroll.
type Viewport interface {
	view.Viewport
	SetRows(rows []string)
	ScrollBy(n int)
}

type Config struct {
	Logger          *zerolog.Logger
	Conn            *conn.Manager
	Viewport        Viewport
	ScrollThreshold int
	Location        *time.Location
	ShowTimes       bool

	// OnRender receives every new screen. It is called from the session
	// goroutine and must not block for long.
	OnRender func(view.Screen)
}

type Session struct {
	logger   zerolog.Logger
	conn     *conn.Manager
	vp       Viewport
	onRender func(view.Screen)
	now      func() time.Time

	showTimes bool

	log      *router.Log
	tracker  *typing.Tracker
	router   *router.Router
	grouper  group.Grouper
	items    []group.Item
	typist   *typing.Typist
	renderer *view.Renderer
	scroller *view.Scroller

	own       view.Identities
	connected bool
	idle      func()
	runCtx    context.Context
	screen    view.Screen
	dirty     bool

	calls   chan func()
	stopped chan struct{}
	once    *sync.Once
}

func New(cfg Config) *Session {
	s := &Session{
		logger:   cfg.Logger.With().Str("component", "session").Logger(),
		conn:     cfg.Conn,
		vp:       cfg.Viewport,
		onRender: cfg.OnRender,
		now:      time.Now,
		log:      &router.Log{},
		tracker:  typing.NewTracker(),
		typist:   typing.NewTypist(),
		renderer: view.NewRenderer(cfg.Location),
		own:      make(view.Identities),
		calls:    make(chan func()),
		stopped:  make(chan struct{}),
		once:     &sync.Once{},

		showTimes: cfg.ShowTimes,
	}
	if s.vp == nil {
		s.vp = view.NewTermViewport(80, 24)
	}
	if s.onRender == nil {
		s.onRender = func(view.Screen) {}
	}
	s.router = router.New(cfg.Logger, s.log, s.tracker)
	s.scroller = view.NewScroller(&followViewport{Viewport: s.vp, moved: s.invalidate}, s, cfg.ScrollThreshold)
	return s
}

// followViewport redraws after every automatic scroll, including the
// delayed one.
type followViewport struct {
	Viewport
	moved func()
}

func (f *followViewport) ScrollToBottom() {
	f.Viewport.ScrollToBottom()
	f.moved()
}

// Run drives the connection and the session loop until ctx is done.
// A session runs once.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.runCtx = ctx
	sub := s.conn.Subscribe()

	connErr := make(chan error, 1)
	go func() {
		connErr <- s.conn.Run(ctx)
	}()

	sweep := time.NewTicker(typing.SweepInterval)
	defer func() {
		sweep.Stop()
		s.scroller.Stop()
		s.cancelIdle()
		s.once.Do(func() { close(s.stopped) })
		cancel()
		sub.Close()
		s.logger.Debug().Msg("session stopped")
	}()

	frames := sub.C
	s.render()
	for {
		select {
		case <-ctx.Done():
			return <-connErr
		case err := <-connErr:
			return err
		case f, ok := <-frames:
			if !ok {
				// connection manager is gone, connErr follows
				frames = nil
				continue
			}
			s.handleFrame(f)
		case <-sweep.C:
			if s.tracker.Sweep(s.now()) {
				s.invalidate()
			}
		case fn := <-s.calls:
			fn()
		}
		if s.dirty {
			s.render()
		}
	}
}

func (s *Session) handleFrame(f conn.Frame) {
	switch f.Kind {
	case conn.FrameOpened:
		s.connected = true
		s.invalidate()
	case conn.FrameClosed:
		s.connected = false
		s.invalidate()
	case conn.FrameData:
		change := s.router.Route(f.Data)
		s.own.Add(s.conn.LocalUserID())
		switch change {
		case router.ChangeLog:
			s.items = s.grouper.Update(s.log.Events())
			// rows first, the scroll target depends on them
			s.layout()
			s.scroller.OnLogChanged()
			s.invalidate()
		case router.ChangeTyping:
			s.invalidate()
		}
	}
}

func (s *Session) invalidate() {
	s.dirty = true
}

// layout renders the current state into the viewport without publishing it.
func (s *Session) layout() {
	phase := view.PhaseOf(s.connected, s.log.Len())
	s.screen = s.renderer.Render(phase, s.items, s.tracker.Visible(s.own.Has), s.own)
	if s.showTimes {
		s.vp.SetRows(s.screen.TimedRows())
	} else {
		s.vp.SetRows(s.screen.Rows())
	}
}

func (s *Session) render() {
	s.layout()
	s.dirty = false
	s.onRender(s.screen)
}

// Submit sends a chat message. Blank input is ignored.
func (s *Session) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	errc := make(chan error, 1)
	if err := s.post(ctx, func() {
		s.cancelIdle()
		s.typist.Submit()
		if err := s.conn.SendMessage(ctx, text); err != nil {
			errc <- err
			return
		}
		s.conn.SendTyping(ctx, false)
		errc <- nil
	}); err != nil {
		return err
	}
	return <-errc
}

// Keystroke reports local input activity for the outgoing typing signal.
func (s *Session) Keystroke(ctx context.Context) error {
	return s.post(ctx, func() {
		if s.typist.Keystroke(s.now()) {
			s.conn.SendTyping(ctx, true)
		}
		s.cancelIdle()
		s.idle = s.AfterFunc(typing.ResendInterval, func() {
			s.idle = nil
			if s.typist.Idle(s.now()) {
				s.conn.SendTyping(s.runCtx, false)
			}
		})
	})
}

// ScrollBy moves the viewport by n rows; negative n scrolls back.
func (s *Session) ScrollBy(ctx context.Context, n int) error {
	return s.post(ctx, func() {
		s.vp.ScrollBy(n)
		s.scroller.OnScroll()
		s.invalidate()
	})
}

// AfterFunc schedules fn onto the session loop. Cancelled callbacks never
// run, even if their timer already fired.
func (s *Session) AfterFunc(d time.Duration, fn func()) func() {
	cancelled := false
	t := time.AfterFunc(d, func() {
		select {
		case s.calls <- func() {
			if !cancelled {
				fn()
			}
		}:
		case <-s.stopped:
		}
	})
	return func() {
		cancelled = true
		t.Stop()
	}
}

func (s *Session) cancelIdle() {
	if s.idle != nil {
		s.idle()
		s.idle = nil
	}
}

func (s *Session) post(ctx context.Context, fn func()) error {
	select {
	case s.calls <- fn:
		return nil
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
