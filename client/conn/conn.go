package conn

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/adwski/chatroom/model"
)

const (
	defaultReconnectDelay   = 500 * time.Millisecond
	defaultPingInterval     = 25 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteDeadline    = 5 * time.Second

	defaultMaxMessageSize     = 512 * 1024
	defaultSubscriptionBuffer = 64
)

var (
	ErrNotConnected = errors.New("connection is not open")
	ErrClosed       = errors.New("connection manager is closed")
	ErrRunning      = errors.New("connection manager is already running")
	ErrDial         = errors.New("unable to connect")
	ErrWrite        = errors.New("unable to write")
)

type FrameKind int

const (
	// FrameData carries one raw inbound payload, sentinels included.
	FrameData FrameKind = iota
	// FrameOpened is emitted when a connection is established.
	FrameOpened
	// FrameClosed is emitted when the live connection ends.
	FrameClosed
)

type Frame struct {
	Kind FrameKind
	Data []byte
	Err  error
}

type Config struct {
	Logger           *zerolog.Logger
	URL              string
	Header           http.Header
	ReconnectDelay   time.Duration
	PingInterval     time.Duration
	HandshakeTimeout time.Duration
}

// Manager owns the lifecycle of one persistent relay connection: dialing,
// liveness pings, fixed-delay reconnects and identity capture.
type Manager struct {
	logger zerolog.Logger
	url    string
	header http.Header
	dialer *websocket.Dialer

	reconnectDelay time.Duration
	pingInterval   time.Duration

	mx      *sync.Mutex
	conn    *websocket.Conn
	userID  string
	subs    map[*Subscription]struct{}
	running bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}

	wmx *sync.Mutex
}

func NewManager(cfg Config) *Manager {
	m := &Manager{
		logger:         cfg.Logger.With().Str("component", "conn").Logger(),
		url:            cfg.URL,
		header:         cfg.Header,
		reconnectDelay: orDefault(cfg.ReconnectDelay, defaultReconnectDelay),
		pingInterval:   orDefault(cfg.PingInterval, defaultPingInterval),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: orDefault(cfg.HandshakeTimeout, defaultHandshakeTimeout),
		},
		mx:   &sync.Mutex{},
		wmx:  &sync.Mutex{},
		subs: make(map[*Subscription]struct{}),
		done: make(chan struct{}),
	}
	return m
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Connected reports whether a connection is currently open.
func (m *Manager) Connected() bool {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.conn != nil
}

// LocalUserID returns the identity captured from the first connect event
// of the current connection, or an empty string if it is not known yet.
func (m *Manager) LocalUserID() string {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.userID
}

// Done is closed once Run has returned.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Run keeps a connection alive until ctx is cancelled or Close is called.
// Every terminal closure is followed by a fixed delay and a new attempt.
func (m *Manager) Run(ctx context.Context) error {
	m.mx.Lock()
	if m.closed {
		m.mx.Unlock()
		return ErrClosed
	}
	if m.running {
		m.mx.Unlock()
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.mx.Unlock()

	defer func() {
		cancel()
		m.closeSubscriptions()
		close(m.done)
		m.logger.Debug().Msg("connection manager stopped")
	}()

	delay := time.NewTimer(0)
	<-delay.C
	defer delay.Stop()

	for {
		err := m.serve(ctx)
		if ctx.Err() != nil {
			return nil
		}
		m.logger.Warn().Err(err).Dur("delay", m.reconnectDelay).Msg("connection lost, reconnecting")

		delay.Reset(m.reconnectDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-delay.C:
		}
		m.resetIdentity()
	}
}

// Close tears the manager down: the live connection is closed, the ping
// timer stopped, subscriptions closed and Run returns. It is safe to call
// more than once.
func (m *Manager) Close() error {
	m.mx.Lock()
	m.closed = true
	cancel, running := m.cancel, m.running
	m.mx.Unlock()

	if !running {
		m.closeSubscriptions()
		return nil
	}
	cancel()
	<-m.done
	return nil
}

// serve dials once and blocks until that connection ends.
func (m *Manager) serve(ctx context.Context) error {
	conn, _, err := m.dialer.DialContext(ctx, m.url, m.header)
	if err != nil {
		return errors.Join(ErrDial, err)
	}
	conn.SetReadLimit(defaultMaxMessageSize)

	m.mx.Lock()
	m.conn = conn
	m.mx.Unlock()
	m.logger.Info().Str("url", m.url).Msg("connected")
	m.publish(ctx, Frame{Kind: FrameOpened})

	connCtx, cancel := context.WithCancel(ctx)
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.keepAlive(connCtx)
		// unblocks receive on teardown
		_ = conn.Close()
	}()

	err = m.receive(connCtx, conn)
	cancel()
	wg.Wait()

	m.mx.Lock()
	m.conn = nil
	m.mx.Unlock()

	m.publish(ctx, Frame{Kind: FrameClosed, Err: err})
	return err
}

// keepAlive sends the ping sentinel while the connection lives. There is
// one ticker per connection and it dies with it.
func (m *Manager) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.write(ctx, []byte(model.Ping)); err != nil {
				m.logger.Error().Err(err).Msg("failed to send ping")
				return
			}
			m.logger.Trace().Msg("ping sent")
		}
	}
}

func (m *Manager) receive(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.logger.Warn().Err(err).Msg("connection closed")
			} else if ctx.Err() == nil {
				m.logger.Error().Err(err).Msg("unexpected error during receive")
			}
			return err
		}
		if !model.IsSentinel(data) {
			m.observe(data)
		}
		m.publish(ctx, Frame{Kind: FrameData, Data: data})
	}
}

// observe captures the local identity from the first connect event seen
// on this connection.
func (m *Manager) observe(data []byte) {
	ev, err := model.Decode(data)
	if err != nil {
		return
	}
	p, ok := ev.(*model.Presence)
	if !ok || !p.Joined || p.UserID == "" {
		return
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.userID == "" {
		m.userID = p.UserID
		m.logger.Debug().Str("userID", p.UserID).Msg("identity captured")
	}
}

func (m *Manager) resetIdentity() {
	m.mx.Lock()
	m.userID = ""
	m.mx.Unlock()
}

// Send writes a control message. It fails with ErrNotConnected when no
// connection is open; callers decide whether that matters.
func (m *Manager) Send(ctx context.Context, c model.Control) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return m.write(ctx, data)
}

// SendMessage asks the relay to broadcast a chat line.
func (m *Manager) SendMessage(ctx context.Context, text string) error {
	return m.Send(ctx, model.MessageControl(text))
}

// SendTyping is best effort: nothing happens while disconnected.
func (m *Manager) SendTyping(ctx context.Context, isTyping bool) {
	if err := m.Send(ctx, model.TypingControl(isTyping)); err != nil {
		m.logger.Debug().Err(err).Bool("isTyping", isTyping).Msg("typing signal not sent")
	}
}

// write serializes writers on the current connection. A failed write
// forces the connection closed so the reconnect path takes over.
func (m *Manager) write(ctx context.Context, data []byte) error {
	m.mx.Lock()
	conn := m.conn
	m.mx.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(defaultWriteDeadline)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	m.wmx.Lock()
	defer m.wmx.Unlock()
	if err := conn.SetWriteDeadline(deadline); err != nil {
		_ = conn.Close()
		return errors.Join(ErrWrite, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		_ = conn.Close()
		return errors.Join(ErrWrite, err)
	}
	return nil
}
