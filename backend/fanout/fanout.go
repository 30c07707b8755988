// Package fanout publishes relay events to the chat group. Local hands
// frames straight to the in-process switch; Redis routes them through a
// pub/sub channel so several relay instances share one group.
//
// Either way a member is admitted to the group by its own connect frame,
// so the first broadcast it receives is that frame.
package fanout

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	chat "github.com/adwski/chatroom/model"
)

var (
	ErrPublish   = errors.New("unable to publish frame")
	ErrSubscribe = errors.New("unable to subscribe to channel")
)

type Broadcaster interface {
	Broadcast(ctx context.Context, frame []byte) int
	Admit(connID string) bool
}

// deliver admits the subject of a connect frame before broadcasting it.
// Connection ids are user ids.
func deliver(ctx context.Context, sw Broadcaster, frame []byte) int {
	if ev, err := chat.Decode(frame); err == nil {
		if p, ok := ev.(*chat.Presence); ok && p.Joined && p.UserID != "" {
			sw.Admit(p.UserID)
		}
	}
	return sw.Broadcast(ctx, frame)
}

type Local struct {
	sw Broadcaster
}

func NewLocal(sw Broadcaster) *Local {
	return &Local{sw: sw}
}

func (l *Local) Publish(ctx context.Context, frame []byte) error {
	deliver(ctx, l.sw, frame)
	return nil
}

type RedisConfig struct {
	Logger  *zerolog.Logger
	Client  *redis.Client
	Channel string
	Switch  Broadcaster
}

type Redis struct {
	logger  zerolog.Logger
	client  *redis.Client
	channel string
	sw      Broadcaster
	ready   chan struct{}
}

func NewRedis(cfg RedisConfig) *Redis {
	return &Redis{
		logger:  cfg.Logger.With().Str("component", "fanout").Str("channel", cfg.Channel).Logger(),
		client:  cfg.Client,
		channel: cfg.Channel,
		sw:      cfg.Switch,
		ready:   make(chan struct{}),
	}
}

func (r *Redis) Publish(ctx context.Context, frame []byte) error {
	if err := r.client.Publish(ctx, r.channel, frame).Err(); err != nil {
		return errors.Join(ErrPublish, err)
	}
	return nil
}

// Ready is closed once the subscription is confirmed by the server.
func (r *Redis) Ready() <-chan struct{} {
	return r.ready
}

// Run relays channel messages to the local switch until ctx is done.
func (r *Redis) Run(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	defer func() {
		r.logger.Debug().Msg("fanout stopped")
		wg.Done()
	}()

	pubsub := r.client.Subscribe(ctx, r.channel)
	defer func() {
		_ = pubsub.Close()
	}()
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() == nil {
			errc <- errors.Join(ErrSubscribe, err)
		}
		return
	}
	close(r.ready)
	r.logger.Info().Msg("fanout subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			n := deliver(ctx, r.sw, []byte(msg.Payload))
			r.logger.Trace().Int("delivered", n).Msg("frame fanned out")
		}
	}
}
