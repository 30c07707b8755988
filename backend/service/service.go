package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adwski/chatroom/backend/model"
	"github.com/adwski/chatroom/backend/ratelimit"
	chat "github.com/adwski/chatroom/model"
)

const (
	replyInvalid     = "Invalid message"
	replyRateLimited = "Rate limit exceeded"
)

var (
	ErrCreate     = errors.New("unable to create session")
	ErrDisconnect = errors.New("unable to disconnect")
	ErrEncode     = errors.New("unable to encode event")
)

type (
	SessionStore interface {
		AddSession(sess *model.Session) error
		DeleteSession(connID string) (*model.Session, error)
	}

	Switch interface {
		Connect(connID string, tx chan<- []byte) int
		Admit(connID string) bool
		Disconnect(connID string) int
		Count() int
		Send(ctx context.Context, connID string, frame []byte) bool
	}

	// Publisher delivers a frame to the whole group.
	Publisher interface {
		Publish(ctx context.Context, frame []byte) error
	}

	Namer interface {
		Next() (name, emoji string)
	}

	Service struct {
		store   SessionStore
		sw      Switch
		pub     Publisher
		names   Namer
		limiter *ratelimit.Limiter
		logger  zerolog.Logger
		now     func() time.Time
	}

	Config struct {
		SessionStore SessionStore
		Switch       Switch
		Publisher    Publisher
		Names        Namer
		Limiter      *ratelimit.Limiter
		Logger       *zerolog.Logger
	}
)

func NewService(cfg Config) *Service {
	return &Service{
		store:   cfg.SessionStore,
		sw:      cfg.Switch,
		pub:     cfg.Publisher,
		names:   cfg.Names,
		limiter: cfg.Limiter,
		logger:  cfg.Logger.With().Str("component", "relay").Logger(),
		now:     time.Now,
	}
}

// CurrentUsers is the number of connections in the local group.
func (svc *Service) CurrentUsers() int {
	return svc.sw.Count()
}

// CreateSession assigns an identity to a new connection, joins it to the
// group and starts dispatching its inbound frames. The connection gets no
// broadcasts until its own connect event comes back through the publisher,
// and none of its frames are handled before that event is published.
func (svc *Service) CreateSession(ctx context.Context, wire model.Wire) (*model.Session, error) {
	name, emoji := svc.names.Next()
	id := uuid.NewString()
	sess := &model.Session{
		ConnID: id,
		Identity: chat.Identity{
			UserID:      id,
			Author:      name,
			AuthorEmoji: emoji,
		},
		ConnectedAt: svc.now(),
	}
	if err := svc.store.AddSession(sess); err != nil {
		return nil, errors.Join(ErrCreate, err)
	}
	count := svc.sw.Connect(sess.ConnID, wire.TX)

	svc.logger.Debug().
		Str("userID", sess.UserID).
		Str("author", sess.Author).
		Int("currentUsers", count).
		Msg("session created")

	go svc.dispatch(ctx, sess, count, wire.RX)
	return sess, nil
}

// DeleteSession leaves the group first, then tells everyone left.
func (svc *Service) DeleteSession(ctx context.Context, connID string) error {
	sess, err := svc.store.DeleteSession(connID)
	if err != nil {
		return errors.Join(ErrDisconnect, err)
	}
	count := svc.sw.Disconnect(connID)
	svc.limiter.Forget(sess.UserID)

	svc.logger.Debug().
		Str("userID", sess.UserID).
		Int("currentUsers", count).
		Msg("session deleted")

	svc.publish(ctx, &chat.Presence{
		Identity:     sess.Identity,
		Joined:       false,
		CurrentUsers: count,
		Notice:       fmt.Sprintf("Client %s disconnected", sess.UserID),
		Timestamp:    svc.now(),
	})
	return nil
}

func (svc *Service) dispatch(ctx context.Context, sess *model.Session, count int, rx <-chan model.Inbound) {
	if !svc.publish(ctx, &chat.Presence{
		Identity:     sess.Identity,
		Joined:       true,
		CurrentUsers: count,
		Notice:       fmt.Sprintf("Client %s connected", sess.UserID),
		Timestamp:    svc.now(),
	}) {
		// the connect event will never come back, stop waiting for it
		svc.sw.Admit(sess.ConnID)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case in := <-rx:
			svc.Handle(ctx, sess, in.Data)
		}
	}
}

// Handle processes one inbound frame of sess.
func (svc *Service) Handle(ctx context.Context, sess *model.Session, data []byte) {
	if string(data) == chat.Ping {
		svc.sw.Send(ctx, sess.ConnID, []byte(chat.Pong))
		return
	}

	ctl, err := chat.DecodeControl(data)
	if err != nil {
		svc.logger.Debug().Err(err).Str("userID", sess.UserID).Msg("invalid frame")
		svc.reply(ctx, sess, replyInvalid)
		return
	}

	var ev chat.Event
	switch ctl.Type {
	case chat.TypeMessage:
		if strings.TrimSpace(ctl.Message) == "" {
			svc.reply(ctx, sess, replyInvalid)
			return
		}
		if !svc.limiter.Allow(sess.UserID) {
			svc.logger.Debug().Str("userID", sess.UserID).Msg("rate limited")
			svc.reply(ctx, sess, replyRateLimited)
			return
		}
		ev = &chat.Message{Identity: sess.Identity, Text: ctl.Message, Timestamp: svc.now()}
	case chat.TypeTyping:
		ev = &chat.Typing{
			Identity:  sess.Identity,
			IsTyping:  ctl.IsTyping != nil && *ctl.IsTyping,
			Timestamp: svc.now(),
		}
	}
	svc.publish(ctx, ev)
}

func (svc *Service) publish(ctx context.Context, ev chat.Event) bool {
	frame, err := chat.Encode(ev)
	if err != nil {
		svc.logger.Error().Err(errors.Join(ErrEncode, err)).Msg("failed to publish event")
		return false
	}
	if err = svc.pub.Publish(ctx, frame); err != nil {
		svc.logger.Error().Err(err).Str("type", ev.Type()).Msg("failed to publish event")
		return false
	}
	countEvent(ev.Type())
	return true
}

// reply sends an error envelope to sess only.
func (svc *Service) reply(ctx context.Context, sess *model.Session, text string) {
	countRejected(text)
	frame, err := chat.Encode(&chat.Unknown{Kind: chat.TypeError, Text: text, Timestamp: svc.now()})
	if err != nil {
		svc.logger.Error().Err(errors.Join(ErrEncode, err)).Msg("failed to reply")
		return
	}
	svc.sw.Send(ctx, sess.ConnID, frame)
}
