package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/adwski/chatroom/backend/fanout"
	"github.com/adwski/chatroom/backend/names"
	"github.com/adwski/chatroom/backend/ratelimit"
	httpServer "github.com/adwski/chatroom/backend/server/http"
	websocketServer "github.com/adwski/chatroom/backend/server/websocket"
	"github.com/adwski/chatroom/backend/service"
	store "github.com/adwski/chatroom/backend/storage/memory"
	sw "github.com/adwski/chatroom/backend/switch"
	"github.com/adwski/chatroom/config"
)

type runner interface {
	Run(ctx context.Context, wg *sync.WaitGroup, errc chan<- error)
}

// afterReady holds a runner back until ready is closed.
type afterReady struct {
	runner
	ready <-chan struct{}
}

func (a afterReady) Run(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	select {
	case <-a.ready:
		a.runner.Run(ctx, wg, errc)
	case <-ctx.Done():
		wg.Done()
	}
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.LoadRelay(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if logger, err = config.NewLogger(os.Stdout, cfg.LogLevel); err != nil {
		logger.Fatal().Err(err).Msg("failed to parse loglevel")
	}

	var (
		s         = sw.NewSwitch(&logger)
		publisher service.Publisher
		runners   []runner
		ready     <-chan struct{}
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() {
			_ = client.Close()
		}()
		bus := fanout.NewRedis(fanout.RedisConfig{
			Logger:  &logger,
			Client:  client,
			Channel: cfg.RedisChannel,
			Switch:  s,
		})
		publisher = bus
		runners = append(runners, bus)
		ready = bus.Ready()
	} else {
		publisher = fanout.NewLocal(s)
		local := make(chan struct{})
		close(local)
		ready = local
	}

	svc := service.NewService(service.Config{
		SessionStore: store.NewMemStore(),
		Switch:       s,
		Publisher:    publisher,
		Names:        names.New(nil),
		Limiter:      ratelimit.New(cfg.RateLimit, cfg.RateWindow),
		Logger:       &logger,
	})
	runners = append(runners,
		httpServer.NewServer(httpServer.Config{
			Logger:       &logger,
			StatsService: svc,
			ListenAddr:   cfg.APIListenAddr,
		}),
		afterReady{
			// connect events published before the bus listens would be lost
			runner: websocketServer.NewServer(websocketServer.Config{
				Logger:      &logger,
				ChatService: svc,
				ListenAddr:  cfg.WSListenAddr,
			}),
			ready: ready,
		},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		wg   = &sync.WaitGroup{}
		errc = make(chan error, len(runners))
	)
	wg.Add(len(runners))
	for _, r := range runners {
		go r.Run(ctx, wg, errc)
	}

	select {
	case err = <-errc:
		logger.Error().Err(err).Msg("unexpected server error, shutting down")
	case <-ctx.Done():
		logger.Warn().Msg("interrupted")
	}
	cancel()
	wg.Wait()
}
