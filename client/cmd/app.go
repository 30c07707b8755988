package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/adwski/chatroom/client/conn"
	"github.com/adwski/chatroom/client/session"
	"github.com/adwski/chatroom/client/tui"
	"github.com/adwski/chatroom/client/view"
	"github.com/adwski/chatroom/config"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.LoadClient(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	// the terminal belongs to the program, logs only go to a file
	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, errF := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if errF != nil {
			logger.Fatal().Err(errF).Msg("failed to open log file")
		}
		defer func() {
			_ = f.Close()
		}()
		logOut = f
	}
	if logger, err = config.NewLogger(logOut, cfg.LogLevel); err != nil {
		logger.Fatal().Err(err).Msg("failed to parse loglevel")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		program *tea.Program
		vp      = view.NewTermViewport(80, cfg.Height)
	)
	sess := session.New(session.Config{
		Logger: &logger,
		Conn: conn.NewManager(conn.Config{
			Logger: &logger,
			URL:    cfg.URL,
		}),
		Viewport:        vp,
		ScrollThreshold: cfg.ScrollThreshold,
		ShowTimes:       cfg.ShowTimes,
		OnRender: func(s view.Screen) {
			program.Send(tui.ScreenMsg{Screen: s})
		},
	})
	program = tea.NewProgram(tui.New(ctx, sess, vp), tea.WithAltScreen(), tea.WithContext(ctx))

	runErr := make(chan error, 1)
	go func() {
		runErr <- sess.Run(ctx)
	}()

	if _, err = program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Error().Err(err).Msg("terminal program failed")
	}
	cancel()
	if err = <-runErr; err != nil {
		logger.Error().Err(err).Msg("session failed")
	}
}
