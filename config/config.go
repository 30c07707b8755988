// Package config loads relay and client settings. Values come from
// defaults, then an optional YAML file, then command line flags.
package config

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	EnvVar         = "CHATROOM_ENV"
	EnvDevelopment = "development"
)

var (
	ErrConfigFile = errors.New("unable to load config file")
	ErrLogLevel   = errors.New("invalid log level")
)

type Relay struct {
	APIListenAddr string        `yaml:"apiListenAddr"`
	WSListenAddr  string        `yaml:"wsListenAddr"`
	LogLevel      string        `yaml:"logLevel"`
	RateLimit     int           `yaml:"rateLimit"`
	RateWindow    time.Duration `yaml:"rateWindow"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisChannel  string        `yaml:"redisChannel"`
}

func DefaultRelay() *Relay {
	return &Relay{
		APIListenAddr: ":8080",
		WSListenAddr:  ":8888",
		LogLevel:      "info",
		RateWindow:    time.Minute,
		RedisChannel:  "chatroom:events",
	}
}

type Client struct {
	URL             string `yaml:"url"`
	LogLevel        string `yaml:"logLevel"`
	LogFile         string `yaml:"logFile"`
	Height          int    `yaml:"height"`
	ScrollThreshold int    `yaml:"scrollThreshold"`
	ShowTimes       bool   `yaml:"showTimes"`
}

func DefaultClient() *Client {
	return &Client{
		URL:             "ws://localhost:8888/ws",
		LogLevel:        "warn",
		Height:          20,
		ScrollThreshold: 2,
	}
}

// LoadRelay builds the relay configuration from args (without the
// program name).
func LoadRelay(args []string) (*Relay, error) {
	cfg := DefaultRelay()
	if err := loadFile(args, cfg); err != nil {
		return nil, err
	}

	fs := pflag.NewFlagSet("relay", pflag.ContinueOnError)
	fs.StringP("config", "c", "", "path to yaml config file")
	fs.StringVarP(&cfg.APIListenAddr, "api-listen-addr", "a", cfg.APIListenAddr, "api listen address")
	fs.StringVarP(&cfg.WSListenAddr, "ws-listen-addr", "w", cfg.WSListenAddr, "websocket listen address")
	fs.StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "log level")
	fs.IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "max chat messages per user within rate window, 0 disables")
	fs.DurationVar(&cfg.RateWindow, "rate-window", cfg.RateWindow, "rate limit window")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address for multi-instance fan-out, empty disables")
	fs.StringVar(&cfg.RedisChannel, "redis-channel", cfg.RedisChannel, "redis pub/sub channel")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClient builds the terminal client configuration from args.
func LoadClient(args []string) (*Client, error) {
	cfg := DefaultClient()
	if err := loadFile(args, cfg); err != nil {
		return nil, err
	}

	fs := pflag.NewFlagSet("client", pflag.ContinueOnError)
	fs.StringP("config", "c", "", "path to yaml config file")
	fs.StringVarP(&cfg.URL, "url", "u", cfg.URL, "relay websocket url")
	fs.StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to file instead of stderr")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "initial number of conversation rows, until the terminal reports its size")
	fs.IntVar(&cfg.ScrollThreshold, "scroll-threshold", cfg.ScrollThreshold, "rows from bottom that still count as following")
	fs.BoolVar(&cfg.ShowTimes, "show-times", cfg.ShowTimes, "show message times")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile looks for --config ahead of the full flag parse so that flags
// can still override file values.
func loadFile(args []string, dst any) error {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	fs.SetOutput(io.Discard)
	path := fs.StringP("config", "c", "", "")
	if err := fs.Parse(args); err != nil || *path == "" {
		// reported by the full parse
		return nil
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		return errors.Join(ErrConfigFile, err)
	}
	if err = yaml.Unmarshal(data, dst); err != nil {
		return errors.Join(ErrConfigFile, err)
	}
	return nil
}

// Development reports whether CHATROOM_ENV selects development mode.
func Development() bool {
	return os.Getenv(EnvVar) == EnvDevelopment
}

// NewLogger creates the root logger. Development mode switches to
// console output at debug level.
func NewLogger(w io.Writer, level string) (zerolog.Logger, error) {
	if Development() {
		return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger().
			Level(zerolog.DebugLevel), nil
	}
	logger := zerolog.New(w).With().Timestamp().Logger()
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return logger, errors.Join(ErrLogLevel, err)
	}
	return logger.Level(lvl), nil
}
