package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	envListenAddr      = "PARLEY_LISTEN_ADDR"
	envAllowedOrigin   = "PARLEY_ALLOWED_ORIGIN"
	envStaticDir       = "PARLEY_STATIC_DIR"
	envShutdownTimeout = "PARLEY_SHUTDOWN_TIMEOUT"
	envSendQueueSize   = "PARLEY_SEND_QUEUE_SIZE"
	envPingInterval    = "PARLEY_WS_PING_INTERVAL"
	envPongWait        = "PARLEY_WS_PONG_WAIT"
	envMaxMessageBytes = "PARLEY_MAX_MESSAGE_BYTES"
)

type Config struct {
	ListenAddr string

	// AllowedOrigin restricts websocket upgrades to one Origin header
	// value. Empty allows any origin.
	AllowedOrigin string

	StaticDir       string
	ShutdownTimeout time.Duration

	// SendQueueSize bounds the outbound queue per connection. A client
	// that falls this far behind starts losing messages instead of
	// stalling delivery to others.
	SendQueueSize int

	PingInterval    time.Duration
	PongWait        time.Duration
	MaxMessageBytes int64
}

func Default() Config {
	return Config{
		ListenAddr:      ":8080",
		StaticDir:       "./static",
		ShutdownTimeout: 5 * time.Second,
		SendQueueSize:   256,
		PingInterval:    54 * time.Second,
		PongWait:        60 * time.Second,
		MaxMessageBytes: 64 * 1024,
	}
}

// FromEnv builds a Config from environment variables on top of the
// defaults. Unset variables keep their default; set ones must parse.
func FromEnv() (Config, error) {
	cfg := Default()

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envAllowedOrigin); v != "" {
		cfg.AllowedOrigin = v
	}
	if v := os.Getenv(envStaticDir); v != "" {
		cfg.StaticDir = v
	}
	if err := durationFromEnv(envShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if err := durationFromEnv(envPingInterval, &cfg.PingInterval); err != nil {
		return Config{}, err
	}
	if err := durationFromEnv(envPongWait, &cfg.PongWait); err != nil {
		return Config{}, err
	}
	if v := os.Getenv(envSendQueueSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("%s: expected positive integer, got %q", envSendQueueSize, v)
		}
		cfg.SendQueueSize = n
	}
	if v := os.Getenv(envMaxMessageBytes); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("%s: expected positive integer, got %q", envMaxMessageBytes, v)
		}
		cfg.MaxMessageBytes = n
	}

	if cfg.PingInterval >= cfg.PongWait {
		return Config{}, fmt.Errorf("%s (%s) must be shorter than %s (%s)",
			envPingInterval, cfg.PingInterval, envPongWait, cfg.PongWait)
	}
	return cfg, nil
}

func durationFromEnv(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fmt.Errorf("%s: expected positive duration, got %q", key, v)
	}
	*dst = d
	return nil
}
