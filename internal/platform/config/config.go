package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	AppURL      string `env:"APP_URL" default:"http://localhost:8080"`
	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`
	JWTSecret   string `env:"JWT_SECRET"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	PollSessionTTL time.Duration `env:"POLL_SESSION_TTL" default:"24h"`

	MaxWebSocketConnections int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP     int     `env:"MAX_CONNECTIONS_PER_IP" default:"100"`
	ConnectionRatePerSecond float64 `env:"CONNECTION_RATE_PER_SECOND" default:"10"`
	ConnectionBurst         int     `env:"CONNECTION_BURST" default:"20"`
	MaxClientsPerRoom       int     `env:"MAX_CLIENTS_PER_ROOM" default:"500"`
	MessageRatePerSecond    float64 `env:"MESSAGE_RATE_PER_SECOND" default:"20"`
	MessageBurst            int     `env:"MESSAGE_BURST" default:"40"`

	BusChannelPrefix string `env:"BUS_CHANNEL_PREFIX" default:"wiperino"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func validate(cfg *Config) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}

	if u, err := url.Parse(cfg.AppURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("APP_URL must be an absolute URL, got %q", cfg.AppURL)
	}

	if cfg.PollSessionTTL <= 0 {
		return errors.New("POLL_SESSION_TTL must be positive")
	}
	if cfg.MaxWebSocketConnections <= 0 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must be positive")
	}
	if cfg.MaxConnectionsPerIP <= 0 {
		return errors.New("MAX_CONNECTIONS_PER_IP must be positive")
	}
	if cfg.ConnectionRatePerSecond <= 0 || cfg.ConnectionBurst <= 0 {
		return errors.New("CONNECTION_RATE_PER_SECOND and CONNECTION_BURST must be positive")
	}
	if cfg.MaxClientsPerRoom <= 0 {
		return errors.New("MAX_CLIENTS_PER_ROOM must be positive")
	}
	if cfg.MessageRatePerSecond <= 0 || cfg.MessageBurst <= 0 {
		return errors.New("MESSAGE_RATE_PER_SECOND and MESSAGE_BURST must be positive")
	}

	return nil
}
