package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string        `env:"APP_PORT" envDefault:"8080"`
	GRPCPort    string        `env:"GRPC_PORT" envDefault:"9090"`
	DatabaseURL string        `env:"DATABASE_URL"` // empty: in-memory user store
	JWTSecret   string        `env:"JWT_SECRET"`
	JWTTTL      time.Duration `env:"JWT_TTL" envDefault:"24h"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	APIRateLimit     int           `env:"API_RATE_LIMIT" envDefault:"60"`
	APIRateWindow    time.Duration `env:"API_RATE_WINDOW" envDefault:"1m"`
	ActionRateLimit  int           `env:"ACTION_RATE_LIMIT" envDefault:"120"`
	ActionRateWindow time.Duration `env:"ACTION_RATE_WINDOW" envDefault:"1m"`

	// Game rules
	TurnDuration     time.Duration `env:"TURN_DURATION" envDefault:"1m"`
	InviteCodeLength int           `env:"INVITE_CODE_LENGTH" envDefault:"6"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"5s"` // 0 disables the sweeper
	WinPoints        int64         `env:"WIN_POINTS" envDefault:"2"`
	DrawPoints       int64         `env:"DRAW_POINTS" envDefault:"1"`

	AllowedOrigin string `env:"ALLOWED_ORIGIN"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.TurnDuration <= 0 {
		return fmt.Errorf("TURN_DURATION must be positive, got %s", c.TurnDuration)
	}
	if c.InviteCodeLength < 4 {
		return fmt.Errorf("INVITE_CODE_LENGTH must be at least 4, got %d", c.InviteCodeLength)
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("SWEEP_INTERVAL must not be negative, got %s", c.SweepInterval)
	}
	if c.WinPoints < 0 || c.DrawPoints < 0 {
		return errors.New("WIN_POINTS and DRAW_POINTS must not be negative")
	}
	return nil
}
