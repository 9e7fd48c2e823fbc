// Package config reads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"

	CharactersMemory = "memory"
	CharactersGorm   = "gorm"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	BaseURL         string        `env:"BASE_URL" envDefault:"http://localhost:8080"`
	StoreBackend    string        `env:"STORE_BACKEND" envDefault:"memory"`
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RoomTTL         time.Duration `env:"ROOM_TTL" envDefault:"24h"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	CharacterSource string        `env:"CHARACTER_SOURCE" envDefault:"memory"`
	NPCDelay        time.Duration `env:"NPC_DELAY" envDefault:"1200ms"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	Env             string        `env:"ENV" envDefault:"development"`
}

// Load reads files (default ".env") into the environment without overriding
// variables that are already set, then parses Config.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("STORE_BACKEND=postgres needs DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.CharacterSource {
	case CharactersMemory:
	case CharactersGorm:
		if c.DatabaseURL == "" {
			return errors.New("CHARACTER_SOURCE=gorm needs DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown CHARACTER_SOURCE %q", c.CharacterSource)
	}
	if c.NPCDelay < 0 {
		return errors.New("NPC_DELAY must not be negative")
	}
	return nil
}

// Logger builds the process logger: console output in development, JSON
// everywhere else.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.Env == "development" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
