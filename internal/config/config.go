package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token      string        `yaml:"token"`
	Mode       string        `yaml:"mode"` // polling | webhook (future)
	Workers    int           `yaml:"workers"`
	RateLimit  int           `yaml:"rate_limit"` // events per user per window
	RateWindow time.Duration `yaml:"rate_window"`
	// LockLease bounds how long one event may hold its session lock. It must
	// outlast the slowest transition, which is capped by the shop timeout.
	LockLease time.Duration `yaml:"lock_lease"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ShopConfig struct {
	BaseURL  string        `yaml:"base_url"`
	ClientID string        `yaml:"client_id"`
	Timeout  time.Duration `yaml:"timeout"`
}

type AdminConfig struct {
	Port      int           `yaml:"port"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type Config struct {
	Bot   BotConfig   `yaml:"bot"`
	Log   LogConfig   `yaml:"log"`
	Redis RedisConfig `yaml:"redis"`
	Shop  ShopConfig  `yaml:"shop"`
	Admin AdminConfig `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.RateLimit <= 0 {
		cfg.Bot.RateLimit = 20
	}
	if cfg.Bot.RateWindow <= 0 {
		cfg.Bot.RateWindow = time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Shop.BaseURL == "" {
		cfg.Shop.BaseURL = "https://api.moltin.com"
	}
	if cfg.Shop.Timeout <= 0 {
		cfg.Shop.Timeout = 15 * time.Second
	}
	if cfg.Bot.LockLease <= 0 {
		// A transition makes at most a few shop calls back to back.
		cfg.Bot.LockLease = 4 * cfg.Shop.Timeout
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 8090
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = 30 * time.Minute
	}

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Shop.ClientID == "" {
		return nil, errors.New("shop.client_id is required")
	}
	if cfg.Bot.LockLease <= cfg.Shop.Timeout {
		return nil, errors.New("bot.lock_lease must exceed shop.timeout")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
