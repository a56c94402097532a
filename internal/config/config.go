// Package config loads AppConfig from defaults, an optional YAML file and the environment, in
// that order. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// FileEnv names the variable that points at the YAML config file.
const FileEnv = "CHESS_CONFIG_FILE"

type AppConfig struct {
	HTTPAddr string `yaml:"http_addr" env:"CHESS_HTTP_ADDR"`
	// FeedAddr serves the websocket change feed. Empty disables it.
	FeedAddr string `yaml:"feed_addr" env:"CHESS_FEED_ADDR"`

	RedisURL    string        `yaml:"redis_url" env:"REDIS_URL"`
	DatabaseURL string        `yaml:"database_url" env:"DATABASE_URL"`
	GameTTL     time.Duration `yaml:"game_ttl" env:"CHESS_GAME_TTL"`

	TurnBudget time.Duration `yaml:"turn_budget" env:"CHESS_TURN_BUDGET"`

	AutoplayEnabled bool          `yaml:"autoplay_enabled" env:"CHESS_AUTOPLAY_ENABLED"`
	AutoplayPlayer  string        `yaml:"autoplay_player" env:"CHESS_AUTOPLAY_PLAYER"`
	AutoplayDelay   time.Duration `yaml:"autoplay_delay" env:"CHESS_AUTOPLAY_DELAY"`
	SeedPlayers     []string      `yaml:"seed_players" env:"CHESS_SEED_PLAYERS" envSeparator:","`

	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type LogConfig struct {
	Level     string `yaml:"level" env:"LOG_LEVEL"`
	Format    string `yaml:"format" env:"LOG_FORMAT"`
	ToConsole bool   `yaml:"to_console" env:"LOG_TO_CONSOLE"`
	ToFile    bool   `yaml:"to_file" env:"LOG_TO_FILE"`
	File      string `yaml:"file" env:"LOG_FILE"`
	Caller    bool   `yaml:"caller" env:"LOG_CALLER"`
}

// TelemetryConfig enables OTLP tracing when Endpoint is set.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint" env:"OTEL_ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() AppConfig {
	return AppConfig{
		HTTPAddr:        ":8080",
		FeedAddr:        ":8081",
		GameTTL:         24 * time.Hour,
		TurnBudget:      time.Minute,
		AutoplayEnabled: true,
		AutoplayPlayer:  "Mr. Robot",
		AutoplayDelay:   4 * time.Second,
		SeedPlayers:     []string{"Alice", "Mr. Robot"},
		Log: LogConfig{
			Level:     "info",
			Format:    "legacy",
			ToConsole: true,
			File:      "logs/chess.log",
		},
		Telemetry: TelemetryConfig{ServiceName: "robochess"},
	}
}

// Load reads the process environment.
func Load() (*AppConfig, error) { return LoadFrom(nil) }

// LoadFrom is Load with an explicit environment. A nil map means the process environment.
func LoadFrom(environ map[string]string) (*AppConfig, error) {
	cfg := Defaults()
	lookup := os.Getenv
	if environ != nil {
		lookup = func(k string) string { return environ[k] }
	}

	if path := strings.TrimSpace(lookup(FileEnv)); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) normalize() {
	c.HTTPAddr = strings.TrimSpace(c.HTTPAddr)
	c.FeedAddr = strings.TrimSpace(c.FeedAddr)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.AutoplayPlayer = strings.TrimSpace(c.AutoplayPlayer)
	seeds := c.SeedPlayers[:0]
	for _, s := range c.SeedPlayers {
		if s = strings.TrimSpace(s); s != "" {
			seeds = append(seeds, s)
		}
	}
	c.SeedPlayers = seeds
}

func (c *AppConfig) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("CHESS_HTTP_ADDR is required"))
	}
	if c.FeedAddr != "" && c.FeedAddr == c.HTTPAddr {
		errs = append(errs, fmt.Errorf("CHESS_FEED_ADDR must differ from CHESS_HTTP_ADDR (%s)", c.HTTPAddr))
	}
	if c.TurnBudget <= 0 {
		errs = append(errs, fmt.Errorf("CHESS_TURN_BUDGET must be positive, got %s", c.TurnBudget))
	}
	if c.AutoplayDelay < 0 {
		errs = append(errs, fmt.Errorf("CHESS_AUTOPLAY_DELAY must not be negative, got %s", c.AutoplayDelay))
	}
	if c.GameTTL <= 0 {
		errs = append(errs, fmt.Errorf("CHESS_GAME_TTL must be positive, got %s", c.GameTTL))
	}
	if c.AutoplayEnabled && c.AutoplayPlayer == "" {
		errs = append(errs, errors.New("CHESS_AUTOPLAY_PLAYER is required when autoplay is enabled"))
	}
	return errors.Join(errs...)
}
