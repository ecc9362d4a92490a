package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Ticker struct {
	Symbol            string `json:"symbol"`
	URL               string `json:"url"`
	Timezone          string `json:"timezone"`
	OpenHour          int    `json:"open_hour"`
	CloseHour         int    `json:"close_hour"`
	PollIntervalSec   int    `json:"poll_interval_sec"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
	UserAgent         string `json:"user_agent"`
}

// Refresh bounds manual refreshes; scheduled polls are not limited.
type Refresh struct {
	MaxRequestsPerMinute int `json:"max_requests_per_minute"`
	Burst                int `json:"burst"`
}

type Server struct {
	Port    string `json:"port"`
	Enabled bool   `json:"enabled"`
}

type Store struct {
	Path string `json:"path"`
}

type Log struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

type Config struct {
	Ticker  Ticker  `json:"ticker"`
	Refresh Refresh `json:"refresh"`
	Server  Server  `json:"server"`
	Store   Store   `json:"store"`
	Log     Log     `json:"log"`
}

func Default() Config {
	return Config{
		Ticker: Ticker{
			Symbol:            "CART",
			Timezone:          "America/New_York",
			OpenHour:          9,
			CloseHour:         16,
			PollIntervalSec:   30,
			RequestTimeoutSec: 10,
		},
		Refresh: Refresh{MaxRequestsPerMinute: 6, Burst: 3},
		Server:  Server{Port: "8080", Enabled: true},
		Store:   Store{Path: "./data/ticker.db"},
		Log:     Log{Level: "info"},
	}
}

// Load reads JSON config from path. If path is empty, config.json in the
// working directory is used when present. A .env file is loaded first and
// environment variables override file values.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TICKER_SYMBOL"); v != "" {
		cfg.Ticker.Symbol = strings.ToUpper(strings.TrimSpace(v))
	}
	if v := os.Getenv("TICKER_URL"); v != "" {
		cfg.Ticker.URL = v
	}
	if v := os.Getenv("TICKER_TIMEZONE"); v != "" {
		cfg.Ticker.Timezone = v
	}
	if v := os.Getenv("TICKER_USER_AGENT"); v != "" {
		cfg.Ticker.UserAgent = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"TICKER_OPEN_HOUR", &cfg.Ticker.OpenHour},
		{"TICKER_CLOSE_HOUR", &cfg.Ticker.CloseHour},
		{"TICKER_POLL_INTERVAL_SEC", &cfg.Ticker.PollIntervalSec},
		{"REQUEST_TIMEOUT_SEC", &cfg.Ticker.RequestTimeoutSec},
		{"REFRESH_MAX_RPM", &cfg.Refresh.MaxRequestsPerMinute},
		{"REFRESH_BURST", &cfg.Refresh.Burst},
	}
	for _, e := range ints {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		x, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("env %s: %w", e.env, err)
		}
		*e.dst = x
	}

	bools := []struct {
		env string
		dst *bool
	}{
		{"SERVER_ENABLED", &cfg.Server.Enabled},
		{"LOG_PRETTY", &cfg.Log.Pretty},
	}
	for _, e := range bools {
		if v := os.Getenv(e.env); v != "" {
			b, ok := parseBool(v)
			if !ok {
				return fmt.Errorf("env %s: invalid boolean %q", e.env, v)
			}
			*e.dst = b
		}
	}
	return nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true, true
	case "0", "false", "no", "n":
		return false, true
	}
	return false, false
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	t := c.Ticker
	switch {
	case strings.TrimSpace(t.Symbol) == "":
		return errors.New("config: ticker.symbol is empty")
	case t.PollIntervalSec <= 0:
		return fmt.Errorf("config: ticker.poll_interval_sec must be positive, got %d", t.PollIntervalSec)
	case t.RequestTimeoutSec <= 0:
		return fmt.Errorf("config: ticker.request_timeout_sec must be positive, got %d", t.RequestTimeoutSec)
	case t.OpenHour < 0 || t.CloseHour > 24 || t.OpenHour >= t.CloseHour:
		return fmt.Errorf("config: invalid trading hours %d-%d", t.OpenHour, t.CloseHour)
	case c.Refresh.Burst < 0:
		return fmt.Errorf("config: refresh.burst must not be negative, got %d", c.Refresh.Burst)
	}
	return nil
}
