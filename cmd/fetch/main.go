package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"quoteticker/internal/calendar"
	"quoteticker/internal/config"
	"quoteticker/internal/httpx"
	"quoteticker/internal/logger"
	"quoteticker/internal/provider"
	"quoteticker/internal/provider/yahoo"
	"quoteticker/internal/publish"
	"quoteticker/internal/scheduler"
	"quoteticker/internal/store"
)

type output struct {
	Quote    provider.Update `json:"quote"`
	Trading  bool            `json:"trading"`
	NextOpen time.Time       `json:"next_open"`
}

func main() {
	var (
		configPath string
		symbol     string
		url        string
		timeout    int
	)
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.StringVar(&symbol, "symbol", "", "ticker symbol (overrides config)")
	flag.StringVar(&url, "url", "", "quote page URL (overrides config)")
	flag.IntVar(&timeout, "timeout", 0, "request timeout seconds (overrides config)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if symbol != "" {
		cfg.Ticker.Symbol = symbol
		cfg.Ticker.URL = ""
	}
	if url != "" {
		cfg.Ticker.URL = url
	}
	if timeout > 0 {
		cfg.Ticker.RequestTimeoutSec = timeout
	}

	// Logs go to stderr so stdout stays pure JSON.
	l := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: true, Out: os.Stderr})

	cal, err := calendar.New(cfg.Ticker.Timezone, calendar.WithHours(cfg.Ticker.OpenHour, cfg.Ticker.CloseHour))
	if err != nil {
		l.Fatal().Err(err).Msg("calendar")
	}

	client := httpx.New(time.Duration(cfg.Ticker.RequestTimeoutSec) * time.Second)
	if cfg.Ticker.UserAgent != "" {
		client.UserAgent = cfg.Ticker.UserAgent
	}
	src := yahoo.New(yahoo.Config{Symbol: cfg.Ticker.Symbol, URL: cfg.Ticker.URL}, client)

	var last store.Memory
	pub := publish.New(l)
	pub.Subscribe(store.Subscriber(&last, l))

	sched, err := scheduler.New(scheduler.Config{
		Provider:     src,
		Calendar:     cal,
		Publisher:    pub,
		CycleTimeout: time.Duration(cfg.Ticker.RequestTimeoutSec+5) * time.Second,
		Log:          l,
	})
	if err != nil {
		l.Fatal().Err(err).Msg("scheduler")
	}
	if err := sched.RunCycle(context.Background(), "oneshot"); err != nil {
		l.Fatal().Err(err).Str("url", src.URL()).Msg("fetch")
	}

	if err := writeResult(context.Background(), os.Stdout, &last, cal.Status(time.Now())); err != nil {
		l.Fatal().Err(err).Msg("output")
	}
}

// writeResult prints the published quote with the calendar status.
func writeResult(ctx context.Context, w io.Writer, st store.Store, status calendar.Status) error {
	u, ok, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading quote: %w", err)
	}
	if !ok {
		return errors.New("no quote was published")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output{Quote: u, Trading: status.Open, NextOpen: status.NextOpen}); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
