// Command dump saves the raw quote page, for checking the extractor
// against what the site currently serves.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"quoteticker/internal/config"
	"quoteticker/internal/httpx"
	"quoteticker/internal/logger"
	"quoteticker/internal/provider/yahoo"
)

func main() {
	var (
		configPath string
		symbol     string
		outPath    string
	)
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.StringVar(&symbol, "symbol", "", "ticker symbol (overrides config)")
	flag.StringVar(&outPath, "out", "", "output file (default <symbol>_quote.html)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if symbol != "" {
		cfg.Ticker.Symbol = symbol
		cfg.Ticker.URL = ""
	}
	if outPath == "" {
		outPath = fmt.Sprintf("%s_quote.html", cfg.Ticker.Symbol)
	}

	l := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: true, Out: os.Stderr})

	client := httpx.New(time.Duration(cfg.Ticker.RequestTimeoutSec) * time.Second)
	if cfg.Ticker.UserAgent != "" {
		client.UserAgent = cfg.Ticker.UserAgent
	}
	src := yahoo.New(yahoo.Config{Symbol: cfg.Ticker.Symbol, URL: cfg.Ticker.URL}, client)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Ticker.RequestTimeoutSec)*time.Second)
	defer cancel()
	page, err := src.Page(ctx)
	if err != nil {
		l.Fatal().Err(err).Str("url", src.URL()).Msg("fetch")
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			l.Fatal().Err(err).Msg("mkdir")
		}
	}
	if err := os.WriteFile(outPath, []byte(page), 0o644); err != nil {
		l.Fatal().Err(err).Msg("write")
	}

	u := yahoo.Extract(page, cfg.Ticker.Symbol)
	l.Info().
		Str("out", outPath).
		Int("bytes", len(page)).
		Str("price", u.Price).
		Str("delta", u.Delta).
		Bool("notice", u.HasNotice()).
		Msg("saved page")
}
