package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"quoteticker/internal/calendar"
	"quoteticker/internal/config"
	"quoteticker/internal/httpx"
	"quoteticker/internal/logger"
	"quoteticker/internal/provider"
	"quoteticker/internal/provider/ratelimit"
	"quoteticker/internal/provider/yahoo"
	"quoteticker/internal/publish"
	"quoteticker/internal/scheduler"
	"quoteticker/internal/server"
	"quoteticker/internal/store"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	l := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(l)

	cal, err := calendar.New(cfg.Ticker.Timezone, calendar.WithHours(cfg.Ticker.OpenHour, cfg.Ticker.CloseHour))
	if err != nil {
		l.Fatal().Err(err).Msg("calendar")
	}

	client := httpx.New(time.Duration(cfg.Ticker.RequestTimeoutSec) * time.Second)
	if cfg.Ticker.UserAgent != "" {
		client.UserAgent = cfg.Ticker.UserAgent
	}
	src := yahoo.New(yahoo.Config{Symbol: cfg.Ticker.Symbol, URL: cfg.Ticker.URL}, client)
	// Only manual refreshes are throttled; scheduled polls keep their cadence.
	refresh := ratelimit.PerMinute(src, cfg.Refresh.MaxRequestsPerMinute, cfg.Refresh.Burst)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		l.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("store")
	}
	defer st.Close()

	if last, ok, err := st.Load(context.Background()); err != nil {
		l.Warn().Err(err).Msg("loading last quote")
	} else if ok {
		l.Info().
			Str("symbol", last.Symbol).
			Str("price", last.Price).
			Str("delta", last.Delta).
			Time("received_at", last.ReceivedAt).
			Msg("provisional quote from store")
	}

	pub := publish.New(l)
	pub.Subscribe(store.Subscriber(st, l))
	pub.Subscribe(func(u provider.Update) {
		ev := l.Info().Str("symbol", u.Symbol).Str("price", u.Price).Str("delta", u.Delta)
		if u.HasNotice() {
			ev = ev.Str("market_notice", u.Notice())
		}
		ev.Msg("quote")
	})

	sched, err := scheduler.New(scheduler.Config{
		Provider:     src,
		PokeProvider: refresh,
		Calendar:     cal,
		Publisher:    pub,
		Interval:     time.Duration(cfg.Ticker.PollIntervalSec) * time.Second,
		Log:          l,
	})
	if err != nil {
		l.Fatal().Err(err).Msg("scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	var srv *server.Server
	if cfg.Server.Enabled {
		hub := server.NewHub(l)
		pub.Subscribe(hub.Broadcast)
		srv = server.New(server.Config{
			Addr:       ":" + cfg.Server.Port,
			Symbol:     cfg.Ticker.Symbol,
			Log:        l,
			Store:      st,
			Controller: sched,
			Calendar:   cal,
			Hub:        hub,
		})
		g.Go(srv.Start)
	}

	l.Info().
		Str("symbol", cfg.Ticker.Symbol).
		Str("url", src.URL()).
		Str("timezone", cfg.Ticker.Timezone).
		Int("poll_interval_sec", cfg.Ticker.PollIntervalSec).
		Msg("starting ticker")
	sched.Resume()

	stopHostSignals := watchHostSignals(sched, l)
	defer stopHostSignals()

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if srv != nil {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				l.Warn().Err(err).Msg("server shutdown")
			}
		}
		return sched.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		stopHostSignals()
		st.Close()
		l.Fatal().Err(err).Msg("stopped with error")
	}
	l.Info().Msg("stopped")
}
