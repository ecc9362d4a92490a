package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"quoteticker/internal/provider"
)

const (
	DefaultInterval     = 30 * time.Second
	DefaultCycleTimeout = 15 * time.Second
)

// Mode is the scheduling regime.
type Mode int

const (
	// Idle has no timer armed.
	Idle Mode = iota
	// InSession repeats a cycle every interval.
	InSession
	// Sleeping waits on one timer for the next market open.
	Sleeping
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case InSession:
		return "in_session"
	case Sleeping:
		return "sleeping"
	default:
		return "unknown"
	}
}

// Calendar is the subset of calendar.Calendar the scheduler needs.
type Calendar interface {
	IsDuringTradingHours(t time.Time) bool
	NextMarketOpen(t time.Time) time.Time
}

// Publisher receives every successful quote.
type Publisher interface {
	Publish(u provider.Update)
}

type Config struct {
	Provider  provider.Provider
	Calendar  Calendar
	Publisher Publisher
	// PokeProvider serves Poke cycles only, typically Provider behind a
	// rate limiter. Scheduled cycles never go through it. Defaults to Provider.
	PokeProvider provider.Provider
	// Clock defaults to RealClock.
	Clock Clock
	// Interval between in-session cycles; defaults to DefaultInterval.
	Interval time.Duration
	// CycleTimeout bounds one fetch; defaults to DefaultCycleTimeout.
	CycleTimeout time.Duration
	Log          zerolog.Logger
}

// Scheduler decides when quote cycles run. It owns at most one armed timer;
// arming always stops the previous one first.
//
// Cycles run on their own goroutines and are not serialized with each
// other: a slow fetch can outlive the next tick, so updates may reach the
// publisher out of order. Pause stops the timer only; cycles already
// running finish and may still publish.
type Scheduler struct {
	provider  provider.Provider
	poke      provider.Provider
	calendar  Calendar
	publisher Publisher
	clock     Clock
	interval  time.Duration
	timeout   time.Duration
	log       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	mode   Mode
	timer  Timer
	closed bool
	// gen identifies the armed timer; callbacks from older timers are dropped.
	gen uint64
}

func New(cfg Config) (*Scheduler, error) {
	if cfg.Provider == nil {
		return nil, errors.New("scheduler: provider is required")
	}
	if cfg.Calendar == nil {
		return nil, errors.New("scheduler: calendar is required")
	}
	if cfg.Publisher == nil {
		return nil, errors.New("scheduler: publisher is required")
	}
	if cfg.PokeProvider == nil { cfg.PokeProvider = cfg.Provider }
	if cfg.Clock == nil { cfg.Clock = RealClock }
	if cfg.Interval <= 0 { cfg.Interval = DefaultInterval }
	if cfg.CycleTimeout <= 0 { cfg.CycleTimeout = DefaultCycleTimeout }

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		provider:  cfg.Provider,
		poke:      cfg.PokeProvider,
		calendar:  cfg.Calendar,
		publisher: cfg.Publisher,
		clock:     cfg.Clock,
		interval:  cfg.Interval,
		timeout:   cfg.CycleTimeout,
		log:       cfg.Log.With().Str("component", "scheduler").Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Mode returns the current regime.
func (s *Scheduler) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Resume picks InSession or Sleeping from the calendar, arms the matching
// timer, and runs one cycle immediately in either case. It does nothing
// after Shutdown.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.resumeLocked("resume")
}

// Pause stops the armed timer and returns to Idle. Pausing while Idle is a no-op.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == Idle && s.timer == nil {
		return
	}
	s.disarmLocked()
	s.setModeLocked(Idle)
}

// Poke runs one cycle now through the poke provider without changing the
// schedule.
func (s *Scheduler) Poke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spawnLocked(s.poke, "poke")
}

// Shutdown stops the schedule for good, waits for running cycles until ctx
// is done, then cancels whatever is still in flight.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.disarmLocked()
	s.setModeLocked(Idle)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	defer s.cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every spawned cycle has finished.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) resumeLocked(reason string) {
	now := s.clock.Now()
	if s.calendar.IsDuringTradingHours(now) {
		s.setModeLocked(InSession)
		s.armLocked(s.interval, s.onSessionTickLocked)
	} else {
		next := s.calendar.NextMarketOpen(now)
		s.setModeLocked(Sleeping)
		s.armLocked(next.Sub(now), s.onWakeLocked)
		s.log.Info().Time("next_open", next).Dur("in", next.Sub(now)).Msg("sleeping until market open")
	}
	s.spawnLocked(s.provider, reason)
}

func (s *Scheduler) onSessionTickLocked() {
	if !s.calendar.IsDuringTradingHours(s.clock.Now()) {
		s.disarmLocked()
		s.resumeLocked("session_closed")
		return
	}
	s.armLocked(s.interval, s.onSessionTickLocked)
	s.spawnLocked(s.provider, "tick")
}

func (s *Scheduler) onWakeLocked() {
	s.timer = nil
	s.resumeLocked("market_open")
}

func (s *Scheduler) armLocked(d time.Duration, fn func()) {
	s.disarmLocked()
	if d < 0 { d = 0 }
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() { s.fire(gen, fn) })
}

func (s *Scheduler) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Scheduler) fire(gen uint64, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.timer == nil {
		return
	}
	fn()
}

func (s *Scheduler) setModeLocked(m Mode) {
	if s.mode == m {
		return
	}
	s.log.Info().Stringer("from", s.mode).Stringer("to", m).Msg("mode changed")
	s.mode = m
}

// spawnLocked starts one cycle unless the scheduler is shut down. Checking
// closed under mu keeps wg.Add from racing Shutdown's wg.Wait.
func (s *Scheduler) spawnLocked(p provider.Provider, reason string) {
	if s.closed {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.runCycle(s.ctx, p, reason)
	}()
}

// RunCycle performs one scheduled fetch and, on success, one publish.
// Errors are logged and returned; they never change the schedule.
func (s *Scheduler) RunCycle(ctx context.Context, reason string) error {
	return s.runCycle(ctx, s.provider, reason)
}

func (s *Scheduler) runCycle(ctx context.Context, p provider.Provider, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	u, err := p.Fetch(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("reason", reason).Str("provider", p.Name()).Msg("quote cycle skipped")
		return err
	}
	s.log.Debug().Str("reason", reason).Dur("took", time.Since(start)).Msg("quote cycle done")
	s.publisher.Publish(u)
	return nil
}
