package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"quoteticker/internal/calendar"
	"quoteticker/internal/provider"
	"quoteticker/internal/scheduler"
	"quoteticker/internal/store"
)

// Controller is the host-facing side of the scheduler.
type Controller interface {
	Pause()
	Resume()
	Poke()
	Mode() scheduler.Mode
}

// Calendar reports whether the market is open.
type Calendar interface {
	Status(t time.Time) calendar.Status
}

// Config holds server configuration
type Config struct {
	Addr       string
	Symbol     string
	Log        zerolog.Logger
	Store      store.Store
	Controller Controller
	Calendar   Calendar
	Hub        *Hub
	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    Config
}

type statusResponse struct {
	Symbol   string    `json:"symbol"`
	Mode     string    `json:"mode"`
	Trading  bool      `json:"trading"`
	NextOpen time.Time `json:"next_open"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(cfg Config) *Server {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Hub == nil {
		cfg.Hub = NewHub(cfg.Log)
	}
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
	}
	s.setupMiddleware()
	s.setupRoutes()

	// No WriteTimeout: /ws connections are long-lived.
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Timeout and Compress would break the WebSocket upgrade, so they stay on /api.
	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		r.Use(middleware.Compress(5))

		r.Get("/quote", s.handleQuote)
		r.Get("/status", s.handleStatus)
		r.Post("/pause", s.handleControl(func(c Controller) { c.Pause() }))
		r.Post("/resume", s.handleControl(func(c Controller) { c.Resume() }))
		r.Post("/refresh", s.handleControl(func(c Controller) { c.Poke() }))
	})

	s.router.Get("/ws", s.handleWS)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no quote yet"})
		return
	}
	u, ok, err := s.cfg.Store.Load(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("loading quote")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "store unavailable"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no quote yet"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Symbol: s.cfg.Symbol, Mode: scheduler.Idle.String()}
	if s.cfg.Controller != nil {
		resp.Mode = s.cfg.Controller.Mode().String()
	}
	if s.cfg.Calendar != nil {
		st := s.cfg.Calendar.Status(s.cfg.Now())
		resp.Trading = st.Open
		resp.NextOpen = st.NextOpen
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleControl(fn func(Controller)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Controller == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "scheduler not running"})
			return
		}
		fn(s.cfg.Controller)
		writeJSON(w, http.StatusAccepted, map[string]string{"mode": s.cfg.Controller.Mode().String()})
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	var first *provider.Update
	if s.cfg.Store != nil {
		if u, ok, err := s.cfg.Store.Load(r.Context()); err == nil && ok {
			first = &u
		}
	}
	s.cfg.Hub.serve(w, r, first)
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.cfg.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and disconnects WebSocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	s.cfg.Hub.Close()
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
