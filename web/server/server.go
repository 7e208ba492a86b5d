// Package server exposes route queries and websocket playback sessions over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Bucknalla/go-vehicle-tracker/track"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// RouteStore is the data source behind the API.
type RouteStore interface {
	track.Provider
	Len() int
	Dates() []string
}

// Options configures a Server.
type Options struct {
	Addr            string
	StaticDir       string
	AllowedOrigins  []string
	DefaultInterval time.Duration
	// Clock schedules playback ticks. Nil uses the system clock.
	Clock track.Clock
}

// Server is the tracker HTTP API.
type Server struct {
	store      RouteStore
	opts       Options
	logger     zerolog.Logger
	sessions   *Sessions
	upgrader   websocket.Upgrader
	handler    http.Handler
	httpServer *http.Server
}

// New creates a Server over store.
func New(store RouteStore, opts Options, logger zerolog.Logger) *Server {
	if opts.DefaultInterval == 0 {
		opts.DefaultInterval = track.DefaultInterval
	}
	s := &Server{
		store:    store,
		opts:     opts,
		logger:   logger,
		sessions: NewSessions(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.handler = withCORS(s.routes())
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := api.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/dates", s.handleDates).Methods(http.MethodGet)
	v1.HandleFunc("/vehicle/{date}", s.handleVehicle).Methods(http.MethodGet)
	v1.HandleFunc("/vehicle/{date}/gpx", s.handleGPX).Methods(http.MethodGet)
	v1.HandleFunc("/vehicle/{date}/view", s.handleView).Methods(http.MethodGet)
	v1.HandleFunc("/playback", s.handlePlayback)

	// Handle favicon.ico requests
	r.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if s.opts.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.opts.StaticDir)))
	}
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Sessions returns the registry of live playback sessions.
func (s *Server) Sessions() *Sessions {
	return s.sessions
}

// ListenAndServe serves until Shutdown is called, returning nil in that case.
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.opts.Addr).Msg("Starting vehicle tracker server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and closes every playback session.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	closed := s.sessions.CloseAll()
	s.logger.Info().Int("sessions", closed).Msg("Server stopped")
	if err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// fetch returns the route for date, or an empty route when the store fails.
func (s *Server) fetch(r *http.Request) (string, track.Route) {
	date := mux.Vars(r)["date"]
	route, err := s.store.FetchRoute(r.Context(), date)
	if err != nil {
		s.logger.Warn().Err(err).Str("date", date).Msg("Route query failed")
		route = track.Route{}
	}
	return date, route
}

func (s *Server) handleVehicle(w http.ResponseWriter, r *http.Request) {
	date, route := s.fetch(r)
	s.logger.Debug().Str("date", date).Int("records", len(route)).Msg("Route query")
	writeJSON(w, track.RouteResponse{Success: true, Route: route})
}

func (s *Server) handleGPX(w http.ResponseWriter, r *http.Request) {
	date, route := s.fetch(r)
	w.Header().Set("Content-Type", "application/gpx+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="route-%s.gpx"`, date))
	if err := track.WriteGPX(w, date, route); err != nil {
		s.logger.Warn().Err(err).Str("date", date).Msg("Failed to write GPX")
	}
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	_, route := s.fetch(r)
	var current *track.Position
	if first, ok := route.First(); ok {
		current = &first
	}
	writeJSON(w, track.Render(route, current))
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string][]string{"dates": s.store.Dates()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":   "ok",
		"records":  s.store.Len(),
		"sessions": s.sessions.Count(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// withCORS allows any origin to call the API and answers preflight requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
