package server

import (
	"encoding/json"
	"net/http"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tinware/rapport/internal/config"
	"github.com/tinware/rapport/internal/logging"
	"github.com/tinware/rapport/internal/store"
	"github.com/tinware/rapport/internal/tracker"
)

// Server is the rapport HTTP API server.
type Server struct {
	db      *store.DB
	tracker *tracker.Tracker
	router  chi.Router
	limiter *rateLimiter
	apiKey  string
	version string
	started time.Time
	log     *charmlog.Logger
}

// New creates a Server over an open store and tracker. An empty APIKey
// leaves the API open; a zero or disabled rate limit turns limiting off.
func New(db *store.DB, tr *tracker.Tracker, cfg config.ServerConfig, version string) *Server {
	s := &Server{
		db:      db,
		tracker: tr,
		apiKey:  cfg.APIKey,
		version: version,
		started: time.Now(),
		log:     logging.WithPrefix("api"),
	}

	if cfg.APIKey != "" && len(cfg.APIKey) < 32 {
		s.log.Warn("API key is shorter than 32 characters")
	}

	if cfg.RateLimit > 0 && !cfg.RateLimitOff {
		window := time.Duration(cfg.RateWindowSecs) * time.Second
		if window <= 0 {
			window = time.Minute
		}
		s.limiter = newRateLimiter(cfg.RateLimit, window)
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		// Health stays reachable without a key so probes keep working
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAPIKey)
			r.Use(s.rateLimit)

			r.Get("/friends", s.handleListFriends)
			r.Post("/friends", s.handleCreateFriend)
			r.Get("/friends/{name}", s.handleGetFriend)
			r.Delete("/friends/{name}", s.handleDeleteFriend)
			r.Get("/friends/{name}/history", s.handleHistory)
			r.Post("/friends/{name}/rebuild", s.handleRebuild)
			r.Post("/interactions", s.handleRecordInteraction)
			r.Get("/report", s.handleReport)
		})
	})

	// Everything outside /api is the embedded dashboard.
	r.Get("/*", dashboardHandler())

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}
	friends, _ := s.db.CountFriends()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"friends": friends,
	})
}
