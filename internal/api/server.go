// Package api exposes the registration system as a JSON HTTP API.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/tkd-registrar/internal/config"
	"github.com/sells-group/tkd-registrar/internal/division"
	"github.com/sells-group/tkd-registrar/internal/registration"
	"github.com/sells-group/tkd-registrar/internal/roster"
	"github.com/sells-group/tkd-registrar/internal/store"
)

// Server holds the dependencies shared by the HTTP handlers.
type Server struct {
	store      store.Store
	svc        *registration.Service
	importer   *roster.Importer
	classifier division.Classifier
	cfg        config.ServerConfig
	limiter    *rateLimiter
}

// New creates a Server. A nil importer disables the roster upload route.
func New(st store.Store, svc *registration.Service, importer *roster.Importer, classify division.Options, cfg config.ServerConfig) *Server {
	s := &Server{
		store:      st,
		svc:        svc,
		importer:   importer,
		classifier: division.NewClassifier(classify),
		cfg:        cfg,
	}
	if cfg.RateLimit.RPS > 0 {
		s.limiter = newRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	return s
}

// Router builds the chi router with all middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	if s.limiter != nil {
		r.Use(s.limiter.handler)
	}

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Post("/classify", s.handleClassify)
		r.Get("/divisions", s.handleDivisions)
		r.Get("/belts/{belt}/level", s.handleBeltLevel)

		r.Route("/teams", func(r chi.Router) {
			r.Post("/", s.handleCreateTeam)
			r.Get("/", s.handleListTeams)
			r.Get("/{id}", s.handleGetTeam)
			r.Delete("/{id}", s.handleDeleteTeam)
			r.Get("/{id}/players", s.handleListTeamPlayers)
			r.Post("/{id}/roster", s.handleImportRoster)
		})

		r.Route("/players", func(r chi.Router) {
			r.Post("/", s.handleCreatePlayer)
			r.Get("/{id}", s.handleGetPlayer)
			r.Put("/{id}", s.handleUpdatePlayer)
			r.Delete("/{id}", s.handleDeletePlayer)
			r.Get("/{id}/preview", s.handlePreview)
		})

		r.Route("/competitions", func(r chi.Router) {
			r.Post("/", s.handleCreateCompetition)
			r.Get("/", s.handleListCompetitions)
			r.Get("/{id}", s.handleGetCompetition)
			r.Post("/{id}/open", s.handleSetOpen(true))
			r.Post("/{id}/close", s.handleSetOpen(false))
			r.Post("/{id}/reclassify", s.handleReclassify)
			r.Get("/{id}/summary", s.handleSummary)
		})

		r.Route("/registrations", func(r chi.Router) {
			r.Post("/", s.handleRegister)
			r.Get("/", s.handleListRegistrations)
			r.Get("/{id}", s.handleGetRegistration)
			r.Post("/{id}/approve", s.handleReview(true))
			r.Post("/{id}/reject", s.handleReview(false))
		})
	})

	return r
}

// SweepLimiters drops idle per-client rate limiters until done is closed.
func (s *Server) SweepLimiters(done <-chan struct{}, every time.Duration) {
	if s.limiter == nil {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if n := s.limiter.sweep(); n > 0 {
				zap.L().Debug("swept idle rate limiters", zap.Int("removed", n))
			}
		}
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
