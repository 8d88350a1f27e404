package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/clipsmith/cut-engine/internal/config"
	"github.com/clipsmith/cut-engine/internal/database"
	"github.com/clipsmith/cut-engine/internal/metrics"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// Deps are the collaborators the HTTP layer exposes.
type Deps struct {
	DB      *database.DB
	Service MediaService
	Store   ArtifactSource
	Events  EventSource
	Version string
	Started time.Time
}

func NewServer(cfg *config.Config, deps Deps, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(metrics.InstrumentHandler)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"message": "cut-engine is running", "version": deps.Version})
	})

	health := NewHealthHandler(deps.DB, deps.Version, deps.Started)
	r.Get("/api/v1/health", health.ServeHTTP)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))

		media := NewMediaHandler(deps.Service, cfg.MaxUploadBytes, log)
		jobs := NewJobsHandler(deps.DB)
		downloads := NewDownloadHandler(deps.Store)
		events := NewEventsHandler(deps.Events)

		r.Post("/api/v1/media", media.Submit)
		r.Get("/api/v1/media", jobs.List)
		r.Get("/api/v1/media/{id}", jobs.Get)
		r.Post("/api/v1/media/{id}/cuts", media.ApplyCuts)
		r.Get("/api/v1/downloads/{name}", downloads.Get)
		r.Get("/api/v1/events", events.StreamEvents)
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
