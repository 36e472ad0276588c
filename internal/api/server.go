// Package api exposes the story and audio services over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/soochol/storylens/internal/config"
	"github.com/soochol/storylens/internal/metrics"
	"github.com/soochol/storylens/internal/services"
	"github.com/soochol/storylens/internal/storage"
)

const (
	apiVersion = "1.0.0"

	// multipartOverhead is the body allowance for multipart framing and
	// form fields beyond the file itself.
	multipartOverhead = 1 << 20
	maxJSONBody       = 1 << 20
)

type Server struct {
	stories         *services.StoryService
	audio           *services.AudioService
	store           storage.Storage
	storageCfg      config.StorageConfig
	corsOrigins     []string
	requestTimeout  time.Duration
	metricsEndpoint string
}

func NewServer(cfg *config.Config, store storage.Storage, stories *services.StoryService, audio *services.AudioService) *Server {
	return &Server{
		stories:        stories,
		audio:          audio,
		store:          store,
		storageCfg:     cfg.Storage,
		corsOrigins:    cfg.Server.CORSOrigins,
		requestTimeout: cfg.Server.RequestTimeout,
	}
}

// SetMetricsEndpoint mounts the Prometheus handler at path.
func (s *Server) SetMetricsEndpoint(path string) {
	s.metricsEndpoint = path
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	if s.requestTimeout > 0 {
		r.Use(requestDeadline(s.requestTimeout))
	}
	r.NotFound(writeNotFound)

	r.Get("/", s.root)
	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.uploadImage)
		r.Get("/upload/status", s.uploadStatus)
		r.Route("/audio", func(r chi.Router) {
			r.Post("/generate", s.generateAudio)
			r.Get("/status/tts", s.ttsStatus)
			r.Get("/{filename}", s.serveAudio)
			r.Delete("/{filename}", s.deleteAudio)
		})
		r.Get("/stories/stats/summary", s.storiesStats)
	})

	uploads := http.StripPrefix("/uploads", UploadsHandler(s.store.BaseDir()))
	r.Get("/uploads/*", uploads.ServeHTTP)
	r.Head("/uploads/*", uploads.ServeHTTP)

	if s.metricsEndpoint != "" {
		r.Handle(s.metricsEndpoint, metrics.Handler())
	}

	return r
}

// requestDeadline bounds every request context by d. Handlers own the
// response when it expires; nothing is written on their behalf.
func requestDeadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
