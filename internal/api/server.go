// Package api provides the HTTP API server and handlers for ShelfNotes.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shelfnotes/shelfnotes-server/internal/config"
	"github.com/shelfnotes/shelfnotes-server/internal/search"
	"github.com/shelfnotes/shelfnotes-server/internal/store"
)

// Options configures the HTTP surface.
type Options struct {
	Version        string
	AllowedOrigins []string
	RateLimit      config.RateLimitConfig
	// TrustProxy enables chi's RealIP middleware, so rate limits key on the
	// forwarded client address instead of the connection's.
	TrustProxy bool
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    store.Store
	services *Services
	index    *search.SearchIndex // nil when local search is disabled
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
	limits   routeLimits
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st store.Store, services *Services, index *search.SearchIndex, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	router := chi.NewRouter()

	s := &Server{
		store:    st,
		services: services,
		index:    index,
		router:   router,
		logger:   logger,
		limits:   newRouteLimits(opts.RateLimit),
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("ShelfNotes API", opts.Version)
	humaConfig.Info.Description = "Book reviews backed by the Google Books catalog."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	// Response bodies keep the exact shape clients expect, without a $schema link.
	humaConfig.CreateHooks = nil

	RegisterErrorHandler()
	s.api = humachi.New(router, humaConfig)

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerBookRoutes()
	s.registerReviewRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the underlying huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.limits.stop()
}

// setupMiddleware configures the router-wide middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	if opts.TrustProxy {
		s.router.Use(middleware.RealIP)
	}
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Retry-After", "X-Request-Id"},
		MaxAge:         300,
	}))
}
