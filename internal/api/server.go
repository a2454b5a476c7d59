// Package api provides the HTTP API server and handlers for the Forge
// application: huma operations on a chi router.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/forgeapp/forge-server/internal/config"
	"github.com/forgeapp/forge-server/internal/http/response"
	"github.com/forgeapp/forge-server/internal/metrics"
	"github.com/forgeapp/forge-server/internal/sse"
	"github.com/forgeapp/forge-server/internal/store"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	store         store.Store
	services      *Services
	router        *chi.Mux
	api           huma.API
	sseManager    *sse.Manager
	sseHandler    *sse.Handler
	publicLimiter *RateLimiter
	authLimiter   *RateLimiter
	logger        *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st store.Store, services *Services, sseManager *sse.Manager, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		store:         st,
		services:      services,
		router:        chi.NewRouter(),
		sseManager:    sseManager,
		sseHandler:    sse.NewHandler(sseManager, logger),
		publicLimiter: NewRateLimiter(cfg.RateLimit.PublicPerMinute, cfg.RateLimit.PublicBurst),
		authLimiter:   NewRateLimiter(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst),
		logger:        logger,
	}

	s.setupMiddleware(cfg.Server.AllowedOrigins)

	s.api = humachi.New(s.router, newHumaConfig())
	RegisterErrorHandler(logger)

	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.publicLimiter != nil {
		s.publicLimiter.Stop()
	}
	if s.authLimiter != nil {
		s.authLimiter.Stop()
	}
}

func newHumaConfig() huma.Config {
	humaConfig := huma.DefaultConfig("Forge API", Version)
	humaConfig.Info.Description = "Kanban boards and markdown pages for small teams."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	return humaConfig
}

// setupMiddleware configures the middleware stack. It must run before any
// route is registered.
func (s *Server) setupMiddleware(allowedOrigins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(metrics.Middleware)
	s.router.Use(authMiddleware(s.services.Auth))
}

// setupRoutes registers every operation.
func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", metrics.Handler())
	s.router.Get("/api/v1/spaces/{spaceId}/events", s.handleEvents)
	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, response.CodeForStatus(http.StatusNotFound), "route not found", s.logger)
	})

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerSpaceRoutes()
	s.registerBoardRoutes()
	s.registerCardRoutes()
	s.registerCommentRoutes()
	s.registerPageRoutes()
	s.registerShareRoutes()
	s.registerMarkdownRoutes()
	s.registerSearchRoutes()
}
