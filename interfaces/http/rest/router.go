package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/infrastructure/config"
	"github.com/guangtouwangba/weaver-canvas/interfaces/http/rest/handlers"
	"github.com/guangtouwangba/weaver-canvas/interfaces/http/rest/middleware"
	"github.com/guangtouwangba/weaver-canvas/pkg/auth"
)

// Router creates and configures the HTTP router
type Router struct {
	canvasHandler *handlers.CanvasHandler
	validator     *auth.JWTValidator
	config        *config.Config
	logger        *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	canvasHandler *handlers.CanvasHandler,
	validator *auth.JWTValidator,
	cfg *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		canvasHandler: canvasHandler,
		validator:     validator,
		config:        cfg,
		logger:        logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.config.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.weavercanvas.app"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.logger))

		r.Route("/projects/{projectID}/canvas", func(r chi.Router) {
			r.Get("/", rt.canvasHandler.GetCanvas)
			r.Put("/", rt.canvasHandler.SaveCanvas)
			r.Post("/nodes", rt.canvasHandler.CreateNode)
			r.Patch("/nodes/{nodeID}", rt.canvasHandler.UpdateNode)
			r.Delete("/nodes/{nodeID}", rt.canvasHandler.DeleteNode)
			r.Post("/auto-structure", rt.canvasHandler.AutoStructure)
			r.Post("/report", rt.canvasHandler.GenerateReport)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
